package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("document not found: %s", "abc"), KindNotFound},
		{"validation", Validation("file too large"), KindValidation},
		{"engine", Engine("query failed", errors.New("boom")), KindEngine},
		{"protocol", Protocol("unknown tool: %s", "nope"), KindProtocol},
		{"wrapped", fmt.Errorf("handler: %w", NotFound("gone")), KindNotFound},
		{"plain error", errors.New("something"), KindEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Engine("insert failed", errors.New("connection refused"))
	assert.Equal(t, "insert failed: connection refused", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "connection refused")

	assert.Equal(t, "document not found: x", NotFound("document not found: x").Error())
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("x")))
	assert.False(t, IsNotFound(Validation("x")))
	assert.True(t, IsValidation(Validation("x")))
	assert.False(t, IsValidation(errors.New("x")))
}

// Package errs provides the error taxonomy shared by the tool dispatch
// layer and the RAG manager. Every failure that crosses the tool-call
// boundary is classified by Kind so it can be reported uniformly.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the tool result envelope.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindEngine     Kind = "engine"
	KindProtocol   Kind = "protocol"
)

// Error is a classified error. Err is optional and preserved for
// errors.Is/errors.As chains.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing file or unknown doc_id.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a business-rule violation (oversized file, empty
// content, malformed arguments).
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Engine wraps a failure surfaced by the RAG engine or a decoder.
func Engine(msg string, err error) error {
	return &Error{Kind: KindEngine, Message: msg, Err: err}
}

// Protocol reports a request the tool surface does not understand.
func Protocol(format string, args ...interface{}) error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error chain. Unclassified errors are
// treated as engine failures: anything unexpected came from below the
// dispatch boundary.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindEngine
}

// IsNotFound reports whether err is classified KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation reports whether err is classified KindValidation.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

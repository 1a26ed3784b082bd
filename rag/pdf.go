package rag

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/raganything/rag-anything-mcp/errs"
)

// extractPDFText pulls the plain text out of a PDF file. Encrypted or
// unreadable files and files with no extractable text are validation
// errors, matching how non-PDF empty files are reported.
func extractPDFText(filePath string) (content string, err error) {
	// The parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = errs.Validation("cannot extract content from PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", errs.Validation("cannot extract content from PDF: %v", err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", errs.Validation("cannot extract content from PDF: %v", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", errs.Validation("cannot extract content from PDF: %v", err)
	}

	content = buf.String()
	if strings.TrimSpace(content) == "" {
		return "", errs.Validation("no text content could be extracted from PDF: %s", filePath)
	}

	return content, nil
}

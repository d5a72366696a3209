package curi

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every error returned from Parse.
var ErrMalformed = errors.New("malformed compound uri")

// SyntaxError describes where and why a compound URI failed to parse.
type SyntaxError struct {
	// Raw is the complete text handed to Parse.
	Raw string

	// Offset is the byte offset in Raw where parsing stopped.
	Offset int

	// Reason is a short description of the problem.
	Reason string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed compound uri %q at offset %d: %s", e.Raw, e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

func syntaxError(raw string, offset int, reason string) *SyntaxError {
	return &SyntaxError{Raw: raw, Offset: offset, Reason: reason}
}

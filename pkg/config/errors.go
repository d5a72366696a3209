package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrUnsupportedFormat is returned for documents whose extension maps to
// no known format.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ValidationError is a single problem with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the key path of the offending value, if known.
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	}
	switch {
	case loc != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %s", loc, e.Path, e.Message)
	case loc != "":
		return fmt.Sprintf("%s: %s", loc, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	default:
		return e.Message
	}
}

// appendValidation folds ValidationErrors into a multierror.
func appendValidation(errs []ValidationError) error {
	var result *multierror.Error
	for i := range errs {
		result = multierror.Append(result, &errs[i])
	}
	return result.ErrorOrNil()
}

// ValidationErrors returns every *ValidationError wrapped in err.
func ValidationErrors(err error) []*ValidationError {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*ValidationError
		for _, e := range merr.Errors {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return []*ValidationError{ve}
	}
	return nil
}

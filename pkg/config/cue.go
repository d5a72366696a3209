package config

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// cueDecoder evaluates CUE sources into plain trees. A cue.Context is not
// safe for concurrent use, so every call holds mu.
type cueDecoder struct {
	mu  sync.Mutex
	ctx *cue.Context
}

func newCUEDecoder() *cueDecoder {
	return &cueDecoder{ctx: cuecontext.New()}
}

// decode compiles data and decodes the concrete result.
func (d *cueDecoder) decode(name string, data []byte) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	val := d.ctx.CompileBytes(data, cue.Filename(name))
	if err := val.Err(); err != nil {
		return nil, appendValidation(convertCUEErrors(err))
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, appendValidation(convertCUEErrors(err))
	}

	var root map[string]any
	if err := val.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return root, nil
}

// convertCUEErrors converts CUE errors to ValidationErrors.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		var file string
		var line, column int

		if pos := errors.Positions(e); len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:    file,
			Line:    line,
			Column:  column,
			Path:    strings.Join(e.Path(), "."),
			Message: errors.Details(e, nil),
		})
	}

	return validationErrors
}

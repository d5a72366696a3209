package schemes

import (
	"context"

	"github.com/openfroyo/urigraph/pkg/engine"
)

// ValueParam is the repr: parameter holding the value to convert.
const ValueParam = "value"

// Repr dereferences repr:name+value=... by converting value to the
// representation called name. Values implementing engine.Representable
// convert themselves; otherwise Converter is asked. A conversion that
// cannot be done returns value unchanged.
type Repr struct {
	Converter engine.TypeConverter
}

// Dereference implements engine.Scheme.
func (r *Repr) Dereference(_ context.Context, req *engine.Request) (any, error) {
	value, _ := req.Param(ValueParam)
	repr := req.URI.Name()

	if rv, ok := value.(engine.Representable); ok {
		if out, ok := rv.AsRepresentation(repr); ok {
			return out, nil
		}
	}
	if r.Converter != nil {
		if out, ok := r.Converter.AsRepresentation(value, repr); ok {
			return out, nil
		}
	}

	req.Handler.Logger().
		WithField("repr", repr).
		Debugf("no conversion for %T, returning value unchanged", value)
	return value, nil
}

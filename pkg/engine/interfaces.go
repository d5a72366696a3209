package engine

import (
	"context"

	"github.com/openfroyo/urigraph/pkg/curi"
)

// Request is a single scheme dispatch.
type Request struct {
	// URI is the URI being dereferenced, already rewritten against the
	// handler's reference URI for relative schemes. Its parameter values
	// are unresolved.
	URI *curi.URI

	// Params are the URI's parameters with every nested URI dereferenced,
	// in their original order.
	Params curi.Params

	// Handler is the handler performing the dispatch. Schemes use it for
	// nested resolution.
	Handler *Handler
}

// Param returns the resolved value of the named parameter.
func (r *Request) Param(name string) (any, bool) {
	return r.Params.Get(name)
}

// Scheme dereferences one category of compound URI.
type Scheme interface {
	Dereference(ctx context.Context, req *Request) (any, error)
}

// RelativeScheme is a Scheme whose names may be relative to a reference
// URI recorded on the handler.
type RelativeScheme interface {
	Scheme

	// ResolveRelative resolves target against ref. Absolute targets are
	// returned unchanged.
	ResolveRelative(ref, target *curi.URI) (*curi.URI, error)
}

// SchemeFunc adapts a function to the Scheme interface.
type SchemeFunc func(ctx context.Context, req *Request) (any, error)

// Dereference calls f.
func (f SchemeFunc) Dereference(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// ObjectBuilder builds an object from a configuration node: a tree of
// maps, slices and scalars with parameters already overlaid.
type ObjectBuilder interface {
	// Build constructs a value from node. id names the node in diagnostics
	// and root marks a top-level build.
	Build(ctx context.Context, h *Handler, node any, id string, root bool) (any, error)
}

// LocalStore reads and writes named local values.
type LocalStore interface {
	// ReadValue returns the stored value and whether one exists.
	ReadValue(ctx context.Context, name string) (any, bool, error)

	// WriteValue stores value under name.
	WriteValue(ctx context.Context, name string, value any) error
}

// TypeConverter converts values to named representations on a best-effort
// basis.
type TypeConverter interface {
	// AsRepresentation returns the converted value and whether a
	// conversion was performed.
	AsRepresentation(value any, repr string) (any, bool)
}

// Representable is implemented by values that convert themselves.
type Representable interface {
	AsRepresentation(repr string) (any, bool)
}

package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/engine"
	"github.com/openfroyo/urigraph/pkg/keypath"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// ErrDenied is returned when a policy refuses a dereference.
var ErrDenied = errors.New("denied by policy")

// Guard wraps a scheme and consults the engine before every dereference.
type Guard struct {
	engine  *Engine
	inner   engine.Scheme
	metrics *telemetry.Metrics
}

var _ engine.RelativeScheme = (*Guard)(nil)

// NewGuard wraps inner. metrics may be nil.
func NewGuard(e *Engine, inner engine.Scheme, metrics *telemetry.Metrics) *Guard {
	return &Guard{engine: e, inner: inner, metrics: metrics}
}

// Install returns a handler in which each named scheme registered on h is
// wrapped in a Guard. h itself is unchanged.
func Install(h *engine.Handler, e *Engine, schemes []string, metrics *telemetry.Metrics) *engine.Handler {
	for _, name := range schemes {
		inner, ok := h.Scheme(name)
		if !ok {
			continue
		}
		h = h.ReplaceScheme(name, NewGuard(e, inner, metrics))
	}
	return h
}

// ResolveRelative delegates to the wrapped scheme when it supports
// relative names.
func (g *Guard) ResolveRelative(ref, target *curi.URI) (*curi.URI, error) {
	if rs, ok := g.inner.(engine.RelativeScheme); ok {
		return rs.ResolveRelative(ref, target)
	}
	return target, nil
}

// Dereference implements engine.Scheme.
func (g *Guard) Dereference(ctx context.Context, req *engine.Request) (any, error) {
	input := NewInput(req.URI, req.Params, engine.Depth(ctx))

	decision, err := g.engine.Decide(ctx, input)
	if err != nil {
		return nil, err
	}
	g.metrics.RecordPolicyDecision(input.Scheme, decision.Allowed)

	if !decision.Allowed {
		if len(decision.Reasons) == 0 {
			return nil, ErrDenied
		}
		return nil, fmt.Errorf("%w: %s", ErrDenied, strings.Join(decision.Reasons, "; "))
	}

	return g.inner.Dereference(ctx, req)
}

// NewInput describes a dereference of u with the given parameter values.
// Nested URIs among params are given as their text.
func NewInput(u *curi.URI, params curi.Params, depth int) *Input {
	fragment, _ := u.Fragment()
	input := &Input{
		Scheme:   u.Scheme(),
		Name:     u.Name(),
		Fragment: fragment,
		Params:   make(map[string]any, params.Len()),
		URI:      u.Raw(),
		Depth:    depth,
	}
	for _, p := range params {
		input.Params[p.Name] = plain(p.Value)
	}
	return input
}

// plain reduces v to something with a JSON form.
func plain(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		s, _ := keypath.AsString(val)
		return s
	}
}

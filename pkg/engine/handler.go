package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/openfroyo/urigraph/pkg/curi"
	"github.com/openfroyo/urigraph/pkg/telemetry"
)

// DefaultMaxDepth is the nesting limit used when WithMaxDepth is not given.
const DefaultMaxDepth = 64

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger.NewComponentLogger("uri-handler")
		}
	}
}

// WithMetrics sets the handler's metrics collector.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithTracer sets the handler's tracer.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(h *Handler) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithMaxDepth sets the nesting limit. Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(h *Handler) {
		if depth > 0 {
			h.maxDepth = depth
		}
	}
}

// WithScheme registers a scheme at construction time.
func WithScheme(name string, scheme Scheme) Option {
	return func(h *Handler) {
		h.schemes[name] = scheme
	}
}

// Handler dereferences compound URIs by dispatching to registered schemes.
//
// A Handler owns its scheme registry and, per scheme name, the reference
// URI that relative names resolve against. Derived handlers copy both maps,
// so changes to a derived handler are never visible from its parent.
// Register mutates the receiver in place and must not race with
// dereferences on the same handler.
type Handler struct {
	schemes  map[string]Scheme
	contexts map[string]*curi.URI

	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	maxDepth int
}

// NewHandler creates a handler with no schemes registered.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		schemes:  make(map[string]Scheme),
		contexts: make(map[string]*curi.URI),
		logger:   telemetry.NewNopLogger(),
		tracer:   telemetry.NewNopTracer(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds or replaces the scheme called name on h itself.
func (h *Handler) Register(name string, scheme Scheme) {
	h.schemes[name] = scheme
}

// Scheme returns the scheme registered under name.
func (h *Handler) Scheme(name string) (Scheme, bool) {
	s, ok := h.schemes[name]
	return s, ok
}

// Schemes returns the registered scheme names in sorted order.
func (h *Handler) Schemes() []string {
	names := make([]string, 0, len(h.schemes))
	for name := range h.schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReferenceURI returns the reference URI recorded for scheme.
func (h *Handler) ReferenceURI(scheme string) (*curi.URI, bool) {
	u, ok := h.contexts[scheme]
	return u, ok
}

// Logger returns the handler's logger.
func (h *Handler) Logger() *telemetry.Logger {
	return h.logger
}

// Metrics returns the handler's metrics collector, which may be nil.
func (h *Handler) Metrics() *telemetry.Metrics {
	return h.metrics
}

// MaxDepth returns the nesting limit.
func (h *Handler) MaxDepth() int {
	return h.maxDepth
}

// ModifySchemeContext returns a handler identical to h except that the
// reference URI for u's scheme is u.
func (h *Handler) ModifySchemeContext(u *curi.URI) *Handler {
	child := h.derive()
	child.contexts[u.Scheme()] = u
	return child
}

// ReplaceScheme returns a handler identical to h except that name maps to
// scheme.
func (h *Handler) ReplaceScheme(name string, scheme Scheme) *Handler {
	child := h.derive()
	child.schemes[name] = scheme
	return child
}

func (h *Handler) derive() *Handler {
	child := *h
	child.schemes = make(map[string]Scheme, len(h.schemes)+1)
	for k, v := range h.schemes {
		child.schemes[k] = v
	}
	child.contexts = make(map[string]*curi.URI, len(h.contexts)+1)
	for k, v := range h.contexts {
		child.contexts[k] = v
	}
	return &child
}

// IsURI reports whether s parses as a compound URI whose scheme is
// registered on h.
func (h *Handler) IsURI(s string) bool {
	if !curi.LooksLikeURI(s) {
		return false
	}
	u, err := curi.Parse(s)
	if err != nil {
		return false
	}
	_, ok := h.schemes[u.Scheme()]
	return ok
}

// Dereference parses raw and dereferences it.
func (h *Handler) Dereference(ctx context.Context, raw string) (any, error) {
	u, err := curi.Parse(raw)
	if err != nil {
		return nil, h.fail(Depth(ctx)+1, NewMalformedError(raw, err))
	}
	return h.DereferenceURI(ctx, u)
}

// DereferenceValue dereferences v when it is a *curi.URI or a string that
// IsURI accepts, and returns it unchanged otherwise.
func (h *Handler) DereferenceValue(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case *curi.URI:
		return h.DereferenceURI(ctx, val)
	case string:
		if h.IsURI(val) {
			return h.Dereference(ctx, val)
		}
	}
	return v, nil
}

// DereferenceURI dereferences a parsed URI. Nested parameter URIs are
// dereferenced first with h itself; the scheme then receives the resolved
// parameters.
func (h *Handler) DereferenceURI(ctx context.Context, u *curi.URI) (any, error) {
	depth := Depth(ctx) + 1
	if depth > h.maxDepth {
		return nil, h.fail(depth, NewDepthExceededError(h.maxDepth, u.Raw()))
	}
	ctx = withDepth(ctx, depth)

	params, perr := h.resolveParams(ctx, u)
	if perr != nil {
		return nil, h.fail(depth, perr)
	}

	scheme, ok := h.schemes[u.Scheme()]
	if !ok {
		return nil, h.fail(depth, NewUnknownSchemeError(u.Scheme(), u.Raw()))
	}

	target := u
	if rs, ok := scheme.(RelativeScheme); ok {
		if ref, ok := h.contexts[u.Scheme()]; ok {
			resolved, err := rs.ResolveRelative(ref, u)
			if err != nil {
				return nil, h.fail(depth, wrap(fmt.Sprintf("resolving against %s", ref.Raw()), u.Raw(), err))
			}
			target = resolved
		}
	}

	logger := h.logger.WithScheme(u.Scheme()).WithURI(target.Raw())
	logger.Debugf("dereferencing at depth %d", depth)

	ctx, span := h.tracer.StartDereferenceSpan(ctx, u.Scheme(), target.Raw(), depth)
	defer span.End()
	timer := telemetry.NewTimer()

	value, err := scheme.Dereference(ctx, &Request{
		URI:     target,
		Params:  params,
		Handler: h,
	})
	if err != nil {
		rerr := wrap("dereference failed", target.Raw(), err)
		telemetry.RecordError(span, rerr)
		h.metrics.RecordDereference(u.Scheme(), "error", timer.Duration())
		logger.WithError(rerr).Debug("dereference failed")
		return nil, h.fail(depth, rerr)
	}

	telemetry.RecordSuccess(span)
	h.metrics.RecordDereference(u.Scheme(), "ok", timer.Duration())
	return value, nil
}

// fail counts err once, at the top-level dereference.
func (h *Handler) fail(depth int, err *ResolveError) error {
	if depth <= 1 {
		h.metrics.RecordError(string(err.Kind))
	}
	return err
}

func (h *Handler) resolveParams(ctx context.Context, u *curi.URI) (curi.Params, *ResolveError) {
	params := u.Params()
	// Positional parameters share the context URI; it is dereferenced once.
	var resolved map[*curi.URI]any
	for i, p := range params {
		nested, ok := p.Value.(*curi.URI)
		if !ok {
			continue
		}
		if value, ok := resolved[nested]; ok {
			params[i].Value = value
			continue
		}
		value, err := h.DereferenceURI(ctx, nested)
		if err != nil {
			return nil, wrap(fmt.Sprintf("parameter %q", p.Name), u.Raw(), err)
		}
		if resolved == nil {
			resolved = make(map[*curi.URI]any)
		}
		resolved[nested] = value
		params[i].Value = value
	}
	return params, nil
}

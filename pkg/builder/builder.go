package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openfroyo/urigraph/pkg/engine"
	"github.com/openfroyo/urigraph/pkg/proxy"
	"github.com/openfroyo/urigraph/pkg/telemetry"
	"github.com/openfroyo/urigraph/pkg/template"
)

// ClassKey is the property naming a node's factory. It is never passed to
// the factory itself.
const ClassKey = "class"

// Option configures a Builder.
type Option func(*Builder)

// WithFactory registers a factory for class.
func WithFactory(class string, f Factory) Option {
	return func(b *Builder) {
		b.factories[class] = f
	}
}

// WithProxyRegistry adapts every built property through r.
func WithProxyRegistry(r *proxy.Registry) Option {
	return func(b *Builder) {
		b.proxies = r
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger.NewComponentLogger("object-builder")
		}
	}
}

// WithMetrics sets the builder's metrics collector.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(b *Builder) {
		b.metrics = metrics
	}
}

// WithTracer sets the builder's tracer.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(b *Builder) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// Builder is the default engine.ObjectBuilder.
//
// Mappings build to property maps, or to a factory's object when they carry
// a class key. Sequences build element by element. Strings that are
// compound URIs with a registered scheme are dereferenced through the
// handler; other strings containing "{" are rendered as templates against
// the enclosing mapping. Every built property is passed through the proxy
// registry before it is handed on.
type Builder struct {
	mu        sync.RWMutex
	factories map[string]Factory

	proxies *proxy.Registry
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

var _ engine.ObjectBuilder = (*Builder)(nil)

// New creates a builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		factories: make(map[string]Factory),
		logger:    telemetry.NewNopLogger(),
		tracer:    telemetry.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds or replaces the factory for class.
func (b *Builder) Register(class string, f Factory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.factories[class] = f
}

// Classes returns the registered class names in sorted order.
func (b *Builder) Classes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.factories))
	for name := range b.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Builder) factory(class string) (Factory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.factories[class]
	return f, ok
}

// Build implements engine.ObjectBuilder.
func (b *Builder) Build(ctx context.Context, h *engine.Handler, node any, id string, root bool) (any, error) {
	if !root {
		return b.build(ctx, h, node, nil, id)
	}

	buildID := uuid.New().String()
	logger := b.logger.WithBuildID(buildID).WithField("node", id)
	ctx = logger.WithContext(ctx)

	ctx, span := b.tracer.StartBuildSpan(ctx, buildID, id)
	defer span.End()
	timer := telemetry.NewTimer()

	class := "none"
	if m, ok := node.(map[string]any); ok {
		if c, ok := m[ClassKey].(string); ok {
			class = c
		}
	}

	value, err := b.build(ctx, h, node, nil, id)
	if err != nil {
		telemetry.RecordError(span, err)
		b.metrics.RecordBuild(class, "error", timer.Duration())
		logger.WithError(err).Debug("build failed")
		return nil, err
	}

	telemetry.RecordSuccess(span)
	b.metrics.RecordBuild(class, "ok", timer.Duration())
	logger.Debugf("built %T", value)
	return value, nil
}

// build builds node. scope is the nearest enclosing mapping, which string
// templates render against.
func (b *Builder) build(ctx context.Context, h *engine.Handler, node any, scope map[string]any, path string) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		return b.buildMap(ctx, h, n, path)

	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			v, err := b.build(ctx, h, item, scope, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = b.adapt(v)
		}
		return out, nil

	case string:
		if h != nil && h.IsURI(n) {
			return h.Dereference(ctx, n)
		}
		if strings.Contains(n, "{") {
			return template.Render(n, scope, false), nil
		}
		return n, nil

	default:
		return node, nil
	}
}

func (b *Builder) buildMap(ctx context.Context, h *engine.Handler, node map[string]any, path string) (any, error) {
	keys := make([]string, 0, len(node))
	for k := range node {
		if k != ClassKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	props := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := b.build(ctx, h, node[k], node, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		props[k] = b.adapt(v)
	}

	raw, ok := node[ClassKey]
	if !ok {
		return props, nil
	}
	class, ok := raw.(string)
	if !ok || class == "" {
		return nil, engine.NewConstructionError(fmt.Sprintf("%s: class must be a non-empty string, got %T", path, raw), nil)
	}

	f, ok := b.factory(class)
	if !ok {
		return nil, engine.NewConstructionError(fmt.Sprintf("%s: unknown class %q", path, class), nil)
	}
	obj, err := f.New(ctx, props)
	if err != nil {
		return nil, engine.NewConstructionError(fmt.Sprintf("%s: class %q", path, class), err)
	}
	return obj, nil
}

func (b *Builder) adapt(v any) any {
	if b.proxies == nil || v == nil {
		return v
	}
	return b.proxies.Adapt(v)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

package proxy

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNilProxy is returned when registering a nil proxy class.
	ErrNilProxy = errors.New("proxy: nil proxy class")
	// ErrEmptyClassName is returned when registering under an empty name.
	ErrEmptyClassName = errors.New("proxy: empty class name")
)

// Lookup outcomes reported to an Observer.
const (
	ResultHit       = "hit"
	ResultNegative  = "negative"
	ResultInherited = "inherited"
	ResultMiss      = "miss"
)

// Observer receives one call per Lookup with the outcome.
type Observer interface {
	ObserveProxyLookup(result string)
}

// Constructor builds a proxy from a single value whose type is assignable
// to Param.
type Constructor struct {
	Param reflect.Type
	New   func(value any) (any, error)
}

// NewConstructor wraps a typed constructor function.
func NewConstructor[T any, P any](fn func(T) (P, error)) Constructor {
	return Constructor{
		Param: reflect.TypeFor[T](),
		New: func(value any) (any, error) {
			return fn(value.(T))
		},
	}
}

// ProxyClass is a named set of constructors.
type ProxyClass struct {
	Name         string
	Constructors []Constructor
}

// NewProxyClass creates a proxy class.
func NewProxyClass(name string, constructors ...Constructor) *ProxyClass {
	return &ProxyClass{Name: name, Constructors: constructors}
}

// Entry is a cached lookup result. An Entry with a nil Proxy is the
// negative sentinel and is never returned from Lookup.
type Entry struct {
	Proxy *ProxyClass
}

// InstantiateWithValue constructs the proxy with value using the first
// constructor whose parameter type accepts value's type. It reports false
// when no constructor fits or construction fails or panics.
func (e *Entry) InstantiateWithValue(value any) (proxy any, ok bool) {
	if e == nil || e.Proxy == nil || value == nil {
		return nil, false
	}
	vt := reflect.TypeOf(value)
	for _, c := range e.Proxy.Constructors {
		if c.Param == nil || c.New == nil || !vt.AssignableTo(c.Param) {
			continue
		}
		return construct(c, value)
	}
	return nil, false
}

func construct(c Constructor, value any) (proxy any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			proxy, ok = nil, false
		}
	}()
	p, err := c.New(value)
	if err != nil || p == nil {
		return nil, false
	}
	return p, true
}

// negative is the shared "no proxy" sentinel.
var negative = &Entry{}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver reports lookup outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry holds proxy registrations and the memoized lookup cache.
type Registry struct {
	// mu serializes registrations and Reset.
	mu sync.Mutex
	// entries maps class name to *Entry, registered or memoized.
	entries sync.Map
	// registered counts explicit registrations.
	registered int

	observer Observer
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register maps the class called proxied to proxy. A later registration for
// the same name replaces the earlier one.
func (r *Registry) Register(proxy *ProxyClass, proxied string) error {
	if proxy == nil {
		return ErrNilProxy
	}
	if proxied == "" {
		return ErrEmptyClassName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries.Store(proxied, &Entry{Proxy: proxy})
	r.registered++
	return nil
}

// RegisterType maps the class derived from t to proxy.
func (r *Registry) RegisterType(proxy *ProxyClass, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("proxy: nil type for %s", proxy.nameOrNil())
	}
	return r.Register(proxy, TypeName(t))
}

func (p *ProxyClass) nameOrNil() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

// Lookup returns the proxy entry for v's class, or nil when v's class and
// all of its ancestors have no proxy.
func (r *Registry) Lookup(v any) *Entry {
	return r.LookupClass(ClassOf(v))
}

// LookupClass is Lookup for an explicit class chain.
func (r *Registry) LookupClass(c *Class) *Entry {
	if c == nil {
		return nil
	}

	if cached, ok := r.entries.Load(c.Name); ok {
		e := cached.(*Entry)
		if e.Proxy == nil {
			r.observe(ResultNegative)
			return nil
		}
		r.observe(ResultHit)
		return e
	}

	for parent := c.Parent; parent != nil; parent = parent.Parent {
		cached, ok := r.entries.Load(parent.Name)
		if !ok {
			continue
		}
		e := cached.(*Entry)
		if e.Proxy == nil {
			continue
		}
		r.entries.LoadOrStore(c.Name, e)
		r.observe(ResultInherited)
		return e
	}

	r.entries.LoadOrStore(c.Name, negative)
	r.observe(ResultMiss)
	return nil
}

// Adapt returns a proxy for v when one is registered and can be
// constructed, and v itself otherwise.
func (r *Registry) Adapt(v any) any {
	e := r.Lookup(v)
	if e == nil {
		return v
	}
	if p, ok := e.InstantiateWithValue(v); ok {
		return p
	}
	return v
}

// Cached reports whether a result is memoized or registered for name, and
// whether that result is a proxy.
func (r *Registry) Cached(name string) (present bool, hasProxy bool) {
	cached, ok := r.entries.Load(name)
	if !ok {
		return false, false
	}
	return true, cached.(*Entry).Proxy != nil
}

// Count returns the number of explicit registrations.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// Reset drops every registration and memoized result.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Range(func(key, _ any) bool {
		r.entries.Delete(key)
		return true
	})
	r.registered = 0
}

func (r *Registry) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveProxyLookup(result)
	}
}

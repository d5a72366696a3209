package proxy

import (
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"
)

type base struct{ id string }
type middle struct {
	base
	label string
}
type leaf struct {
	*middle
}
type unrelated struct{}

type wrapper struct{ inner any }

func wrapBase(v *middle) (*wrapper, error) {
	return &wrapper{inner: v}, nil
}

type counter struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *counter) ObserveProxyLookup(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]int)
	}
	c.results[result]++
}

func TestClassOf_EmbeddingChain(t *testing.T) {
	c := ClassOf(&leaf{})
	var names []string
	for ; c != nil; c = c.Parent {
		names = append(names, c.Name)
	}
	pkg := reflect.TypeOf(base{}).PkgPath()
	want := []string{pkg + ".leaf", pkg + ".middle", pkg + ".base"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected chain %v, got %v", want, names)
	}
}

type selfEmbedding struct {
	*selfEmbedding
	V int
}

type ping struct{ *pong }
type pong struct{ *ping }

func TestClassOf_RecursiveEmbedding(t *testing.T) {
	pkg := reflect.TypeOf(base{}).PkgPath()
	tests := []struct {
		name string
		v    any
		want []string
	}{
		{"self", &selfEmbedding{V: 1}, []string{pkg + ".selfEmbedding"}},
		{"mutual", &ping{}, []string{pkg + ".ping", pkg + ".pong"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for c := ClassOf(tt.v); c != nil; c = c.Parent {
				names = append(names, c.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("expected chain %v, got %v", tt.want, names)
			}

			r := NewRegistry()
			if e := r.Lookup(tt.v); e != nil {
				t.Errorf("expected no proxy, got %+v", e)
			}
			if got := r.Adapt(tt.v); got != tt.v {
				t.Errorf("Adapt() = %v, want the value unchanged", got)
			}
		})
	}
}

func TestRegistry_LookupExactAndInherited(t *testing.T) {
	obs := &counter{}
	r := NewRegistry(WithObserver(obs))
	p := NewProxyClass("baseProxy")
	if err := r.RegisterType(p, reflect.TypeOf(base{})); err != nil {
		t.Fatalf("register: %v", err)
	}

	if e := r.Lookup(&base{}); e == nil || e.Proxy != p {
		t.Fatalf("expected exact entry, got %+v", e)
	}

	leafName := TypeName(reflect.TypeOf(leaf{}))
	if present, _ := r.Cached(leafName); present {
		t.Fatal("leaf should not be cached before lookup")
	}
	if e := r.Lookup(&leaf{middle: &middle{}}); e == nil || e.Proxy != p {
		t.Fatalf("expected inherited entry, got %+v", e)
	}
	if present, hasProxy := r.Cached(leafName); !present || !hasProxy {
		t.Error("inherited entry should be memoized under the leaf class")
	}

	if e := r.Lookup(&leaf{}); e == nil {
		t.Fatal("expected memoized entry on second lookup")
	}

	if obs.results[ResultHit] != 2 || obs.results[ResultInherited] != 1 {
		t.Errorf("unexpected observations %v", obs.results)
	}
}

func TestRegistry_NegativeCaching(t *testing.T) {
	r := NewRegistry()
	if e := r.Lookup(unrelated{}); e != nil {
		t.Fatalf("expected no proxy, got %+v", e)
	}
	present, hasProxy := r.Cached(TypeName(reflect.TypeOf(unrelated{})))
	if !present || hasProxy {
		t.Errorf("expected negative entry, present=%v hasProxy=%v", present, hasProxy)
	}
}

// A proxy registered for an ancestor after a subclass was negatively cached
// must not apply to that subclass.
func TestRegistry_LateRegistrationIsNotRetroactive(t *testing.T) {
	r := NewRegistry()

	if e := r.Lookup(&middle{}); e != nil {
		t.Fatalf("expected no proxy before registration, got %+v", e)
	}

	if err := r.RegisterType(NewProxyClass("late"), reflect.TypeOf(base{})); err != nil {
		t.Fatalf("register: %v", err)
	}

	if e := r.Lookup(&middle{}); e != nil {
		t.Errorf("negatively cached subclass must stay without proxy, got %+v", e)
	}
	if e := r.Lookup(&base{}); e == nil {
		t.Error("base itself should see the late registration")
	}
	if e := r.Lookup(&leaf{}); e == nil {
		t.Error("never-looked-up subclass should inherit the late registration")
	}

	r.Reset()
	if err := r.RegisterType(NewProxyClass("fresh"), reflect.TypeOf(base{})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if e := r.Lookup(&middle{}); e == nil {
		t.Error("after Reset the subclass should inherit the registration")
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil, "x"); !errors.Is(err, ErrNilProxy) {
		t.Errorf("expected ErrNilProxy, got %v", err)
	}
	if err := r.Register(NewProxyClass("p"), ""); !errors.Is(err, ErrEmptyClassName) {
		t.Errorf("expected ErrEmptyClassName, got %v", err)
	}
	if err := r.RegisterType(NewProxyClass("p"), nil); err == nil {
		t.Error("expected error for nil type")
	}
}

func TestRegistry_LastWriterWins(t *testing.T) {
	r := NewRegistry()
	first, second := NewProxyClass("first"), NewProxyClass("second")
	_ = r.Register(first, "widget")
	_ = r.Register(second, "widget")
	if e := r.LookupClass(&Class{Name: "widget"}); e == nil || e.Proxy != second {
		t.Errorf("expected second registration to win, got %+v", e)
	}
	if r.Count() != 2 {
		t.Errorf("expected 2 registrations, got %d", r.Count())
	}
}

func TestEntry_InstantiateWithValue(t *testing.T) {
	ok := NewProxyClass("ok", NewConstructor(wrapBase))
	failing := NewProxyClass("failing", NewConstructor(func(v *middle) (*wrapper, error) {
		return nil, errors.New("boom")
	}))
	panicking := NewProxyClass("panicking", NewConstructor(func(v *middle) (*wrapper, error) {
		panic("boom")
	}))
	byInterface := NewProxyClass("iface", NewConstructor(func(v any) (*wrapper, error) {
		return &wrapper{inner: v}, nil
	}))

	m := &middle{label: "x"}

	p, good := (&Entry{Proxy: ok}).InstantiateWithValue(m)
	if !good {
		t.Fatal("expected construction to succeed")
	}
	if w, isWrapper := p.(*wrapper); !isWrapper || w.inner != m {
		t.Errorf("unexpected proxy %#v", p)
	}

	if _, good := (&Entry{Proxy: ok}).InstantiateWithValue(&base{}); good {
		t.Error("expected no constructor to accept *base")
	}
	if _, good := (&Entry{Proxy: failing}).InstantiateWithValue(m); good {
		t.Error("failing constructor must report false")
	}
	if _, good := (&Entry{Proxy: panicking}).InstantiateWithValue(m); good {
		t.Error("panicking constructor must report false")
	}
	if _, good := (&Entry{Proxy: byInterface}).InstantiateWithValue("anything"); !good {
		t.Error("interface parameter should accept any value")
	}
	if _, good := (*Entry)(nil).InstantiateWithValue(m); good {
		t.Error("nil entry must report false")
	}
}

func TestRegistry_Adapt(t *testing.T) {
	r := NewRegistry()
	_ = r.RegisterType(NewProxyClass("wrap", NewConstructor(wrapBase)), reflect.TypeOf(middle{}))

	m := &middle{}
	if _, ok := r.Adapt(m).(*wrapper); !ok {
		t.Error("expected middle to be wrapped")
	}
	u := unrelated{}
	if got := r.Adapt(u); got != u {
		t.Errorf("expected unrelated value unchanged, got %#v", got)
	}
	if got := r.Adapt(nil); got != nil {
		t.Errorf("expected nil passthrough, got %#v", got)
	}
}

type declared struct{ class *Class }

func (d declared) Class() *Class { return d.class }

func TestRegistry_Classifier(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewProxyClass("view"), "View")

	button := declared{class: &Class{Name: "Button", Parent: &Class{Name: "View"}}}
	if e := r.Lookup(button); e == nil || e.Proxy.Name != "view" {
		t.Errorf("expected declared hierarchy to inherit View proxy, got %+v", e)
	}
}

func TestRegistry_ConcurrentLookupAndRegister(t *testing.T) {
	r := NewRegistry()
	p := NewProxyClass("p")
	_ = r.RegisterType(p, reflect.TypeOf(base{}))

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				if e := r.Lookup(&leaf{}); e == nil || e.Proxy != p {
					t.Errorf("lookup returned %+v", e)
					return
				}
				_ = r.Lookup(unrelated{})
			}
		}()
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = r.Register(p, TypeName(reflect.TypeOf(base{})))
			}
		}()
	}

	wg.Wait()

	if present, hasProxy := r.Cached(TypeName(reflect.TypeOf(unrelated{}))); !present || hasProxy {
		t.Error("unrelated should be negatively cached")
	}
}

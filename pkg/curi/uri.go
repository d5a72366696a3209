package curi

import (
	"fmt"
	"strconv"
	"strings"
)

// URI is a parsed compound URI. The zero value is not useful; obtain URIs
// from Parse, MustParse or New.
type URI struct {
	scheme      string
	name        string
	fragment    string
	hasFragment bool
	params      Params
	context     any
	hasContext  bool
	raw         string
}

// Param is a single named parameter. Value is either a literal (string,
// number, bool) or a *URI that still has to be dereferenced.
type Param struct {
	Name       string
	Value      any
	Positional bool
}

// Params is an ordered parameter list.
type Params []Param

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p)
}

// Get returns the value of the first parameter called name.
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Names returns the parameter names in order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Map flattens the parameters into a map. Later duplicates win.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// New builds a URI from its parts. Params are copied.
func New(scheme, name string, params Params) *URI {
	u := &URI{
		scheme: scheme,
		name:   name,
		params: append(Params(nil), params...),
	}
	u.raw = u.String()
	return u
}

// Scheme returns the scheme name.
func (u *URI) Scheme() string {
	return u.scheme
}

// Name returns the scheme-specific name segment.
func (u *URI) Name() string {
	return u.name
}

// Fragment returns the fragment and whether one was present.
func (u *URI) Fragment() (string, bool) {
	return u.fragment, u.hasFragment
}

// Params returns a copy of the ordered parameter list.
func (u *URI) Params() Params {
	return append(Params(nil), u.params...)
}

// Context returns the trailing "@" value and whether one was present.
func (u *URI) Context() (any, bool) {
	return u.context, u.hasContext
}

// Raw returns the text the URI was parsed from. Derived URIs report their
// canonical serialization.
func (u *URI) Raw() string {
	return u.raw
}

// WithName returns a copy of u with a different name segment.
func (u *URI) WithName(name string) *URI {
	c := u.clone()
	c.name = name
	c.raw = c.String()
	return c
}

// WithFragment returns a copy of u with the given fragment.
func (u *URI) WithFragment(fragment string) *URI {
	c := u.clone()
	c.fragment = fragment
	c.hasFragment = true
	c.raw = c.String()
	return c
}

// WithParams returns a copy of u whose parameter list is replaced.
func (u *URI) WithParams(params Params) *URI {
	c := u.clone()
	c.params = append(Params(nil), params...)
	c.raw = c.String()
	return c
}

func (u *URI) clone() *URI {
	c := *u
	c.params = append(Params(nil), u.params...)
	return &c
}

// String serializes u in canonical form. The result re-parses to a URI
// that is Equal to u, although it may differ textually from Raw.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteByte(':')
	b.WriteString(escape(u.name, nameReserved))
	if u.hasFragment {
		b.WriteByte('#')
		b.WriteString(escape(u.fragment, nameReserved))
	}
	for _, p := range u.params {
		b.WriteByte('+')
		b.WriteString(escape(p.Name, paramReserved))
		if p.Positional {
			continue
		}
		b.WriteByte('=')
		b.WriteString(formatValue(p.Value, true))
	}
	if u.hasContext {
		b.WriteByte('@')
		b.WriteString(formatValue(u.context, false))
	}
	return b.String()
}

// formatValue renders a parameter or context value. Nested URIs that carry
// "+" or "@" separators are parenthesised when nested is set.
func formatValue(v any, nested bool) string {
	switch val := v.(type) {
	case *URI:
		s := val.String()
		if nested && (len(val.params) > 0 || val.hasContext) {
			return "(" + s + ")"
		}
		return s
	case string:
		return escapeLiteral(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return ""
	default:
		return escapeLiteral(fmt.Sprint(val))
	}
}

// Equal reports whether a and b are structurally equal: same scheme, name,
// fragment and parameter set. Literal values compare by their text form.
func Equal(a, b *URI) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.scheme != b.scheme || a.name != b.name {
		return false
	}
	if a.hasFragment != b.hasFragment || a.fragment != b.fragment {
		return false
	}
	if a.hasContext != b.hasContext || !valuesEqual(a.context, b.context) {
		return false
	}
	if len(a.params) != len(b.params) {
		return false
	}
	for i := range a.params {
		pa, pb := a.params[i], b.params[i]
		if pa.Name != pb.Name || pa.Positional != pb.Positional {
			return false
		}
		if !valuesEqual(pa.Value, pb.Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	ua, aok := a.(*URI)
	ub, bok := b.(*URI)
	if aok || bok {
		return aok && bok && Equal(ua, ub)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

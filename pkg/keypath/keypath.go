// Package keypath resolves dot-separated paths against values of unknown
// shape: mappings, sequences and types that expose named fields through
// FieldAccessible.
package keypath

import (
	"reflect"
	"strconv"
	"strings"
)

// FieldAccessible is implemented by types that want their named properties
// to be reachable from a key path. The returned accessors are called lazily,
// only for the segment being resolved.
type FieldAccessible interface {
	Fields() map[string]func() any
}

// Modifier intercepts resolution. ModifyObject may substitute the current
// value before the segment key is looked up on it; ModifyValue may
// transform the value the key resolved to before the next segment
// consumes it. ctx is the value passed with WithContext.
type Modifier interface {
	ModifyObject(ctx any, obj any, key string) any
	ModifyValue(ctx any, value any, key string) any
}

// ModifierFuncs adapts plain functions to Modifier. Nil functions leave
// values untouched.
type ModifierFuncs struct {
	Object func(ctx any, obj any, key string) any
	Value  func(ctx any, value any, key string) any
}

// ModifyObject implements Modifier.
func (m ModifierFuncs) ModifyObject(ctx any, obj any, key string) any {
	if m.Object == nil {
		return obj
	}
	return m.Object(ctx, obj, key)
}

// ModifyValue implements Modifier.
func (m ModifierFuncs) ModifyValue(ctx any, value any, key string) any {
	if m.Value == nil {
		return value
	}
	return m.Value(ctx, value, key)
}

// Option configures a single Resolve call.
type Option func(*options)

type options struct {
	context  any
	modifier Modifier
}

// WithContext passes ctx to the modifier hooks.
func WithContext(ctx any) Option {
	return func(o *options) {
		o.context = ctx
	}
}

// WithModifier installs a two-phase interception hook.
func WithModifier(m Modifier) Option {
	return func(o *options) {
		o.modifier = m
	}
}

// Resolve walks path segment by segment starting at root. The boolean
// result is false as soon as a segment cannot be resolved; an unresolved
// segment is never an error.
//
// Each segment is tried, in order, as a mapping key, as a sequence index
// and as a FieldAccessible field name.
func Resolve(path string, root any, opts ...Option) (any, bool) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		return root, root != nil
	}

	current := root
	for _, key := range strings.Split(path, ".") {
		if current == nil {
			return nil, false
		}
		if o.modifier != nil {
			current = o.modifier.ModifyObject(o.context, current, key)
			if current == nil {
				return nil, false
			}
		}

		next, ok := lookup(current, key)
		if !ok {
			return nil, false
		}
		if o.modifier != nil {
			next = o.modifier.ModifyValue(o.context, next, key)
		}
		current = next
	}

	return current, current != nil
}

// lookup resolves a single key against obj.
func lookup(obj any, key string) (any, bool) {
	switch v := obj.(type) {
	case map[string]any:
		val, ok := v[key]
		return val, ok
	case map[string]string:
		val, ok := v[key]
		return val, ok
	case []any:
		i, ok := index(key, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	case []string:
		i, ok := index(key, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := index(key, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}

	if fa, ok := obj.(FieldAccessible); ok {
		return field(fa, key)
	}
	return nil, false
}

func field(fa FieldAccessible, key string) (any, bool) {
	accessor, ok := fa.Fields()[key]
	if !ok || accessor == nil {
		return nil, false
	}
	return accessor(), true
}

// index parses key as a non-negative index below n. Only decimal digits are
// accepted, so signed forms like "+1" are keys, not indexes.
func index(key string, n int) (int, bool) {
	if key == "" || key[0] < '0' || key[0] > '9' {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

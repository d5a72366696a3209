package proxy

import "reflect"

// Class names a class and links to its parent. A nil Parent marks a root.
type Class struct {
	Name   string
	Parent *Class
}

// String returns the class name.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// Classifier is implemented by values that declare their class chain
// explicitly.
type Classifier interface {
	Class() *Class
}

// ClassOf returns the class of v, or nil for a nil value.
func ClassOf(v any) *Class {
	if v == nil {
		return nil
	}
	if c, ok := v.(Classifier); ok {
		return c.Class()
	}
	return ClassOfType(reflect.TypeOf(v))
}

// ClassOfType derives a class chain from a Go type. Pointers are looked
// through; the parent of a struct type is its first embedded struct field.
// The chain ends at the first type that already appears in it, so
// self-embedding and mutually embedding types yield a finite chain.
func ClassOfType(t reflect.Type) *Class {
	return classOfType(t, make(map[reflect.Type]bool))
}

func classOfType(t reflect.Type, seen map[reflect.Type]bool) *Class {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	seen[t] = true

	c := &Class{Name: TypeName(t)}
	if t.Kind() != reflect.Struct {
		return c
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			if !seen[ft] {
				c.Parent = classOfType(ft, seen)
			}
			break
		}
	}
	return c
}

// TypeName returns the class name used for t: "pkgpath.Name" for named
// types, the type literal otherwise.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

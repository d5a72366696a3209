package keypath

import (
	"errors"
	"strings"
	"testing"
)

type account struct {
	name  string
	owner *account
}

func (a *account) Fields() map[string]func() any {
	return map[string]func() any{
		"name":  func() any { return a.name },
		"owner": func() any { return a.owner },
	}
}

type labels map[string]string

func TestResolve(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{
			"b": []any{10, 20, 30},
		},
		"empty": map[string]any{},
		"names": []string{"x", "y"},
		"typed": labels{"env": "prod"},
		"ints":  []int{7, 8},
		"account": &account{
			name:  "ops",
			owner: &account{name: "root"},
		},
	}

	tests := []struct {
		name   string
		path   string
		root   any
		want   any
		wantOK bool
	}{
		{name: "nested sequence index", path: "a.b.1", root: root, want: 20, wantOK: true},
		{name: "missing key", path: "empty.missing", root: root, wantOK: false},
		{name: "missing intermediate", path: "nope.b.1", root: root, wantOK: false},
		{name: "non numeric index", path: "a.b.x", root: root, wantOK: false},
		{name: "negative index", path: "a.b.-1", root: root, wantOK: false},
		{name: "index out of range", path: "a.b.3", root: root, wantOK: false},
		{name: "signed index", path: "a.b.+1", root: root, wantOK: false},
		{name: "signed reflected index", path: "ints.+0", root: root, wantOK: false},
		{name: "leading zero index", path: "a.b.01", root: root, want: 20, wantOK: true},
		{name: "string slice", path: "names.1", root: root, want: "y", wantOK: true},
		{name: "named map type", path: "typed.env", root: root, want: "prod", wantOK: true},
		{name: "int slice via reflection", path: "ints.0", root: root, want: 7, wantOK: true},
		{name: "field accessible", path: "account.owner.name", root: root, want: "root", wantOK: true},
		{name: "field accessible missing", path: "account.secret", root: root, wantOK: false},
		{name: "sequence root with key", path: "a.b", root: []any{1, 2, 3}, wantOK: false},
		{name: "sequence root with index", path: "2", root: []any{1, 2, 3}, want: 3, wantOK: true},
		{name: "scalar root", path: "a", root: 42, wantOK: false},
		{name: "nil root", path: "a", root: nil, wantOK: false},
		{name: "empty path", path: "", root: "value", want: "value", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.path, tt.root)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (value %v)", tt.wantOK, ok, got)
			}
			if ok && got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolve_Modifier(t *testing.T) {
	root := map[string]any{
		"user": map[string]any{"name": "alice"},
	}

	var objectKeys, valueKeys []string
	mod := ModifierFuncs{
		Object: func(ctx any, obj any, key string) any {
			objectKeys = append(objectKeys, key)
			if key == "alias" {
				return ctx
			}
			return obj
		},
		Value: func(ctx any, value any, key string) any {
			valueKeys = append(valueKeys, key)
			if s, ok := value.(string); ok {
				return strings.ToUpper(s)
			}
			return value
		},
	}

	got, ok := Resolve("user.name", root, WithModifier(mod))
	if !ok || got != "ALICE" {
		t.Errorf("expected ALICE, got %v (ok=%v)", got, ok)
	}
	if strings.Join(objectKeys, ",") != "user,name" {
		t.Errorf("unexpected object hook order %v", objectKeys)
	}
	if strings.Join(valueKeys, ",") != "user,name" {
		t.Errorf("unexpected value hook order %v", valueKeys)
	}

	substitute := map[string]any{"alias": "from-context"}
	got, ok = Resolve("alias", root, WithContext(substitute), WithModifier(mod))
	if !ok || got != "FROM-CONTEXT" {
		t.Errorf("expected object substitution from context, got %v (ok=%v)", got, ok)
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{in: nil, wantOK: false},
		{in: "x", want: "x", wantOK: true},
		{in: 12, want: "12", wantOK: true},
		{in: 1.5, want: "1.5", wantOK: true},
		{in: true, want: "true", wantOK: true},
	}
	for _, tt := range tests {
		got, ok := AsString(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("AsString(%v) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAsInt(t *testing.T) {
	for _, in := range []any{3, int64(3), 3.9, "3", float32(3)} {
		got, err := AsInt(in)
		if err != nil {
			t.Errorf("AsInt(%v) unexpected error: %v", in, err)
			continue
		}
		if got != 3 {
			t.Errorf("AsInt(%v) = %d, want 3", in, got)
		}
	}

	for _, in := range []any{nil, "abc", true, map[string]any{}} {
		if _, err := AsInt(in); !errors.Is(err, ErrNotNumeric) {
			t.Errorf("AsInt(%v) expected ErrNotNumeric, got %v", in, err)
		}
	}
}

func TestAsBoolean(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{in: true, want: true},
		{in: false, want: false},
		{in: 1, want: true},
		{in: 0, want: false},
		{in: -2.5, want: true},
		{in: int8(-1), want: true},
		{in: int16(3), want: true},
		{in: uint8(1), want: true},
		{in: uint16(2), want: true},
		{in: uint32(4), want: true},
		{in: uint8(0), want: false},
		{in: "TRUE", want: true},
		{in: "true", want: true},
		{in: "yes", want: false},
		{in: nil, want: false},
		{in: []any{1}, want: false},
	}
	for _, tt := range tests {
		if got := AsBoolean(tt.in); got != tt.want {
			t.Errorf("AsBoolean(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

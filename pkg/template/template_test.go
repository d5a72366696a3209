package template

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRender(t *testing.T) {
	ctx := map[string]any{
		"variable": "X",
		"name":     "a b",
		"user":     map[string]any{"name": "alice", "tags": []any{"x", "y"}},
		"path":     "a/b?c",
	}

	tests := []struct {
		name     string
		template string
		encode   bool
		want     string
	}{
		{name: "simple reference", template: "kv{variable}kv", want: "kvXkv"},
		{name: "escaped reference", template: "kv{{variable}}kv", want: "kv{variable}kv"},
		{name: "local encode marker", template: "kv{%name}kv", want: "kva%20bkv"},
		{name: "global encode flag", template: "kv{name}kv", encode: true, want: "kva%20bkv"},
		{name: "encode reserved characters", template: "{%path}", want: "a%2Fb%3Fc"},
		{name: "nested key path", template: "hi {user.name}, {user.tags.1}", want: "hi alice, y"},
		{name: "unresolved renders empty", template: "[{missing.key}]", want: "[]"},
		{name: "extra closing braces are literal", template: "{variable}}}", want: "X}}"},
		{name: "no placeholders", template: "plain text", want: "plain text"},
		{name: "stray closing brace", template: "a}b", want: "a}b"},
		{name: "brace without reference", template: "a{ b}{variable}", want: "a{ b}X"},
		{name: "escaped keeps percent marker", template: "{{%name}}", want: "{%name}"},
		{name: "literal is never encoded", template: "a b {variable}", encode: true, want: "a b X"},
		{name: "empty", template: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.template, ctx, tt.encode)
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestRender_EscapeDepth(t *testing.T) {
	for n := 2; n <= 6; n++ {
		tmpl := strings.Repeat("{", n) + "ref" + strings.Repeat("}", n)
		want := strings.Repeat("{", n-1) + "ref" + strings.Repeat("}", n-1)
		if got := Render(tmpl, map[string]any{"ref": "VALUE"}, false); got != want {
			t.Errorf("depth %d: got %q, want %q", n, got, want)
		}
	}
}

func TestParse_Blocks(t *testing.T) {
	tmpl := Parse("a{x}b{%y.z}")
	want := []Block{
		{Text: "a"},
		{Path: "x", Reference: true},
		{Text: "b"},
		{Path: "y.z", Reference: true, Encode: true},
	}
	if diff := cmp.Diff(want, tmpl.Blocks()); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y.z"}, tmpl.References()); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
	if !tmpl.HasReferences() {
		t.Error("expected HasReferences")
	}
	if Parse("no refs").HasReferences() {
		t.Error("expected no references")
	}
}

func TestTemplate_Replayable(t *testing.T) {
	tmpl := Parse("{greeting}, {name}")
	first := tmpl.Render(map[string]any{"greeting": "hello", "name": "a"}, false)
	second := tmpl.Render(map[string]any{"greeting": "bye", "name": "b"}, false)
	if first != "hello, a" || second != "bye, b" {
		t.Errorf("unexpected renders %q, %q", first, second)
	}
}

package curi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantScheme   string
		wantName     string
		wantFragment string
		wantParams   []string
		checkFunc    func(*testing.T, *URI)
	}{
		{
			name:       "scheme and name",
			raw:        "local:username",
			wantScheme: "local",
			wantName:   "username",
		},
		{
			name:       "named parameters keep order",
			raw:        "make:Button+label=Save+enabled=true+color=red",
			wantScheme: "make",
			wantName:   "Button",
			wantParams: []string{"label", "enabled", "color"},
			checkFunc: func(t *testing.T, u *URI) {
				v, _ := u.Params().Get("label")
				if v != "Save" {
					t.Errorf("expected label 'Save', got %v", v)
				}
			},
		},
		{
			name:         "positional parameter binds to context",
			raw:          "post:app#open+view@make:WebView",
			wantScheme:   "post",
			wantName:     "app",
			wantFragment: "open",
			wantParams:   []string{"view"},
			checkFunc: func(t *testing.T, u *URI) {
				p := u.Params()[0]
				if !p.Positional {
					t.Error("expected view to be positional")
				}
				nested, ok := p.Value.(*URI)
				if !ok {
					t.Fatalf("expected nested URI, got %T", p.Value)
				}
				if nested.Scheme() != "make" || nested.Name() != "WebView" {
					t.Errorf("unexpected nested URI %s", nested)
				}
				ctx, ok := u.Context()
				if !ok || ctx != p.Value {
					t.Error("positional value should be the context value")
				}
			},
		},
		{
			name:       "positional parameter without context is a flag",
			raw:        "make:Panel+visible",
			wantScheme: "make",
			wantName:   "Panel",
			wantParams: []string{"visible"},
			checkFunc: func(t *testing.T, u *URI) {
				v, _ := u.Params().Get("visible")
				if v != true {
					t.Errorf("expected true, got %v", v)
				}
			},
		},
		{
			name:       "parenthesised nested uri with parameters",
			raw:        "make:Dialog+body=(make:Label+text=hi)+title=Hello",
			wantScheme: "make",
			wantName:   "Dialog",
			wantParams: []string{"body", "title"},
			checkFunc: func(t *testing.T, u *URI) {
				v, _ := u.Params().Get("body")
				nested, ok := v.(*URI)
				if !ok {
					t.Fatalf("expected nested URI, got %T", v)
				}
				text, _ := nested.Params().Get("text")
				if text != "hi" {
					t.Errorf("expected nested text 'hi', got %v", text)
				}
				if nested.Raw() != "make:Label+text=hi" {
					t.Errorf("unexpected nested raw %q", nested.Raw())
				}
			},
		},
		{
			name:       "percent escapes in literal",
			raw:        "make:Label+text=a%2Bb%40c",
			wantScheme: "make",
			wantName:   "Label",
			wantParams: []string{"text"},
			checkFunc: func(t *testing.T, u *URI) {
				v, _ := u.Params().Get("text")
				if v != "a+b@c" {
					t.Errorf("expected 'a+b@c', got %v", v)
				}
			},
		},
		{
			name:         "relative file name",
			raw:          "file:../views/main.yaml#makes.Home",
			wantScheme:   "file",
			wantName:     "../views/main.yaml",
			wantFragment: "makes.Home",
		},
		{
			name:         "empty name",
			raw:          "post:#close",
			wantScheme:   "post",
			wantName:     "",
			wantFragment: "close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.Scheme() != tt.wantScheme {
				t.Errorf("expected scheme %q, got %q", tt.wantScheme, u.Scheme())
			}
			if u.Name() != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, u.Name())
			}
			if frag, _ := u.Fragment(); frag != tt.wantFragment {
				t.Errorf("expected fragment %q, got %q", tt.wantFragment, frag)
			}
			if diff := cmp.Diff(tt.wantParams, u.Params().Names(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
			if u.Raw() != tt.raw {
				t.Errorf("expected raw %q, got %q", tt.raw, u.Raw())
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, u)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "no scheme", raw: "username"},
		{name: "leading colon", raw: ":name"},
		{name: "digit scheme", raw: "1abc:name"},
		{name: "empty parameter", raw: "make:A++b=1"},
		{name: "parameter without name", raw: "make:A+=1"},
		{name: "unclosed paren", raw: "make:A+b=(make:C+d=1"},
		{name: "stray paren", raw: "make:A+b=c)"},
		{name: "empty context", raw: "post:a+view@"},
		{name: "bad escape", raw: "make:A+b=%zz"},
		{name: "malformed nested", raw: "make:A+b=(x:y+)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Errorf("expected *SyntaxError, got %T", err)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"local:username",
		"make:Button+label=Save+enabled=true",
		"post:app#open+view@make:WebView",
		"post:app#open+view+extra=1@make:WebView+url=(local:home)",
		"make:Dialog+body=(make:Label+text=hi)+title=Hello",
		"make:Label+text=a%2Bb%40c",
		"make:Label+text=%28paren%29",
		"make:Label+text=note%3A%20hello",
		"file:../views/main.yaml#makes.Home",
		"make:Panel+visible",
		"repr:string+value=(make:Counter+start=1)",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			first := MustParse(raw)
			second, err := Parse(first.String())
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", first.String(), err)
			}
			if !Equal(first, second) {
				t.Errorf("round trip changed structure: %q -> %q", raw, first.String())
			}
		})
	}
}

func TestParse_LiteralThatLooksLikeURI(t *testing.T) {
	u := New("make", "Label", Params{{Name: "text", Value: "note: hello"}})
	reparsed := MustParse(u.String())
	v, _ := reparsed.Params().Get("text")
	if v != "note: hello" {
		t.Errorf("expected literal to survive round trip, got %#v", v)
	}
}

func TestURI_DerivationIsImmutable(t *testing.T) {
	original := MustParse("file:views/main.yaml+mode=a")

	renamed := original.WithName("views/other.yaml")
	if original.Name() != "views/main.yaml" {
		t.Errorf("WithName mutated original: %s", original.Name())
	}
	if renamed.Name() != "views/other.yaml" {
		t.Errorf("expected new name, got %s", renamed.Name())
	}
	if renamed == original {
		t.Error("WithName must return a new instance")
	}

	params := original.Params()
	params[0].Value = "b"
	if v, _ := original.Params().Get("mode"); v != "a" {
		t.Errorf("Params() exposed internal state, mode=%v", v)
	}

	withFragment := original.WithFragment("x")
	if _, ok := original.Fragment(); ok {
		t.Error("WithFragment mutated original")
	}
	if withFragment.Raw() != "file:views/main.yaml#x+mode=a" {
		t.Errorf("unexpected raw %q", withFragment.Raw())
	}
}

func TestLooksLikeURI(t *testing.T) {
	tests := map[string]bool{
		"make:Button":  true,
		"x-y.z:abc":    true,
		"12:30":        false,
		"plain text":   false,
		"":             false,
		"a b:c":        false,
		"http://x.org": true,
	}
	for in, want := range tests {
		if got := LooksLikeURI(in); got != want {
			t.Errorf("LooksLikeURI(%q) = %v, want %v", in, got, want)
		}
	}
}

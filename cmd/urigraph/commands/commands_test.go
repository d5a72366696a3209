package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/urigraph/pkg/graph"
	"github.com/openfroyo/urigraph/pkg/policy"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeJSON(t *testing.T, out string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return v
}

const screens = `makes:
  Greeting:
    name: World
    text: "Hello {name}"
  Settings:
    db: "file:db.yaml#primary"
`

const db = `primary:
  host: db.internal
  port: 5432
`

func TestResolve_MakeTemplate(t *testing.T) {
	dir := t.TempDir()
	docs := writeFile(t, dir, "screens.yaml", screens)

	out, err := run(t, "resolve", "-d", docs, "make:Greeting+name=Ada")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[string]any{"name": "Ada", "text": "Hello Ada"}
	if diff := cmp.Diff(want, decodeJSON(t, out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_RelativeFileFromTemplate(t *testing.T) {
	dir := t.TempDir()
	docs := writeFile(t, dir, "screens.yaml", screens)
	writeFile(t, dir, "db.yaml", db)

	out, err := run(t, "resolve", "-d", docs, "make:Settings")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[string]any{"db": map[string]any{"host": "db.internal", "port": float64(5432)}}
	if diff := cmp.Diff(want, decodeJSON(t, out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Explain(t *testing.T) {
	out, err := run(t, "resolve", "--explain", "post:navigate#main/content+screen=(make:Home+title=Start)")
	if err != nil {
		t.Fatalf("resolve --explain: %v", err)
	}
	got := decodeJSON(t, out).(map[string]any)
	if got["scheme"] != "post" || got["fragment"] != "main/content" {
		t.Errorf("unexpected parse %v", got)
	}
	params := got["params"].([]any)
	nested := params[0].(map[string]any)["value"].(map[string]any)
	if nested["scheme"] != "make" || nested["name"] != "Home" {
		t.Errorf("nested parse = %v", nested)
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := run(t, "resolve", "::bad"); err == nil {
		t.Error("expected malformed uri error")
	}
	if _, err := run(t, "resolve", "nope:x"); err == nil || !strings.Contains(err.Error(), "unknown_scheme") {
		t.Errorf("expected unknown scheme error, got %v", err)
	}
}

func TestResolve_PolicyDenied(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secrets.rego", `package urigraph

import rego.v1

deny contains "secrets are off limits" if {
	input.scheme == "local"
	startswith(input.name, "secret.")
}
`)

	_, err := run(t, "resolve", "--allow-policy", dir, "local:secret.token")
	if !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	out, err := run(t, "resolve", "--allow-policy", dir, "-o", "text", "repr:int+value=42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.TrimSpace(out) != "42" {
		t.Errorf("output = %q", out)
	}
}

func TestLocal_Lifecycle(t *testing.T) {
	store := filepath.Join(t.TempDir(), "local.db")

	if _, err := run(t, "local", "set", "--store", store, "db.port", "5432"); err != nil {
		t.Fatalf("local set: %v", err)
	}
	if _, err := run(t, "local", "set", "--store", store, "--string", "db.name", "007"); err != nil {
		t.Fatalf("local set --string: %v", err)
	}

	out, err := run(t, "local", "get", "--store", store, "db.port")
	if err != nil {
		t.Fatalf("local get: %v", err)
	}
	if strings.TrimSpace(out) != "5432" {
		t.Errorf("get db.port = %q", out)
	}

	out, err = run(t, "resolve", "--store", store, "-o", "text", "local:db.name")
	if err != nil {
		t.Fatalf("resolve local: %v", err)
	}
	if strings.TrimSpace(out) != "007" {
		t.Errorf("resolve local:db.name = %q", out)
	}

	out, err = run(t, "local", "list", "--store", store, "-o", "text", "db.")
	if err != nil {
		t.Fatalf("local list: %v", err)
	}
	if !strings.Contains(out, "db.name") || !strings.Contains(out, "db.port") {
		t.Errorf("list output = %q", out)
	}

	if _, err := run(t, "local", "delete", "--store", store, "db.port"); err != nil {
		t.Fatalf("local delete: %v", err)
	}
	if _, err := run(t, "local", "get", "--store", store, "db.port"); err == nil {
		t.Error("expected error for deleted value")
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	site := writeFile(t, dir, "site.yaml", "host: example.com\nsearch:\n  term: a b\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "plain", args: []string{"https://{host}/"}, want: "https://example.com/"},
		{name: "encoded", args: []string{"--encode", "q={search.term}"}, want: "q=a%20b"},
		{name: "missing key", args: []string{"[{nope}]"}, want: "[]"},
		{name: "references", args: []string{"--references", "{host}/{search.term}"}, want: "host\nsearch.term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"render", "--context", site}, tt.args...)...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeypath(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "db.yaml", db)

	out, err := run(t, "keypath", "--document", doc, "-o", "text", "primary.host")
	if err != nil {
		t.Fatalf("keypath: %v", err)
	}
	if strings.TrimSpace(out) != "db.internal" {
		t.Errorf("keypath = %q", out)
	}

	if _, err := run(t, "keypath", "--document", doc, "primary.user"); err == nil {
		t.Error("expected error for missing key path")
	}
}

func TestPolicy_Eval(t *testing.T) {
	out, err := run(t, "policy", "eval", "file:../../etc/passwd")
	if err != nil {
		t.Fatalf("policy eval: %v", err)
	}
	got := decodeJSON(t, out).(map[string]any)
	if got["allowed"] != false {
		t.Errorf("decision = %v", got)
	}

	out, err = run(t, "policy", "list", "-o", "text")
	if err != nil {
		t.Fatalf("policy list: %v", err)
	}
	if !strings.Contains(out, policy.BuiltinPolicyName) || !strings.Contains(out, "(built-in)") {
		t.Errorf("policy list = %q", out)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	docs := writeFile(t, dir, "screens.yaml", screens)
	writeFile(t, dir, "db.yaml", db)

	out, err := run(t, "check", "-d", docs)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"Greeting", "Settings", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}

	cyclic := writeFile(t, dir, "cyclic.yaml", "makes:\n  A: {b: 'make:B'}\n  B: {a: 'make:A'}\n")
	if _, err := run(t, "check", "-d", cyclic); !errors.Is(err, graph.ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Resolver.MaxDepth != 64 {
		t.Errorf("MaxDepth = %d, want 64", s.Resolver.MaxDepth)
	}
	if s.Resolver.PostDelimiter != "/" {
		t.Errorf("PostDelimiter = %q, want /", s.Resolver.PostDelimiter)
	}
	if s.Store.Driver != "memory" {
		t.Errorf("Driver = %q, want memory", s.Store.Driver)
	}
	if s.Policy.Query != "data.urigraph.allow" {
		t.Errorf("Query = %q", s.Policy.Query)
	}
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urigraph.yaml")
	data := `
resolver:
  max_depth: 8
  post_delimiter: "."
  documents: [makes.yaml]
store:
  driver: sqlite
  path: /tmp/urigraph.db
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Resolver.MaxDepth != 8 || s.Resolver.PostDelimiter != "." {
		t.Errorf("resolver = %+v", s.Resolver)
	}
	if s.Store.Driver != "sqlite" || s.Store.Path != "/tmp/urigraph.db" {
		t.Errorf("store = %+v", s.Store)
	}
	if s.Telemetry.ServiceName != "urigraph" {
		t.Errorf("telemetry defaults lost: %+v", s.Telemetry)
	}
}

func TestSettings_ValidateReportsEveryProblem(t *testing.T) {
	s := DefaultSettings()
	s.Resolver.MaxDepth = 0
	s.Resolver.PostDelimiter = ""
	s.Store.Driver = "sqlite"
	s.Telemetry.Logging.Level = "loud"

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error")
	}

	paths := make(map[string]bool)
	for _, ve := range ValidationErrors(err) {
		paths[ve.Path] = true
	}
	for _, want := range []string{
		"Settings.Resolver.MaxDepth",
		"Settings.Resolver.PostDelimiter",
		"Settings.Store.Path",
		"Settings.Telemetry",
	} {
		if !paths[want] {
			t.Errorf("missing validation error for %s in %v", want, err)
		}
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("store:\n  driver: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(bad); err == nil || !strings.Contains(err.Error(), "invalid settings") {
		t.Errorf("LoadSettings(bad) error = %v", err)
	}

	if _, err := LoadSettings(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing settings file")
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "makes.yaml")
	if err := os.WriteFile(path, []byte("makes:\n  db: {port: 1}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan error, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, newTestLoader(), path,
		WithDebounce(100*time.Millisecond),
		WithReloadHook(func(_ *Document, err error) { reloads <- err }),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if got, _ := w.Template("db"); got.(map[string]any)["port"] != 1 {
		t.Fatalf("initial template = %v", got)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	write := func(data string) error {
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		select {
		case err := <-reloads:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reload")
			return nil
		}
	}

	if err := write("makes:\n  db: {port: 2}\n"); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got, _ := w.Template("db"); got.(map[string]any)["port"] != 2 {
		t.Errorf("template after reload = %v", got)
	}

	// A broken edit keeps the last good document.
	if err := write("makes:\n  db: 3\n"); err == nil {
		t.Fatal("expected reload error for invalid document")
	}
	if got, _ := w.Template("db"); got.(map[string]any)["port"] != 2 {
		t.Errorf("template after failed reload = %v", got)
	}
}

func TestNewWatcher_InitialLoadFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewWatcher(context.Background(), newTestLoader(), path); err == nil {
		t.Fatal("expected error for missing document")
	}
}

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewLocalStorage(base)

	path, err := s.Save(ctx, "My/Game", "d1.json", strings.NewReader(`{"sections":[]}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if want := filepath.Join(base, "My_Game", "d1.json"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	rc, err := s.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != `{"sections":[]}` {
		t.Fatalf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}

	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
		t.Fatal("empty project dir should be removed")
	}
	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())
	if _, err := s.Save(ctx, "Game", "a.csv", strings.NewReader("old content")); err != nil {
		t.Fatal(err)
	}
	path, err := s.Save(ctx, "Game", "a.csv", strings.NewReader("new"))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestSaveRejectsPaths(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	for _, name := range []string{"../escape.json", "sub/dir.json", ""} {
		if _, err := s.Save(context.Background(), "Game", name, strings.NewReader("x")); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocalStorage(t.TempDir()).Save(ctx, "Game", "a.json", strings.NewReader("x")); err == nil {
		t.Fatal("expected context error")
	}
}

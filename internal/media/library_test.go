package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logx "crowpost/pkg/logx"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListAvailableFiltersByFormat(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "photo.jpg")
	touch(t, dir, "clip.MP4")
	touch(t, dir, "notes.txt")
	touch(t, dir, "archive.zip")
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	lib := NewLibrary(Config{LibraryDir: dir}, logx.Nop())
	files, err := lib.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}
	for _, f := range files {
		base := filepath.Base(f)
		if base != "photo.jpg" && base != "clip.MP4" {
			t.Fatalf("unexpected file %q", base)
		}
	}
}

func TestListAvailableCustomFormats(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg")
	touch(t, dir, "b.png")

	lib := NewLibrary(Config{LibraryDir: dir, Formats: []string{"png"}}, logx.Nop())
	files, err := lib.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "b.png" {
		t.Fatalf("got %v, want only b.png", files)
	}
}

func TestListAvailableMissingDir(t *testing.T) {
	lib := NewLibrary(Config{LibraryDir: filepath.Join(t.TempDir(), "nope")}, logx.Nop())
	if _, err := lib.ListAvailable(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"clip.mp4":   true,
		"clip.MOV":   true,
		"photo.jpg":  false,
		"photo.webp": false,
		"noext":      false,
	}
	for path, want := range cases {
		if got := IsVideo(path); got != want {
			t.Fatalf("IsVideo(%q) = %v, want %v", path, got, want)
		}
	}
}

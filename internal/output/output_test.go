package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureIsIdempotent(t *testing.T) {
	dir := New(filepath.Join(t.TempDir(), "audio_output"), "")
	if err := dir.Ensure(); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := dir.Ensure(); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if info, err := os.Stat(dir.Path); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir.Path)
	}
}

func TestWritePart(t *testing.T) {
	dir := New(t.TempDir(), "")
	path, err := dir.WritePart(3, []byte("audio"))
	if err != nil {
		t.Fatalf("write part: %v", err)
	}
	if filepath.Base(path) != "part_3.mp3" {
		t.Fatalf("unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "audio" {
		t.Fatalf("read back %q, %v", data, err)
	}
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the part file, got %d entries", len(entries))
	}
}

func TestWritePartOverwrites(t *testing.T) {
	dir := New(t.TempDir(), "")
	if _, err := dir.WritePart(1, []byte("old")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	path, err := dir.WritePart(1, []byte("new"))
	if err != nil {
		t.Fatalf("rewrite part: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "new" {
		t.Fatalf("expected overwritten content, got %q", data)
	}
}

func TestWritePartMissingDir(t *testing.T) {
	dir := New(filepath.Join(t.TempDir(), "never-created"), "")
	if _, err := dir.WritePart(1, []byte("x")); err == nil {
		t.Fatal("expected error when directory is missing")
	}
}

func TestCustomPattern(t *testing.T) {
	dir := New("out", "chapter-%03d.mp3")
	if got, want := dir.PartPath(7), filepath.Join("out", "chapter-007.mp3"); got != want {
		t.Fatalf("PartPath = %s, want %s", got, want)
	}
}

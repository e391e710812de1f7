package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writePDF(t *testing.T, pages ...string) string {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestPDFExtractText(t *testing.T) {
	path := writePDF(t, "Hello narration.", "Second page here.")
	text, err := NewPDF(0, newLogger()).ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	got := squash(text)
	if !strings.Contains(got, "Hellonarration.") || !strings.Contains(got, "Secondpagehere.") {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Index(got, "Hello") > strings.Index(got, "Second") {
		t.Fatalf("pages out of order: %q", text)
	}
	if strings.Count(text, "\n") < 2 {
		t.Fatalf("expected a newline per page, got %q", text)
	}
}

func TestPDFMaxPages(t *testing.T) {
	path := writePDF(t, "First.", "Second.")
	text, err := NewPDF(1, newLogger()).ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(text, "Second") {
		t.Fatalf("expected only the first page, got %q", text)
	}
}

func TestPDFMissingFile(t *testing.T) {
	_, err := NewPDF(0, newLogger()).ExtractText(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestPDFNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("just some text, not a pdf"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := NewPDF(0, newLogger()).ExtractText(context.Background(), path); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

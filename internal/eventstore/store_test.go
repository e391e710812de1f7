package eventstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loqalabs/loqa-narrate/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.EventStoreConfig{RetentionMode: "ephemeral", Path: filepath.Join(dir, "data", "events.db")}
	es, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })
	if es.Enabled() {
		t.Fatal("ephemeral store must not be enabled")
	}
	if err := es.BeginRun(ctx, "run", "doc.pdf", "alloy"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); !os.IsNotExist(err) {
		t.Fatal("ephemeral store must not touch the filesystem")
	}
}

func TestAppendAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.EventStoreConfig{Path: filepath.Join(tmp, "events.db"), RetentionMode: "session"}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	ctx := context.Background()
	runID := "run-123"
	if err := es.BeginRun(ctx, runID, "book.pdf", "nova"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := es.AppendEvent(ctx, Event{RunID: runID, Type: "chunk.written", ChunkIndex: 1, Payload: []byte("hello")}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if err := es.AppendEvent(ctx, Event{RunID: runID, Type: "chunk.failed", ChunkIndex: 2}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	if err := es.UpdateRun(ctx, runID, "completed", 2, 1, 1); err != nil {
		t.Fatalf("update run: %v", err)
	}

	events, err := es.ListRunEvents(ctx, runID, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if string(events[0].Payload) != "hello" || events[1].ChunkIndex != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}

	runs, err := es.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Document != "book.pdf" || r.Voice != "nova" || r.Status != "completed" || r.Chunks != 2 || r.Written != 1 || r.Failed != 1 {
		t.Fatalf("unexpected run: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be parsed")
	}
}

func TestPruneByDaysAndRuns(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.EventStoreConfig{Path: filepath.Join(tmp, "events.db"), RetentionMode: "persistent", RetentionDays: 1, MaxRuns: 1}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	es.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := es.BeginRun(context.Background(), "old-run", "a.pdf", "alloy"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := es.AppendEvent(context.Background(), Event{RunID: "old-run", Type: "note"}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	es.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := es.BeginRun(context.Background(), "new-run", "b.pdf", "echo"); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := es.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := es.ListRunEvents(context.Background(), "old-run", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected old run pruned")
	}
	runs, err := es.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "new-run" {
		t.Fatalf("expected only new-run to remain, got %+v", runs)
	}
}

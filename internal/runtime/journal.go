package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loqalabs/loqa-narrate/internal/eventstore"
	"github.com/loqalabs/loqa-narrate/internal/protocol"
)

type runCounts struct {
	chunks  int
	written int
	failed  int
}

// journal mirrors pipeline events into the event store and keeps the run row
// counters current.
type journal struct {
	store *eventstore.Store
	log   *slog.Logger

	mu   sync.Mutex
	runs map[string]*runCounts
}

func newJournal(store *eventstore.Store, log *slog.Logger) *journal {
	return &journal{
		store: store,
		log:   log.With(slog.String("component", "journal")),
		runs:  make(map[string]*runCounts),
	}
}

func (j *journal) Record(ctx context.Context, evt protocol.Event) {
	if !j.store.Enabled() {
		return
	}

	if evt.Type == protocol.EventRunStarted {
		if err := j.store.BeginRun(ctx, evt.RunID, evt.Document, evt.Voice); err != nil {
			j.warn("begin run", evt, err)
		}
	}

	payload, err := protocol.Encode(evt)
	if err != nil {
		j.warn("encode event", evt, err)
	}
	if err := j.store.AppendEvent(ctx, eventstore.Event{
		RunID:      evt.RunID,
		Type:       string(evt.Type),
		ChunkIndex: evt.ChunkIndex,
		Payload:    payload,
		CreatedAt:  evt.Timestamp,
	}); err != nil {
		j.warn("append event", evt, err)
	}

	status, counts, done := j.track(evt)
	if !done {
		return
	}
	if err := j.store.UpdateRun(ctx, evt.RunID, status, counts.chunks, counts.written, counts.failed); err != nil {
		j.warn("update run", evt, err)
	}
}

// track updates the counters of evt's run and reports the final status once
// the run has ended.
func (j *journal) track(evt protocol.Event) (string, runCounts, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	counts, ok := j.runs[evt.RunID]
	if !ok {
		counts = &runCounts{}
		j.runs[evt.RunID] = counts
	}

	var status string
	switch evt.Type {
	case protocol.EventTextChunked:
		counts.chunks = evt.ChunkCount
	case protocol.EventChunkWritten:
		counts.written++
	case protocol.EventChunkFailed:
		counts.failed++
	case protocol.EventRunCompleted:
		status = "completed"
	case protocol.EventExtractFailed, protocol.EventRunFailed:
		status = "failed"
	case protocol.EventRunInterrupted:
		status = "interrupted"
	}
	if status == "" {
		return "", runCounts{}, false
	}
	delete(j.runs, evt.RunID)
	return status, *counts, true
}

func (j *journal) warn(op string, evt protocol.Event, err error) {
	j.log.Warn("journal "+op+" failed",
		slog.String("run_id", evt.RunID),
		slog.String("type", string(evt.Type)),
		slog.String("error", err.Error()))
}

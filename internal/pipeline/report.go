package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-narrate/internal/protocol"
	"github.com/loqalabs/loqa-narrate/internal/tts"
)

var (
	// ErrExtraction aborts a run before any chunk is produced.
	ErrExtraction = errors.New("text extraction failed")
	// ErrNoText is returned when extraction succeeds with an empty result.
	ErrNoText = fmt.Errorf("%w: document contains no text", ErrExtraction)
	// ErrOutputDir aborts a run when the output directory cannot be created.
	ErrOutputDir = errors.New("output directory unavailable")
)

// Document is the source file of a run.
type Document struct {
	Path string
}

// ChunkFailure records a chunk that produced no audio file.
type ChunkFailure struct {
	Index int
	Stage protocol.Stage
	Err   error
}

func (f ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d %s: %v", f.Index, f.Stage, f.Err)
}

func (f ChunkFailure) Unwrap() error { return f.Err }

// Report summarises a run. Success is true once extraction succeeded and
// every chunk was attempted, whatever the per-chunk outcomes. Duration
// includes the pauses between chunks but no trailing pause.
type Report struct {
	RunID     string
	Document  string
	Voice     tts.Voice
	OutputDir string
	Chunks    int
	Written   []string
	Failures  []ChunkFailure
	Success   bool
	Duration  time.Duration
}

// Failed reports whether chunk index has a recorded failure.
func (r Report) Failed(index int) bool {
	for _, f := range r.Failures {
		if f.Index == index {
			return true
		}
	}
	return false
}

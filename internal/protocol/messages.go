package protocol

import "time"

// EventType names a step in a conversion run.
type EventType string

const (
	EventRunStarted     EventType = "run.started"
	EventExtractFailed  EventType = "run.extract_failed"
	EventTextChunked    EventType = "run.chunked"
	EventChunkStarted   EventType = "chunk.started"
	EventChunkWritten   EventType = "chunk.written"
	EventChunkFailed    EventType = "chunk.failed"
	EventRunCompleted   EventType = "run.completed"
	EventRunFailed      EventType = "run.failed"
	EventRunInterrupted EventType = "run.interrupted"
)

// Stage identifies where a chunk failed.
type Stage string

const (
	StageSynthesis Stage = "synthesis"
	StageWrite     Stage = "write"
)

// Event is a progress record for one conversion run. It is stored in the
// journal and published on the bus.
type Event struct {
	RunID      string    `json:"run_id"`
	Type       EventType `json:"type"`
	Document   string    `json:"document,omitempty"`
	Voice      string    `json:"voice,omitempty"`
	ChunkIndex int       `json:"chunk_index,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	Chars      int       `json:"chars,omitempty"`
	Bytes      int       `json:"bytes,omitempty"`
	File       string    `json:"file,omitempty"`
	Stage      Stage     `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Subject returns the bus subject for an event under prefix, for example
// "narrate.chunk.written".
func Subject(prefix string, t EventType) string {
	return prefix + "." + string(t)
}

// SubjectWildcard matches every event published under prefix.
func SubjectWildcard(prefix string) string {
	return prefix + ".>"
}

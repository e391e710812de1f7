package protocol

import (
	"testing"
	"time"
)

func TestEncodeDecode(t *testing.T) {
	evt := Event{
		RunID:      "run-1",
		Type:       EventChunkFailed,
		ChunkIndex: 2,
		ChunkCount: 3,
		Stage:      StageSynthesis,
		Error:      "boom",
		Timestamp:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := Encode(evt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Timestamp.Equal(evt.Timestamp) {
		t.Fatalf("timestamp %v, want %v", got.Timestamp, evt.Timestamp)
	}
	got.Timestamp = evt.Timestamp
	if got != evt {
		t.Fatalf("decoded %+v, want %+v", got, evt)
	}
}

func TestDecodeRequiresType(t *testing.T) {
	if _, err := Decode([]byte(`{"run_id":"x"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("narrate", EventChunkWritten); got != "narrate.chunk.written" {
		t.Fatalf("Subject() = %s", got)
	}
	if got := SubjectWildcard("narrate"); got != "narrate.>" {
		t.Fatalf("SubjectWildcard() = %s", got)
	}
}

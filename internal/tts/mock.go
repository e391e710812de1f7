package tts

import (
	"context"
	"fmt"
	"time"
)

type mockSynth struct {
	latency time.Duration
}

// NewMockSynth returns a backend that produces a small deterministic payload
// per request without calling any service.
func NewMockSynth(latency time.Duration) Synthesizer {
	return &mockSynth{latency: latency}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (Audio, error) {
	if m.latency > 0 {
		select {
		case <-ctx.Done():
			return Audio{}, ctx.Err()
		case <-time.After(m.latency):
		}
	}
	payload := fmt.Sprintf("mock-audio voice=%s index=%d chars=%d\n", req.Voice, req.Index, len(req.Text))
	return Audio{Voice: req.Voice, Format: "mp3", Data: []byte(payload)}, nil
}

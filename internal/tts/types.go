package tts

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a backend completes without producing audio.
var ErrEmptyAudio = errors.New("synthesizer returned no audio")

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	RunID string
	Index int
	Text  string
	Voice Voice
}

// Audio is the encoded result for one request.
type Audio struct {
	Voice  Voice
	Format string
	Data   []byte
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (Audio, error)
}

// Func adapts a plain function to Synthesizer.
type Func func(ctx context.Context, req SynthRequest) (Audio, error)

func (f Func) Synthesize(ctx context.Context, req SynthRequest) (Audio, error) {
	return f(ctx, req)
}

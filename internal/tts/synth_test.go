package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMockSynth(t *testing.T) {
	synth := NewMockSynth(0)
	audio, err := synth.Synthesize(context.Background(), SynthRequest{Index: 2, Text: "hello.", Voice: VoiceEcho})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio.Voice != VoiceEcho || len(audio.Data) == 0 {
		t.Fatalf("unexpected audio: %+v", audio)
	}
}

func TestMockSynthHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockSynth(time.Second).Synthesize(ctx, SynthRequest{Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tts.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecSynth(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo '{"audio_base64":"aGVs"}'
echo '{"audio_base64":"bG8=","final":true}'
`)
	synth, err := NewExecSynth("sh "+script, "")
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}
	audio, err := synth.Synthesize(context.Background(), SynthRequest{Text: "hi.", Voice: VoiceNova})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio.Data) != "hello" {
		t.Fatalf("audio = %q, want %q", audio.Data, "hello")
	}
	if audio.Format != "mp3" || audio.Voice != VoiceNova {
		t.Fatalf("unexpected metadata: %+v", audio)
	}
}

func TestExecSynthFailure(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo boom >&2
exit 3
`)
	synth, err := NewExecSynth("sh "+script, "mp3")
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}
	_, err = synth.Synthesize(context.Background(), SynthRequest{Text: "hi."})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestExecSynthStopsCommandOnBadOutput(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo garbage
i=0
while [ $i -lt 5000 ]; do printf '%0100d' 0; i=$((i+1)); done
echo
`)
	synth, err := NewExecSynth("sh "+script, "mp3")
	if err != nil {
		t.Fatalf("new exec synth: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := synth.Synthesize(context.Background(), SynthRequest{Text: "hi."})
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "decode tts command output") {
			t.Fatalf("expected decode error, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("synthesize blocked on a command that kept writing")
	}
}

func TestExecSynthEmptyCommand(t *testing.T) {
	if _, err := NewExecSynth("   ", "mp3"); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestOpenAISynth(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	t.Cleanup(srv.Close)

	synth, err := NewOpenAISynth(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("new openai synth: %v", err)
	}
	audio, err := synth.Synthesize(context.Background(), SynthRequest{Text: "Hello there.", Voice: VoiceFable})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio.Data) != "ID3-audio" {
		t.Fatalf("unexpected audio %q", audio.Data)
	}
	if got["model"] != "tts-1" || got["voice"] != "fable" || got["input"] != "Hello there." {
		t.Fatalf("unexpected request body: %v", got)
	}
	if got["response_format"] != "mp3" {
		t.Fatalf("expected mp3 response format, got %v", got["response_format"])
	}
}

func TestOpenAISynthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	t.Cleanup(srv.Close)

	synth, err := NewOpenAISynth(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("new openai synth: %v", err)
	}
	if _, err := synth.Synthesize(context.Background(), SynthRequest{Text: "x.", Voice: VoiceAlloy}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestOpenAISynthRequiresKey(t *testing.T) {
	if _, err := NewOpenAISynth(OpenAIConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

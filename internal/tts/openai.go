package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	ResponseFormat string
	Speed          float64
	// Timeout bounds a single request; zero leaves it to the HTTP client.
	Timeout time.Duration
}

type openAISynth struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAISynth builds a backend around one shared API client.
func NewOpenAISynth(cfg OpenAIConfig) (Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = string(openai.SpeechResponseFormatMp3)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &openAISynth{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (s *openAISynth) Synthesize(ctx context.Context, req SynthRequest) (Audio, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormat(s.cfg.ResponseFormat),
		Speed:          s.cfg.Speed,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("read openai speech: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, ErrEmptyAudio
	}
	return Audio{Voice: req.Voice, Format: s.cfg.ResponseFormat, Data: data}, nil
}

package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// execSynth hands each request to an external program. The program reads one
// JSON request on stdin and answers with JSON lines carrying base64 audio.
type execSynth struct {
	cmd    []string
	format string
}

const waitDelay = 2 * time.Second

type execRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Index  int    `json:"index"`
	Format string `json:"format"`
}

type execResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Final       bool   `json:"final"`
	Error       string `json:"error,omitempty"`
}

func NewExecSynth(command, format string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	if format == "" {
		format = "mp3"
	}
	return &execSynth{cmd: args, format: format}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req SynthRequest) (Audio, error) {
	data, err := json.Marshal(execRequest{
		Text:   req.Text,
		Voice:  req.Voice.String(),
		Index:  req.Index,
		Format: e.format,
	})
	if err != nil {
		return Audio{}, err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	// Grandchildren may keep stderr open after the command is killed.
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Audio{}, err
	}
	if err := cmd.Start(); err != nil {
		return Audio{}, fmt.Errorf("start tts command: %w", err)
	}

	// abort stops the command before waiting so a child still writing to a
	// full stdout pipe cannot block Wait.
	abort := func(err error) (Audio, error) {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Audio{}, err
	}

	var (
		audio bytes.Buffer
		final bool
	)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || final {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return abort(fmt.Errorf("decode tts command output: %w", err))
		}
		if resp.Error != "" {
			return abort(fmt.Errorf("tts command: %s", resp.Error))
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
		if err != nil {
			return abort(fmt.Errorf("decode tts audio: %w", err))
		}
		audio.Write(chunk)
		final = resp.Final
	}
	if err := scanner.Err(); err != nil {
		return abort(err)
	}
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Audio{}, fmt.Errorf("tts command: %w: %s", err, msg)
		}
		return Audio{}, fmt.Errorf("tts command: %w", err)
	}
	if audio.Len() == 0 {
		return Audio{}, ErrEmptyAudio
	}
	return Audio{Voice: req.Voice, Format: e.format, Data: audio.Bytes()}, nil
}

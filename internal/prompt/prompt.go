// Package prompt asks the user for the document and the voice when they are
// not given on the command line.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/loqalabs/loqa-narrate/internal/tts"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter collects the inputs of a conversion.
type Prompter interface {
	DocumentPath(ctx context.Context) (string, error)
	Voice(ctx context.Context) (tts.Voice, error)
}

// Form prompts with huh forms on a terminal. Without one it prints plain
// prompts and reads answers line by line from a single buffered reader, so
// answers piped in together reach the right prompt.
type Form struct {
	in         io.Reader
	lines      *bufio.Reader
	out        io.Writer
	accessible bool
}

func New(in io.Reader, out io.Writer) *Form {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	accessible := !isTerminal(in)
	f := &Form{
		in:         in,
		out:        out,
		accessible: accessible,
	}
	if accessible {
		f.lines = bufio.NewReader(in)
	}
	return f
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Accessible reports whether prompts run in line mode.
func (f *Form) Accessible() bool {
	return f.accessible
}

const (
	pathPrompt  = "Enter the path to your PDF file: "
	voiceHeader = "Available voices:"
)

func choicePrompt() string {
	return fmt.Sprintf("Enter the number of your choice (1-%d): ", len(tts.Voices))
}

func (f *Form) DocumentPath(ctx context.Context) (string, error) {
	if f.accessible {
		path, err := f.ask(ctx, pathPrompt)
		if err != nil {
			return "", err
		}
		return CleanPath(path), nil
	}

	var path string
	input := huh.NewInput().
		Title(strings.TrimSpace(pathPrompt)).
		Value(&path)
	if err := f.run(ctx, input); err != nil {
		return "", err
	}
	return CleanPath(path), nil
}

// Voice shows the numbered voice menu. Any answer other than 1 to 6 selects
// the default voice.
func (f *Form) Voice(ctx context.Context) (tts.Voice, error) {
	if f.accessible {
		fmt.Fprintf(f.out, "\n%s\n%s", voiceHeader, tts.Menu())
		choice, err := f.ask(ctx, choicePrompt())
		if errors.Is(err, ErrAborted) {
			return tts.DefaultVoice, nil
		}
		if err != nil {
			return tts.DefaultVoice, err
		}
		return tts.ParseVoiceChoice(choice), nil
	}

	var choice string
	input := huh.NewInput().
		Title(voiceHeader).
		Description(strings.TrimRight(tts.Menu(), "\n")).
		Prompt(choicePrompt()).
		Value(&choice)
	if err := f.run(ctx, input); err != nil {
		return tts.DefaultVoice, err
	}
	return tts.ParseVoiceChoice(choice), nil
}

// ask prints prompt and reads one line. End of input with nothing typed
// counts as an abort.
func (f *Form) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(f.out, prompt)
	line, err := f.lines.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", ErrAborted
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (f *Form) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithInput(f.in).
		WithOutput(f.out)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// CleanPath trims whitespace and the quotes terminals add when a file is
// dragged onto them.
func CleanPath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 {
		if (path[0] == '"' && path[len(path)-1] == '"') || (path[0] == '\'' && path[len(path)-1] == '\'') {
			path = path[1 : len(path)-1]
		}
	}
	return path
}

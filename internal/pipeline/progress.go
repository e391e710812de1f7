package pipeline

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Progress prints the user-facing status lines of a run.
type Progress struct {
	out     io.Writer
	stage   lipgloss.Style
	step    lipgloss.Style
	failure lipgloss.Style
	done    lipgloss.Style
}

func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}
	r := lipgloss.NewRenderer(w)
	return &Progress{
		out:     w,
		stage:   r.NewStyle().Bold(true),
		step:    r.NewStyle().Faint(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		done:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}

func (p *Progress) Stage(format string, args ...any) { p.line(p.stage, format, args...) }

func (p *Progress) Step(format string, args ...any) { p.line(p.step, format, args...) }

func (p *Progress) Failure(format string, args ...any) { p.line(p.failure, format, args...) }

func (p *Progress) Done(format string, args ...any) { p.line(p.done, format, args...) }

func (p *Progress) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

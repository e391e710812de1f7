package runtime

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"github.com/loqalabs/loqa-narrate/internal/config"
)

// NewLogger builds the process logger. Text output goes through
// charmbracelet/log so it reads well next to the progress lines; json keeps
// the structured handler.
func NewLogger(cfg config.TelemetryConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil {
		level = charmlog.WarnLevel
	}

	if cfg.LogFormat == "json" {
		// charmlog levels share slog's numeric values.
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.Level(level)}))
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return slog.New(handler)
}

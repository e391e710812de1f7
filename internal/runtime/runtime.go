// Package runtime wires configuration into a ready-to-use narrator: telemetry,
// the run journal, the optional progress bus and status server, and the
// conversion pipeline itself.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-narrate/internal/bus"
	"github.com/loqalabs/loqa-narrate/internal/chunker"
	"github.com/loqalabs/loqa-narrate/internal/config"
	"github.com/loqalabs/loqa-narrate/internal/eventstore"
	"github.com/loqalabs/loqa-narrate/internal/extract"
	"github.com/loqalabs/loqa-narrate/internal/natsserver"
	"github.com/loqalabs/loqa-narrate/internal/output"
	"github.com/loqalabs/loqa-narrate/internal/pipeline"
	"github.com/loqalabs/loqa-narrate/internal/tts"
)

// Options carries the writers a Runtime reports to.
type Options struct {
	// Progress receives the user-facing status lines. Defaults to stdout.
	Progress io.Writer
	// Traces receives pretty-printed spans when stdout traces are enabled.
	// Defaults to stderr.
	Traces io.Writer
}

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *eventstore.Store
	nats       *natsserver.EmbeddedServer
	bus        *bus.Client
	converter  *pipeline.Converter
	httpServer *http.Server
	statusAddr string

	shutdownTelemetry func(context.Context) error
	ready             atomic.Bool
	wg                sync.WaitGroup
}

// New builds every component described by cfg. The returned Runtime must be
// closed.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}
	if opts.Traces == nil {
		opts.Traces = os.Stderr
	}
	r := &Runtime{cfg: cfg, logger: logger}

	shutdown, metrics, err := setupTelemetry(ctx, cfg, logger, opts.Traces)
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.shutdownTelemetry = shutdown

	if err := r.init(ctx, opts.Progress); err != nil {
		r.Close(context.Background())
		return nil, err
	}

	if bind := cfg.Telemetry.StatusBind; bind != "" {
		if err := r.startStatusServer(bind, metrics); err != nil {
			r.Close(context.Background())
			return nil, fmt.Errorf("start status server: %w", err)
		}
	}

	r.ready.Store(true)
	logger.Debug("runtime ready",
		slog.String("synth_mode", cfg.Synth.Mode),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Bool("journal", r.store.Enabled()),
		slog.Bool("bus", r.bus != nil))
	return r, nil
}

func (r *Runtime) init(ctx context.Context, progress io.Writer) error {
	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	r.store = store

	if r.cfg.Bus.Enabled {
		if err := r.connectBus(ctx); err != nil {
			return err
		}
	}

	synth, err := NewSynthesizer(r.cfg.Synth)
	if err != nil {
		return err
	}

	r.converter = pipeline.New(
		pipeline.Config{Delay: time.Duration(r.cfg.Pacing.DelayMS) * time.Millisecond},
		extract.NewPDF(r.cfg.Extract.MaxPages, r.logger),
		chunker.New(chunker.Options{MaxChars: r.cfg.Chunker.MaxChars, DropDegenerate: r.cfg.Chunker.DropDegenerate}),
		synth,
		output.New(r.cfg.Output.Dir, r.cfg.Output.FilePattern),
		progress,
		r.logger,
	)
	r.converter.AddRecorder(newJournal(r.store, r.logger))
	if r.bus != nil {
		r.converter.AddRecorder(r.bus)
	}
	return nil
}

func (r *Runtime) connectBus(ctx context.Context) error {
	var servers []string
	if r.cfg.Bus.Embedded {
		srv, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return err
		}
		r.nats = srv
		servers = []string{srv.ClientURL()}
	}
	client, err := bus.Connect(ctx, r.cfg.Bus, r.logger.With(slog.String("component", "bus")), servers...)
	if err != nil {
		return err
	}
	r.bus = client
	return nil
}

// NewSynthesizer selects the speech backend named by cfg.Mode.
func NewSynthesizer(cfg config.SynthConfig) (tts.Synthesizer, error) {
	switch cfg.Mode {
	case "openai":
		return tts.NewOpenAISynth(tts.OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			ResponseFormat: cfg.ResponseFormat,
			Speed:          cfg.Speed,
			Timeout:        time.Duration(cfg.TimeoutMS) * time.Millisecond,
		})
	case "exec":
		return tts.NewExecSynth(cfg.Command, cfg.ResponseFormat)
	case "mock":
		return tts.NewMockSynth(0), nil
	default:
		return nil, fmt.Errorf("unsupported synth mode %q", cfg.Mode)
	}
}

// Convert narrates the PDF at path.
func (r *Runtime) Convert(ctx context.Context, path string, voice tts.Voice) (pipeline.Report, error) {
	return r.converter.Convert(ctx, pipeline.Document{Path: path}, voice)
}

// History lists journaled runs, newest first.
func (r *Runtime) History(ctx context.Context, limit int) ([]eventstore.Run, error) {
	return r.store.ListRuns(ctx, limit)
}

// StatusAddr is the address the status server listens on, if any.
func (r *Runtime) StatusAddr() string {
	return r.statusAddr
}

// Close stops the status server, the bus and the journal, then flushes
// telemetry.
func (r *Runtime) Close(ctx context.Context) error {
	r.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r.stopStatusServer(shutdownCtx)
	if r.bus != nil {
		r.bus.Close()
	}
	r.nats.Shutdown()

	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event store: %w", err))
		}
	}
	if r.shutdownTelemetry != nil {
		if err := r.shutdownTelemetry(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

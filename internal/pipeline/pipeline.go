// Package pipeline drives a single document through extraction, chunking,
// speech synthesis and file output, strictly one step at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-narrate/internal/chunker"
	"github.com/loqalabs/loqa-narrate/internal/extract"
	"github.com/loqalabs/loqa-narrate/internal/output"
	"github.com/loqalabs/loqa-narrate/internal/protocol"
	"github.com/loqalabs/loqa-narrate/internal/tts"
)

// DefaultDelay is the pause between two consecutive synthesis requests.
const DefaultDelay = time.Second

// Recorder receives the progress events of a run. Implementations must not
// block the pipeline for long and handle their own failures.
type Recorder interface {
	Record(ctx context.Context, evt protocol.Event)
}

// Config tunes a Converter.
type Config struct {
	// Delay is the pause between consecutive chunks. None is taken after the
	// last one.
	Delay time.Duration
}

// Converter runs conversions. It holds no per-run state besides metrics and
// may be reused for several documents, one at a time.
type Converter struct {
	cfg       Config
	extractor extract.Extractor
	chunker   *chunker.Chunker
	synth     tts.Synthesizer
	dir       output.Dir
	progress  *Progress
	recorders []Recorder
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics

	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
	now   func() time.Time
}

func New(cfg Config, ext extract.Extractor, ch *chunker.Chunker, synth tts.Synthesizer, dir output.Dir, out io.Writer, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	if ch == nil {
		ch = chunker.New(chunker.Options{})
	}
	log = log.With(slog.String("component", "pipeline"))
	return &Converter{
		cfg:       cfg,
		extractor: ext,
		chunker:   ch,
		synth:     synth,
		dir:       dir,
		progress:  NewProgress(out),
		logger:    log,
		tracer:    otel.Tracer(instrumentationName),
		metrics:   newMetrics(log),
		sleep:     sleepContext,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// AddRecorder registers a sink for progress events.
func (c *Converter) AddRecorder(r Recorder) {
	if r != nil {
		c.recorders = append(c.recorders, r)
	}
}

// Convert extracts, chunks and narrates doc with voice. The returned error is
// non-nil only when the run could not proceed at all (extraction failure,
// unusable output directory, cancellation); chunk failures are listed in the
// report and do not fail the run.
//
// Chunks are synthesized in order with cfg.Delay between two consecutive
// requests, also after a failed chunk. No pause follows the last chunk, so a
// run of n chunks waits n-1 times.
func (c *Converter) Convert(ctx context.Context, doc Document, voice tts.Voice) (Report, error) {
	if !voice.Valid() {
		voice = tts.DefaultVoice
	}
	started := c.now()
	report := Report{
		RunID:     c.newID(),
		Document:  doc.Path,
		Voice:     voice,
		OutputDir: c.dir.Path,
	}
	log := c.logger.With(slog.String("run_id", report.RunID))

	ctx, span := c.tracer.Start(ctx, "narrate.convert", trace.WithAttributes(
		attribute.String("narrate.run_id", report.RunID),
		attribute.String("narrate.document", doc.Path),
		attribute.String("narrate.voice", voice.String()),
	))
	defer span.End()

	fail := func(evtType protocol.EventType, err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, report.RunID, protocol.Event{Type: evtType, Error: err.Error()})
		c.metrics.run(ctx, "failed")
		report.Duration = c.now().Sub(started)
		return report, err
	}

	c.record(ctx, report.RunID, protocol.Event{Type: protocol.EventRunStarted, Document: doc.Path, Voice: voice.String()})

	c.progress.Stage("Reading PDF...")
	text, err := c.extract(ctx, doc.Path)
	if err != nil {
		c.progress.Failure("Error reading PDF: %v", err)
		log.Error("extraction failed", slog.String("document", doc.Path), slogError(err))
		return fail(protocol.EventExtractFailed, err)
	}

	c.progress.Stage("Processing text...")
	chunks := c.chunker.Chunks(text)
	report.Chunks = len(chunks)
	c.metrics.start(len(chunks))
	span.SetAttributes(attribute.Int("narrate.chunks", len(chunks)))
	c.record(ctx, report.RunID, protocol.Event{Type: protocol.EventTextChunked, Chars: len(text), ChunkCount: len(chunks)})
	log.Info("text chunked", slog.Int("chars", len(text)), slog.Int("chunks", len(chunks)), slog.Int("max_chars", c.chunker.MaxChars()))

	if err := c.dir.Ensure(); err != nil {
		err = fmt.Errorf("%w: %w", ErrOutputDir, err)
		c.progress.Failure("Cannot prepare %s: %v", c.dir.Path, err)
		return fail(protocol.EventRunFailed, err)
	}

	c.progress.Stage("Converting to speech... (%d chunks)", len(chunks))
	for i, ch := range chunks {
		if i > 0 {
			if err := c.sleep(ctx, c.cfg.Delay); err != nil {
				c.progress.Failure("Conversion interrupted before chunk %d", ch.Index)
				log.Warn("run interrupted", slog.Int("next_chunk", ch.Index), slogError(err))
				return fail(protocol.EventRunInterrupted, err)
			}
		}

		c.progress.Step("Converting chunk %d of %d...", ch.Index, len(chunks))
		path, failure := c.convertChunk(ctx, report.RunID, ch, len(chunks), voice)
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
			c.progress.Failure("Failed to convert chunk %d: %v", ch.Index, failure.Err)
			log.Warn("chunk failed",
				slog.Int("chunk", ch.Index),
				slog.String("stage", string(failure.Stage)),
				slogError(failure.Err))
			continue
		}
		report.Written = append(report.Written, path)
	}

	report.Success = true
	report.Duration = c.now().Sub(started)
	outcome := "completed"
	if len(report.Failures) > 0 {
		outcome = "partial"
	}
	c.metrics.run(ctx, outcome)
	span.SetAttributes(attribute.Int("narrate.failed_chunks", len(report.Failures)))
	c.record(ctx, report.RunID, protocol.Event{
		Type:       protocol.EventRunCompleted,
		ChunkCount: len(chunks),
		File:       c.dir.Path,
	})
	c.progress.Done("Conversion complete! Audio files saved in %s", c.dir.Path)
	log.Info("run completed",
		slog.Int("chunks", len(chunks)),
		slog.Int("written", len(report.Written)),
		slog.Int("failed", len(report.Failures)),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (c *Converter) extract(ctx context.Context, path string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "narrate.extract")
	defer span.End()

	text, err := c.extractor.ExtractText(ctx, path)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if text == "" {
		return "", ErrNoText
	}
	span.SetAttributes(attribute.Int("narrate.chars", len(text)))
	return text, nil
}

func (c *Converter) convertChunk(ctx context.Context, runID string, ch chunker.Chunk, total int, voice tts.Voice) (string, *ChunkFailure) {
	ctx, span := c.tracer.Start(ctx, "narrate.chunk", trace.WithAttributes(
		attribute.Int("narrate.chunk", ch.Index),
		attribute.Int("narrate.chars", len(ch.Text)),
	))
	defer span.End()

	c.record(ctx, runID, protocol.Event{Type: protocol.EventChunkStarted, ChunkIndex: ch.Index, ChunkCount: total, Chars: len(ch.Text)})

	fail := func(stage protocol.Stage, err error) (string, *ChunkFailure) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.chunk(ctx, "failed", 0, 0)
		c.record(ctx, runID, protocol.Event{
			Type:       protocol.EventChunkFailed,
			ChunkIndex: ch.Index,
			ChunkCount: total,
			Stage:      stage,
			Error:      err.Error(),
		})
		return "", &ChunkFailure{Index: ch.Index, Stage: stage, Err: err}
	}

	began := c.now()
	audio, err := c.synth.Synthesize(ctx, tts.SynthRequest{RunID: runID, Index: ch.Index, Text: ch.Text, Voice: voice})
	if err == nil && len(audio.Data) == 0 {
		err = tts.ErrEmptyAudio
	}
	if err != nil {
		return fail(protocol.StageSynthesis, err)
	}
	elapsed := c.now().Sub(began)

	path, err := c.dir.WritePart(ch.Index, audio.Data)
	if err != nil {
		return fail(protocol.StageWrite, err)
	}

	c.metrics.chunk(ctx, "written", len(audio.Data), elapsed.Seconds())
	c.record(ctx, runID, protocol.Event{
		Type:       protocol.EventChunkWritten,
		ChunkIndex: ch.Index,
		ChunkCount: total,
		Bytes:      len(audio.Data),
		File:       path,
	})
	return path, nil
}

func (c *Converter) record(ctx context.Context, runID string, evt protocol.Event) {
	evt.RunID = runID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = c.now().UTC()
	}
	for _, r := range c.recorders {
		r.Record(ctx, evt)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// IsExtractionFailure reports whether err aborted a run at the extraction step.
func IsExtractionFailure(err error) bool {
	return errors.Is(err, ErrExtraction)
}

package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/loqalabs/loqa-narrate/pipeline"

type metrics struct {
	runs       metric.Int64Counter
	chunks     metric.Int64Counter
	audioBytes metric.Int64Counter
	synthTime  metric.Float64Histogram

	// progress of the in-flight run, read by the observable gauges
	total atomic.Int64
	done  atomic.Int64
}

func newMetrics(log *slog.Logger) *metrics {
	m := &metrics{}
	if err := m.init(otel.Meter(instrumentationName)); err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return m
}

func (m *metrics) init(meter metric.Meter) error {
	var err error
	if m.runs, err = meter.Int64Counter("narrate.runs", metric.WithDescription("Conversion runs by outcome")); err != nil {
		return err
	}
	if m.chunks, err = meter.Int64Counter("narrate.chunks", metric.WithDescription("Chunks processed by outcome")); err != nil {
		return err
	}
	if m.audioBytes, err = meter.Int64Counter("narrate.audio.bytes", metric.WithDescription("Audio bytes written"), metric.WithUnit("By")); err != nil {
		return err
	}
	if m.synthTime, err = meter.Float64Histogram("narrate.synth.duration", metric.WithDescription("Synthesis latency per chunk"), metric.WithUnit("s")); err != nil {
		return err
	}
	totalGauge, err := meter.Int64ObservableGauge("narrate.run.chunks_total", metric.WithDescription("Chunks in the current run"))
	if err != nil {
		return err
	}
	doneGauge, err := meter.Int64ObservableGauge("narrate.run.chunks_done", metric.WithDescription("Chunks attempted in the current run"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		obs.ObserveInt64(totalGauge, m.total.Load())
		obs.ObserveInt64(doneGauge, m.done.Load())
		return nil
	}, totalGauge, doneGauge)
	return err
}

func (m *metrics) run(ctx context.Context, outcome string) {
	if m.runs != nil {
		m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *metrics) chunk(ctx context.Context, outcome string, bytes int, seconds float64) {
	m.done.Add(1)
	if m.chunks != nil {
		m.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if m.audioBytes != nil && bytes > 0 {
		m.audioBytes.Add(ctx, int64(bytes))
	}
	if m.synthTime != nil && seconds > 0 {
		m.synthTime.Record(ctx, seconds)
	}
}

func (m *metrics) start(total int) {
	m.total.Store(int64(total))
	m.done.Store(0)
}

package bus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/loqalabs/loqa-narrate/internal/config"
	"github.com/loqalabs/loqa-narrate/internal/natsserver"
	"github.com/loqalabs/loqa-narrate/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startServer(t *testing.T) *natsserver.EmbeddedServer {
	t.Helper()
	srv, err := natsserver.Start(config.BusConfig{Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestConnectRequiresServers(t *testing.T) {
	if _, err := Connect(context.Background(), config.BusConfig{}, newLogger()); err == nil {
		t.Fatal("expected error without servers")
	}
}

func TestRecordPublishesEvents(t *testing.T) {
	srv := startServer(t)
	cfg := config.BusConfig{Enabled: true, SubjectPrefix: "narrate", ConnectTimeout: 2000}

	client, err := Connect(context.Background(), cfg, newLogger(), srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if !client.Healthy() {
		t.Fatal("expected healthy connection")
	}

	received := make(chan protocol.Event, 4)
	sub, err := client.Subscribe(func(evt protocol.Event) { received <- evt })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if err := client.Conn().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	client.Record(context.Background(), protocol.Event{
		RunID:      "run-1",
		Type:       protocol.EventChunkWritten,
		ChunkIndex: 2,
		File:       "audio_output/part_2.mp3",
		Timestamp:  time.Now().UTC(),
	})

	select {
	case evt := <-received:
		if evt.RunID != "run-1" || evt.Type != protocol.EventChunkWritten || evt.ChunkIndex != 2 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeSkipsMalformedMessages(t *testing.T) {
	srv := startServer(t)
	client, err := Connect(context.Background(), config.BusConfig{SubjectPrefix: "test"}, newLogger(), srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	received := make(chan protocol.Event, 4)
	sub, err := client.Subscribe(func(evt protocol.Event) { received <- evt })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := client.Conn().Publish("test.garbage", []byte("not json")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.Publish(protocol.Event{RunID: "r", Type: protocol.EventRunCompleted}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case evt := <-received:
		if evt.Type != protocol.EventRunCompleted {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

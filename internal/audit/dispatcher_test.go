package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{}, nil)
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Stats() != (Stats{}) {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink, nil)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := d.Stats(); got.Delivered != 5 || got.Pending != 0 {
		t.Fatalf("expected 5 delivered and nothing pending, got %+v", got)
	}
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 buffered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := d.Stats().Delivered; got != 5 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	var drops int
	var mu sync.Mutex
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, func() {
		mu.Lock()
		drops++
		mu.Unlock()
	})

	// The worker takes the first event and blocks; the second fills the buffer.
	d.Emit(context.Background(), Event{EventType: "a"})
	deadline := time.Now().Add(time.Second)
	for d.Stats().Pending != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), Event{EventType: "b"})
	d.Emit(context.Background(), Event{EventType: "c"})

	if got := d.Stats(); got.Dropped != 1 || got.Pending != 1 {
		t.Fatalf("expected 1 dropped and 1 pending, got %+v", got)
	}
	mu.Lock()
	if drops != 1 {
		t.Fatalf("expected onDrop once, got %d", drops)
	}
	mu.Unlock()

	close(sink.release)
	d.Close()
	if got := d.Stats().Delivered; got != 2 {
		t.Fatalf("expected 2 delivered, got %d", got)
	}
}

func TestDispatcherBlockingEmitDropsOnCancel(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink, nil)

	d.Emit(context.Background(), Event{EventType: "a"})
	deadline := time.Now().Add(time.Second)
	for d.Stats().Pending != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "c"})

	if got := d.Stats().Dropped; got != 1 {
		t.Fatalf("expected cancelled emit to drop, got %d", got)
	}

	close(sink.release)
	d.Close()
	d.Close()
	if got := d.Stats(); got.Delivered != 2 || got.Pending != 0 {
		t.Fatalf("unexpected stats after close %+v", got)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "logout", Username: "alice", Success: true})

	var decoded Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if decoded.EventType != "logout" || decoded.Username != "alice" || !decoded.Success {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "login_failure", Username: "bob", Error: "invalid_credentials"})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "login_failure") || !strings.Contains(out, "username=bob") {
		t.Fatalf("unexpected log output %q", out)
	}
}

package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config sizes the audit queue.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes a full queue discard the event. Otherwise the caller
	// waits for room or for its context to end.
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Pending   int
}

// Dispatcher moves login, lockout and session events off the request path.
// One worker feeds the sink in emission order. A nil *Dispatcher accepts
// and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan Event
	stop       chan struct{}
	stopOnce   sync.Once
	stopped    atomic.Bool
	worker     sync.WaitGroup
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	onDrop     func()
}

// NewDispatcher starts the worker. It returns nil when auditing is off, so
// callers can emit unconditionally. onDrop runs once per discarded event.
func NewDispatcher(cfg Config, sink Sink, onDrop func()) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
		onDrop:     onDrop,
	}
	d.worker.Add(1)
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer d.worker.Done()
	for {
		select {
		case event := <-d.queue:
			d.forward(event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush forwards whatever is still queued once stop is closed.
func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.forward(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) forward(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

func (d *Dispatcher) discard() {
	d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop()
	}
}

// Emit queues event for the sink. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.discard()
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.discard()
	case <-d.stop:
	}
}

// Close rejects new events, forwards the queued ones and waits for the
// worker. Later calls return immediately.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Stats returns the current counters. A nil dispatcher reports zeros.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Pending:   len(d.queue),
	}
}

package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	failures    int
	windowStart time.Time
	lastFailure time.Time
	lockedUntil time.Time
}

// MemoryTracker is an in-process [Tracker] for single-instance deployments.
// A single mutex guards the map, which makes every per-username update
// atomic. Use [RedisTracker] when several processes share lockout state.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  Config
	now     Clock

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

var _ Tracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates an in-memory tracker. A nil clock uses time.Now.
func NewMemoryTracker(cfg Config, clock Clock) (*MemoryTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTracker{
		entries: make(map[string]*entry),
		config:  cfg,
		now:     clock,
		stop:    make(chan struct{}),
	}, nil
}

// IsLocked implements [Tracker].
func (m *MemoryTracker) IsLocked(_ context.Context, username string) (bool, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[username]
	if !ok {
		return false, time.Time{}, nil
	}
	if e.lockedUntil.IsZero() {
		return false, time.Time{}, nil
	}

	now := m.now()
	if now.Before(e.lockedUntil) {
		return true, e.lockedUntil, nil
	}

	delete(m.entries, username)
	return false, time.Time{}, nil
}

// RecordFailure implements [Tracker].
func (m *MemoryTracker) RecordFailure(_ context.Context, username string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[username]
	if !ok {
		e = &entry{}
		m.entries[username] = e
	}

	if !e.lockedUntil.IsZero() {
		if now.Before(e.lockedUntil) {
			return State{Failures: e.failures, LockedUntil: e.lockedUntil}, nil
		}
		*e = entry{}
	}
	if m.config.FailureWindow > 0 && e.failures > 0 && now.Sub(e.windowStart) >= m.config.FailureWindow {
		*e = entry{}
	}

	if e.failures == 0 {
		e.windowStart = now
	}
	e.failures++
	e.lastFailure = now

	state := State{Failures: e.failures}
	if e.failures >= m.config.MaxFailures {
		e.lockedUntil = now.Add(m.config.LockoutDuration)
		state.LockedUntil = e.lockedUntil
		state.Tripped = true
	}
	return state, nil
}

// RecordSuccess implements [Tracker].
func (m *MemoryTracker) RecordSuccess(_ context.Context, username string) error {
	m.mu.Lock()
	delete(m.entries, username)
	m.mu.Unlock()
	return nil
}

// Failures implements [Tracker].
func (m *MemoryTracker) Failures(_ context.Context, username string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[username]
	if !ok {
		return 0, nil
	}
	now := m.now()
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		return 0, nil
	}
	if e.lockedUntil.IsZero() && m.config.FailureWindow > 0 && now.Sub(e.windowStart) >= m.config.FailureWindow {
		return 0, nil
	}
	return e.failures, nil
}

// Len returns the number of tracked usernames.
func (m *MemoryTracker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep evicts expired locks, counters whose failure window has closed and
// counters idle for longer than IdleTTL. It returns the number evicted.
func (m *MemoryTracker) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	idle := m.config.idleTTL()
	evicted := 0
	for username, e := range m.entries {
		if m.evictable(e, now, idle) {
			delete(m.entries, username)
			evicted++
		}
	}
	return evicted
}

func (m *MemoryTracker) evictable(e *entry, now time.Time, idle time.Duration) bool {
	if !e.lockedUntil.IsZero() {
		return !now.Before(e.lockedUntil)
	}
	if m.config.FailureWindow > 0 && now.Sub(e.windowStart) >= m.config.FailureWindow {
		return true
	}
	return now.Sub(e.lastFailure) >= idle
}

// StartSweeper runs [MemoryTracker.Sweep] every interval until Close.
// Calling it more than once starts additional sweepers.
func (m *MemoryTracker) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Close stops background sweepers. It is safe to call more than once.
func (m *MemoryTracker) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()
}

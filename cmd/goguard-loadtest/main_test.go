package main

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/lockout"
)

func TestRunPhaseTripsEachUserOnce(t *testing.T) {
	tracker, err := lockout.NewMemoryTracker(lockout.Config{MaxFailures: 3, LockoutDuration: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewMemoryTracker error: %v", err)
	}
	defer tracker.Close()

	res := runPhase(context.Background(), "memory", tracker, options{
		users:       10,
		concurrency: 16,
		ops:         200,
		maxFailures: 3,
	})

	if !res.ok() {
		t.Fatalf("unexpected result: tripped=%v overshot=%d", res.tripped, res.overshot)
	}
	if len(res.tripped) != 10 {
		t.Fatalf("expected all 10 users locked, got %d", len(res.tripped))
	}
	if res.stats.ops != 200 || res.stats.failures != 0 {
		t.Fatalf("unexpected stats %+v", res.stats)
	}
}

func TestRunPhasePaced(t *testing.T) {
	tracker, err := lockout.NewMemoryTracker(lockout.Config{MaxFailures: 5, LockoutDuration: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewMemoryTracker error: %v", err)
	}
	defer tracker.Close()

	res := runPhase(context.Background(), "memory", tracker, options{
		users:       2,
		concurrency: 2,
		ops:         20,
		maxFailures: 5,
		rps:         10000,
	})
	if !res.ok() || res.stats.ops != 20 {
		t.Fatalf("unexpected paced result %+v", res.stats)
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}

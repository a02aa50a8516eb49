// Command goguard-loadtest hammers the lockout trackers from many
// goroutines and checks that each username trips exactly once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MrEthical07/goGuard/lockout"
)

type options struct {
	users       int
	concurrency int
	ops         int
	maxFailures int
	rps         float64
	backend     string
	redisAddr   string
}

func main() {
	var o options
	flag.IntVar(&o.users, "users", 1000, "number of distinct usernames")
	flag.IntVar(&o.concurrency, "concurrency", 128, "number of concurrent workers")
	flag.IntVar(&o.ops, "ops", 100000, "failures recorded per backend")
	flag.IntVar(&o.maxFailures, "max-failures", 5, "lockout threshold")
	flag.Float64Var(&o.rps, "rps", 0, "overall operations per second; 0 runs unpaced")
	flag.StringVar(&o.backend, "backend", "both", "memory, redis or both")
	flag.StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, GOGUARD_REDIS_ADDR or miniredis is used")
	flag.Parse()

	if o.users <= 0 || o.concurrency <= 0 || o.ops <= 0 || o.maxFailures <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and max-failures must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := lockout.Config{
		MaxFailures:     o.maxFailures,
		LockoutDuration: time.Hour,
	}

	var results []phaseResult
	if o.backend == "memory" || o.backend == "both" {
		tracker, err := lockout.NewMemoryTracker(cfg, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memory tracker: %v\n", err)
			os.Exit(1)
		}
		results = append(results, runPhase(ctx, "memory", tracker, o))
		tracker.Close()
	}
	if o.backend == "redis" || o.backend == "both" {
		client, cleanup, err := redisClient(o.redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		tracker, err := lockout.NewRedisTracker(client, "gg:loadtest", cfg, nil)
		if err != nil {
			cleanup()
			fmt.Fprintf(os.Stderr, "redis tracker: %v\n", err)
			os.Exit(1)
		}
		results = append(results, runPhase(ctx, "redis", tracker, o))
		cleanup()
	}

	fmt.Println("---- results ----")
	failed := false
	for _, r := range results {
		printResult(r)
		if !r.ok() {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("GOGUARD_REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type phaseResult struct {
	name     string
	stats    phaseStats
	users    int
	tripped  map[string]int
	overshot int
}

// ok reports whether every username that reached the threshold tripped
// exactly once and no counter passed the threshold.
func (r phaseResult) ok() bool {
	for _, n := range r.tripped {
		if n != 1 {
			return false
		}
	}
	return r.overshot == 0
}

func runPhase(ctx context.Context, name string, tracker lockout.Tracker, o options) phaseResult {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		overshot  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, o.ops)
		tripped   = make(map[string]int)
	)

	var limiter *rate.Limiter
	if o.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.rps), o.concurrency)
	}

	start := time.Now()
	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= o.ops {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						atomic.AddInt64(&failures, 1)
						return
					}
				}

				username := fmt.Sprintf("user-%d", i%o.users)
				t0 := time.Now()
				state, err := tracker.RecordFailure(ctx, username)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				if state.Failures > o.maxFailures {
					atomic.AddInt64(&overshot, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				if state.Tripped {
					tripped[username]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return phaseResult{
		name:     name,
		stats:    computeStats(time.Since(start), latencies, failures),
		users:    o.users,
		tripped:  tripped,
		overshot: int(overshot),
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printResult(r phaseResult) {
	s := r.stats
	fmt.Printf("%s: ops=%d errors=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s locked=%d/%d overshot=%d ok=%v\n",
		r.name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		len(r.tripped),
		r.users,
		r.overshot,
		r.ok(),
	)
}

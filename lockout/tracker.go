package lockout

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable indicates the lockout backend is unreachable.
	ErrUnavailable = errors.New("lockout backend unavailable")
	// ErrInvalidConfig is returned by constructors for unusable policy values.
	ErrInvalidConfig = errors.New("invalid lockout config")
)

const defaultIdleTTL = 24 * time.Hour

// Config holds the lockout policy.
type Config struct {
	// MaxFailures is the number of consecutive failures that locks a username.
	MaxFailures int
	// LockoutDuration is how long a lock lasts once the threshold is reached.
	LockoutDuration time.Duration
	// FailureWindow bounds how long failures keep counting toward the
	// threshold. 0 keeps counting until a success or a lock expiry.
	FailureWindow time.Duration
	// IdleTTL is how long an unlocked counter survives without new failures
	// before it becomes eligible for eviction. 0 means 24h.
	IdleTTL time.Duration
}

// Validate checks that the policy can be enforced.
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("MaxFailures must be > 0"))
	}
	if c.LockoutDuration <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("LockoutDuration must be > 0"))
	}
	if c.FailureWindow < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("FailureWindow must be >= 0"))
	}
	if c.IdleTTL < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("IdleTTL must be >= 0"))
	}
	return nil
}

func (c Config) idleTTL() time.Duration {
	if c.IdleTTL <= 0 {
		return defaultIdleTTL
	}
	return c.IdleTTL
}

// State is the per-username lockout record as seen after an operation.
type State struct {
	Failures    int
	LockedUntil time.Time
	// Tripped is set only on the failure that reached the threshold.
	Tripped bool
}

// Locked reports whether the state is locked at now.
func (s State) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Tracker counts consecutive login failures per username and locks the
// username for a fixed duration once the threshold is reached.
//
// Implementations serialize the read-modify-write of a single username so
// concurrent failures can neither overshoot the threshold unlocked nor
// lock twice.
type Tracker interface {
	// IsLocked reports whether username is locked and until when. An
	// expired lock reports unlocked and resets the counter.
	IsLocked(ctx context.Context, username string) (bool, time.Time, error)
	// RecordFailure counts one failure. While locked the counter is frozen
	// and the existing lock is returned unchanged.
	RecordFailure(ctx context.Context, username string) (State, error)
	// RecordSuccess clears the counter and any lock unconditionally.
	RecordSuccess(ctx context.Context, username string) error
	// Failures returns the current counter without modifying it.
	Failures(ctx context.Context, username string) (int, error)
}

// Clock returns the current time. Trackers default to time.Now.
type Clock func() time.Time

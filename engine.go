package goGuard

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/lockout"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/strength"
)

// Engine evaluates login attempts, password changes and registrations, and
// drives the session lifecycle. It is safe for concurrent use; each
// *Session it is handed has a single owner.
type Engine struct {
	config       Config
	repo         AccountRepository
	verifier     CredentialVerifier
	hashVerifier bool
	tracker      lockout.Tracker
	memTracker   *lockout.MemoryTracker
	hasher       *password.Argon2
	validate     *validator.Validate
	sessions     *session.Store
	tokens       *jwt.Manager
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
}

// Close stops the in-memory lockout sweeper and drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.memTracker != nil {
		e.memTracker.Close()
	}
	if e.audit != nil {
		e.audit.Close()
		stats := e.audit.Stats()
		e.logger.Debug("audit dispatcher closed", "delivered", stats.Delivered, "dropped", stats.Dropped)
	}
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Stats().Dropped
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionPersistence reports whether logins create persisted sessions.
func (e *Engine) SessionPersistence() bool {
	return e != nil && e.sessions != nil && e.tokens != nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// upstreamContext bounds one collaborator call by Upstream.Timeout.
func (e *Engine) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Upstream.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.Upstream.Timeout)
}

// recordContext detaches from caller cancellation so that lockout and
// last-login writes that follow a finished verification always complete.
func (e *Engine) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return e.upstreamContext(context.WithoutCancel(ctx))
}

// ScorePasswordStrength grades password without touching any state.
func (e *Engine) ScorePasswordStrength(pw string) StrengthReport {
	r := strength.Evaluate(pw)
	return StrengthReport{Result: r, Indicator: strength.IndicatorFor(r)}
}

// HashPassword returns a stored-credential encoding of pw using the
// configured Argon2id parameters. Administrative tooling uses it to seed
// accounts.
func (e *Engine) HashPassword(pw string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(pw)
}

// IsAccountLocked reports whether username is locked and until when.
func (e *Engine) IsAccountLocked(ctx context.Context, username string) (bool, time.Time, error) {
	if e == nil {
		return false, time.Time{}, ErrEngineNotReady
	}
	if username == "" {
		return false, time.Time{}, validation("username", "Username is required")
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	locked, until, err := e.tracker.IsLocked(cctx, username)
	if err != nil {
		return false, time.Time{}, upstream("lockout check", err)
	}
	return locked, until, nil
}

// FailedAttempts returns the current failure count of username without
// changing it. A lapsed window or lock reads as zero.
func (e *Engine) FailedAttempts(ctx context.Context, username string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if username == "" {
		return 0, validation("username", "Username is required")
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	n, err := e.tracker.Failures(cctx, username)
	if err != nil {
		return 0, upstream("lockout read", err)
	}
	return n, nil
}

// RecordFailedLogin counts one failed attempt against username outside of
// AttemptLogin, for callers that verify credentials themselves.
func (e *Engine) RecordFailedLogin(ctx context.Context, username string) (lockout.State, error) {
	if e == nil {
		return lockout.State{}, ErrEngineNotReady
	}
	if username == "" {
		return lockout.State{}, validation("username", "Username is required")
	}
	return e.recordFailure(ctx, username)
}

// UnlockAccount clears the failure counter and any lock on username.
func (e *Engine) UnlockAccount(ctx context.Context, username string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if username == "" {
		return validation("username", "Username is required")
	}

	cctx, cancel := e.recordContext(ctx)
	defer cancel()

	if err := e.tracker.RecordSuccess(cctx, username); err != nil {
		return upstream("lockout reset", err)
	}
	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventLockoutCleared, true, username, "", nil, nil)
	return nil
}

func (e *Engine) recordFailure(ctx context.Context, username string) (lockout.State, error) {
	cctx, cancel := e.recordContext(ctx)
	defer cancel()

	state, err := e.tracker.RecordFailure(cctx, username)
	if err != nil {
		return lockout.State{}, upstream("lockout record", err)
	}
	if state.Tripped {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventLockoutTriggered, false, username, "", ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"failures":     strconv.Itoa(state.Failures),
				"locked_until": state.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		e.logger.Warn("account locked", "username", username, "until", state.LockedUntil)
	}
	return state, nil
}

// verify runs the credential check under the upstream timeout and records
// its latency.
func (e *Engine) verify(ctx context.Context, username, pw string) (bool, error) {
	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	start := time.Now()
	ok, err := e.verifier.VerifyCredential(cctx, username, pw)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if err != nil {
		if cerr := cctx.Err(); cerr != nil && ctx.Err() == nil {
			return false, upstream("verify credential", cerr)
		}
		return false, upstream("verify credential", err)
	}
	return ok, nil
}

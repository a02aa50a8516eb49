package goGuard

import (
	"context"
	"time"
)

// AttemptLogin evaluates one login attempt for sess.
//
// Empty input is a *ValidationError and leaves the lockout state untouched.
// A locked username returns a *LockedError without running verification.
// A failed verification is recorded against the username and returns
// ErrInvalidCredentials, with the same result for unknown usernames and
// wrong passwords. A verifier or backend failure returns an *UpstreamError
// and records nothing. On success the session becomes authenticated.
//
// Lockout and last-login writes run after verification returns and ignore
// cancellation of ctx, so an abandoned request cannot leave them half done.
func (e *Engine) AttemptLogin(ctx context.Context, sess *Session, username, pw string) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if err := sess.usable(); err != nil {
		return LoginResult{}, err
	}
	if sess.IsAuthenticated() {
		return LoginResult{}, ErrAlreadyAuthenticated
	}
	if username == "" || pw == "" {
		e.metricInc(MetricLoginValidationRejected)
		return LoginResult{}, validation("credentials", "username and password are required")
	}

	locked, until, err := e.IsAccountLocked(ctx, username)
	if err != nil {
		return LoginResult{}, e.loginUpstreamFailure(ctx, username, err)
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		lockErr := &LockedError{UnlockAt: until}
		e.emitAudit(ctx, auditEventLoginLocked, false, username, "", lockErr, nil)
		return LoginResult{Status: LoginLocked, UnlockAt: until}, lockErr
	}

	ok, err := e.verify(ctx, username, pw)
	if err != nil {
		return LoginResult{}, e.loginUpstreamFailure(ctx, username, err)
	}

	if !ok {
		state, err := e.recordFailure(ctx, username)
		if err != nil {
			return LoginResult{}, e.loginUpstreamFailure(ctx, username, err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, username, "", ErrInvalidCredentials, func() map[string]string {
			if state.Tripped {
				return map[string]string{"lockout": "triggered"}
			}
			return nil
		})
		return LoginResult{Status: LoginInvalidCredentials}, ErrInvalidCredentials
	}

	now := e.now()
	issued, err := e.issueSession(ctx, username, now)
	if err != nil {
		return LoginResult{}, e.loginUpstreamFailure(ctx, username, err)
	}

	e.completeLogin(ctx, username, pw, now)
	sess.authenticate(username, issued.id, issued.token, now, issued.expires)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, username, issued.id, nil, nil)

	return LoginResult{
		Status:    LoginSuccess,
		Token:     issued.token,
		ExpiresAt: issued.expires,
	}, nil
}

func (e *Engine) loginUpstreamFailure(ctx context.Context, username string, err error) error {
	e.metricInc(MetricLoginUpstreamFailure)
	e.emitAudit(ctx, auditEventUpstreamUnavailable, false, username, "", err, func() map[string]string {
		return map[string]string{"operation": "login"}
	})
	e.logger.Error("login upstream failure", "error", err)
	return err
}

// completeLogin performs the best-effort writes that follow a verified
// login. Failures are logged and do not fail the login.
func (e *Engine) completeLogin(ctx context.Context, username, pw string, now time.Time) {
	rctx, cancel := e.recordContext(ctx)
	defer cancel()

	if err := e.tracker.RecordSuccess(rctx, username); err != nil {
		e.logger.Warn("lockout reset after login failed", "username", username, "error", err)
	}
	if err := e.repo.UpdateLastLogin(rctx, username, now); err != nil {
		e.logger.Warn("last login update failed", "username", username, "error", err)
	}
	if e.config.Password.UpgradeOnLogin && e.hashVerifier {
		e.upgradeHash(rctx, username, pw)
	}
}

func (e *Engine) upgradeHash(ctx context.Context, username, pw string) {
	account, err := e.repo.FetchAccount(ctx, username)
	if err != nil {
		e.logger.Warn("hash upgrade skipped", "username", username, "error", err)
		return
	}
	needs, err := e.hasher.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		e.logger.Warn("hash upgrade failed", "username", username, "error", err)
		return
	}
	if err := e.repo.UpdateCredential(ctx, username, hash); err != nil {
		e.logger.Warn("hash upgrade write failed", "username", username, "error", err)
		return
	}
	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, auditEventPasswordRehashed, true, username, "", nil, nil)
}

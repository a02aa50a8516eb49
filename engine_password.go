package goGuard

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/strength"
)

const passwordChangedMessage = "Password changed successfully"

// ChangePassword replaces the credential of the user bound to sess.
//
// Rules are checked in order and the first failure is returned: the new
// password must equal its confirmation, the current password must verify,
// the new password must reach Strength.MinChangeScore and, with
// Strength.RejectReuse, must differ from the current one. The stored hash is
// written only when every rule passes.
//
// The current-password check does not touch the lockout tracker unless
// Lockout.ThrottleReauthentication is set.
func (e *Engine) ChangePassword(ctx context.Context, sess *Session, current, next, confirm string) (ChangeResult, error) {
	if e == nil {
		return ChangeResult{Message: UserMessage(ErrEngineNotReady)}, ErrEngineNotReady
	}
	username, err := sess.requireAuthenticated()
	if err != nil {
		return ChangeResult{Message: UserMessage(err)}, err
	}

	result, err := e.changePassword(ctx, username, current, next, confirm)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, username, sess.ID(), err, nil)
		return ChangeResult{Message: UserMessage(err)}, err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, username, sess.ID(), nil, nil)
	e.revokeOtherSessions(ctx, username, sess.ID())
	return result, nil
}

func (e *Engine) changePassword(ctx context.Context, username, current, next, confirm string) (ChangeResult, error) {
	if next != confirm {
		e.metricInc(MetricPasswordChangeMismatch)
		return ChangeResult{}, ErrPasswordMismatch
	}
	if current == "" {
		return ChangeResult{}, validation("current_password", "Please enter your current password")
	}
	if next == "" {
		return ChangeResult{}, validation("new_password", "Please enter a new password")
	}

	throttle := e.config.Lockout.ThrottleReauthentication
	if throttle {
		locked, until, err := e.IsAccountLocked(ctx, username)
		if err != nil {
			return ChangeResult{}, err
		}
		if locked {
			return ChangeResult{}, &LockedError{UnlockAt: until}
		}
	}

	ok, err := e.verify(ctx, username, current)
	if err != nil {
		e.logger.Error("password change upstream failure", "username", username, "error", err)
		return ChangeResult{}, err
	}
	if !ok {
		if throttle {
			if _, err := e.recordFailure(ctx, username); err != nil {
				return ChangeResult{}, err
			}
		}
		e.metricInc(MetricPasswordChangeInvalidCurrent)
		return ChangeResult{}, ErrCurrentPasswordInvalid
	}

	if minScore := e.config.Strength.MinChangeScore; minScore > 0 {
		if !strength.Meets(next, minScore) {
			e.metricInc(MetricPasswordChangeWeak)
			return ChangeResult{}, fmt.Errorf("%w: score %d below %d", ErrPasswordTooWeak, strength.Score(next), minScore)
		}
	}
	if e.config.Strength.RejectReuse && next == current {
		e.metricInc(MetricPasswordChangeReuse)
		return ChangeResult{}, ErrPasswordReuse
	}

	hash, err := e.hasher.Hash(next)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return ChangeResult{}, validation("new_password", "Password is too long")
	}
	if err != nil {
		return ChangeResult{}, fmt.Errorf("hash new password: %w", err)
	}

	cctx, cancel := e.recordContext(ctx)
	defer cancel()

	if err := e.repo.UpdateCredential(cctx, username, hash); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ChangeResult{}, ErrUnauthenticated
		}
		return ChangeResult{}, upstream("update credential", err)
	}

	if throttle {
		if err := e.tracker.RecordSuccess(cctx, username); err != nil {
			e.logger.Warn("lockout reset after password change failed", "username", username, "error", err)
		}
	}

	return ChangeResult{OK: true, Message: passwordChangedMessage}, nil
}

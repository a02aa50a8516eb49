package goGuard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/strength"
)

const accountCreatedMessage = "Account created successfully! Please log in."

// RegisterAccount validates a sign-up form and creates the account.
//
// The username must have at least Account.MinUsernameLength characters, the
// email must be a bare address, the password must equal its
// confirmation and reach Strength.MinRegisterScore. A taken username returns
// ErrAccountExists. Registration never authenticates a session.
func (e *Engine) RegisterAccount(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if e == nil {
		return RegisterResult{Message: UserMessage(ErrEngineNotReady)}, ErrEngineNotReady
	}

	if err := e.validateRegistration(req); err != nil {
		e.metricInc(MetricRegistrationRejected)
		e.emitAudit(ctx, auditEventRegistrationFailure, false, req.Username, "", err, nil)
		return RegisterResult{Message: UserMessage(err)}, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if errors.Is(err, password.ErrPasswordTooLong) {
		err = validation("password", "Password is too long")
		e.metricInc(MetricRegistrationRejected)
		return RegisterResult{Message: UserMessage(err)}, err
	}
	if err != nil {
		return RegisterResult{Message: UserMessage(err)}, fmt.Errorf("hash password: %w", err)
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	_, err = e.repo.CreateAccount(cctx, CreateAccountInput{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         e.config.Account.DefaultRole,
		CreatedAt:    e.now(),
	})
	if errors.Is(err, ErrAccountExists) {
		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventRegistrationFailure, false, req.Username, "", ErrAccountExists, nil)
		return RegisterResult{Message: UserMessage(ErrAccountExists)}, ErrAccountExists
	}
	if err != nil {
		uerr := upstream("create account", err)
		e.emitAudit(ctx, auditEventRegistrationFailure, false, req.Username, "", uerr, nil)
		e.logger.Error("registration upstream failure", "error", err)
		return RegisterResult{Message: UserMessage(uerr)}, uerr
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistrationSuccess, true, req.Username, "", nil, nil)
	return RegisterResult{OK: true, Message: accountCreatedMessage}, nil
}

func (e *Engine) validateRegistration(req RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := e.validate.Struct(&req); err != nil {
		return registrationError(err, e.config.Account.MinUsernameLength)
	}

	if minScore := e.config.Strength.MinRegisterScore; !strength.Meets(req.Password, minScore) {
		return fmt.Errorf("%w: score %d below %d", ErrPasswordTooWeak, strength.Score(req.Password), minScore)
	}
	return nil
}

// Profile returns the account of the user bound to sess. If the account no
// longer exists the session is returned to anonymous and ErrUnauthenticated
// is returned. Sessions counts live persisted sessions and stays zero when
// the registry is off or unreachable.
func (e *Engine) Profile(ctx context.Context, sess *Session) (Profile, error) {
	if e == nil {
		return Profile{}, ErrEngineNotReady
	}
	username, err := sess.requireAuthenticated()
	if err != nil {
		return Profile{}, err
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	account, err := e.repo.FetchAccount(cctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		sess.clear()
		return Profile{}, ErrUnauthenticated
	}
	if err != nil {
		return Profile{}, upstream("fetch account", err)
	}

	memberDays := 0
	if !account.CreatedAt.IsZero() {
		if d := e.now().Sub(account.CreatedAt); d > 0 {
			memberDays = int(d.Hours() / 24)
		}
	}

	var active int
	if ids, err := e.ActiveSessions(ctx, username); err != nil {
		e.logger.Warn("profile session count unavailable", "username", username, "error", err)
	} else {
		active = len(ids)
	}

	return Profile{
		Username:    account.Username,
		Email:       account.Email,
		Role:        account.Role,
		CreatedAt:   account.CreatedAt,
		LastLogin:   account.LastLogin,
		Active:      account.Active,
		MemberDays:  memberDays,
		SessionID:   sess.ID(),
		SessionEnds: sess.ExpiresAt(),
		Sessions:    active,
	}, nil
}

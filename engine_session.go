package goGuard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goGuard/session"
)

type issuedSession struct {
	id      string
	token   string
	expires time.Time
}

// issueSession persists a new session record and signs its token. It is a
// no-op when persistence is off.
func (e *Engine) issueSession(ctx context.Context, username string, now time.Time) (issuedSession, error) {
	if !e.SessionPersistence() {
		return issuedSession{}, nil
	}

	id := e.newID()
	token, expires, err := e.tokens.Issue(username, id)
	if err != nil {
		return issuedSession{}, upstream("sign session token", err)
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	rec := session.Record{
		ID:          id,
		Username:    username,
		CreatedAt:   now,
		RefreshedAt: now,
		ExpiresAt:   expires,
	}
	if err := e.sessions.Save(cctx, rec); err != nil {
		return issuedSession{}, upstream("save session", err)
	}

	e.metricInc(MetricSessionCreated)
	return issuedSession{id: id, token: token, expires: expires}, nil
}

// Logout returns an authenticated session to the anonymous state and
// revokes its persisted record. The local state is cleared even when
// revocation fails; the returned *UpstreamError then means the token may
// remain usable until it expires.
func (e *Engine) Logout(ctx context.Context, sess *Session) error {
	if e == nil {
		return ErrEngineNotReady
	}
	username, err := sess.requireAuthenticated()
	if err != nil {
		return err
	}

	id := sess.ID()
	sess.clear()

	e.metricInc(MetricLogout)

	if id != "" && e.sessions != nil {
		cctx, cancel := e.recordContext(ctx)
		defer cancel()

		if err := e.sessions.Delete(cctx, id); err != nil {
			uerr := upstream("revoke session", err)
			e.emitAudit(ctx, auditEventLogout, false, username, id, uerr, nil)
			e.logger.Error("session revocation failed", "username", username, "error", err)
			return uerr
		}
	}

	e.emitAudit(ctx, auditEventLogout, true, username, id, nil, nil)
	return nil
}

// Refresh keeps an authenticated session alive. With persistence it extends
// the record and re-signs the token; a revoked or lapsed record returns the
// session to anonymous with ErrSessionExpired. Without persistence it only
// checks the state.
func (e *Engine) Refresh(ctx context.Context, sess *Session) error {
	if e == nil {
		return ErrEngineNotReady
	}
	username, err := sess.requireAuthenticated()
	if err != nil {
		return err
	}

	id := sess.ID()
	if id == "" || !e.SessionPersistence() {
		e.metricInc(MetricSessionRefreshed)
		return nil
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	expires, err := e.sessions.Touch(cctx, id, e.config.Session.TTL)
	if errors.Is(err, session.ErrNotFound) {
		sess.clear()
		e.emitAudit(ctx, auditEventSessionRefreshed, false, username, id, ErrSessionExpired, nil)
		return ErrSessionExpired
	}
	if err != nil {
		return upstream("refresh session", err)
	}

	token, _, err := e.tokens.Issue(username, id)
	if err != nil {
		return upstream("sign session token", err)
	}
	sess.token = token
	sess.expiresAt = expires

	e.metricInc(MetricSessionRefreshed)
	e.emitAudit(ctx, auditEventSessionRefreshed, true, username, id, nil, nil)
	return nil
}

// Resume authenticates an anonymous session from a token issued by an
// earlier login. The token must verify, its session record must still exist
// and the account must still be active.
func (e *Engine) Resume(ctx context.Context, sess *Session, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := sess.usable(); err != nil {
		return err
	}
	if sess.IsAuthenticated() {
		return ErrAlreadyAuthenticated
	}
	if !e.SessionPersistence() {
		return ErrSessionPersistenceDisabled
	}
	if token == "" {
		return validation("token", "Session token is required")
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		e.emitAudit(ctx, auditEventSessionResumed, false, "", "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	rec, err := e.sessions.Get(cctx, claims.SID)
	if errors.Is(err, session.ErrNotFound) {
		e.emitAudit(ctx, auditEventSessionResumed, false, claims.Subject, claims.SID, ErrSessionExpired, nil)
		return ErrSessionExpired
	}
	if err != nil {
		return upstream("load session", err)
	}
	if rec.Username != claims.Subject {
		e.emitAudit(ctx, auditEventSessionResumed, false, claims.Subject, claims.SID, ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	account, err := e.repo.FetchAccount(cctx, rec.Username)
	if errors.Is(err, ErrAccountNotFound) || (err == nil && !account.Active) {
		_ = e.sessions.Delete(cctx, rec.ID)
		e.emitAudit(ctx, auditEventSessionResumed, false, rec.Username, rec.ID, ErrSessionExpired, nil)
		return ErrSessionExpired
	}
	if err != nil {
		return upstream("fetch account", err)
	}

	sess.authenticate(rec.Username, rec.ID, token, rec.CreatedAt, rec.ExpiresAt)
	e.metricInc(MetricSessionResumed)
	e.emitAudit(ctx, auditEventSessionResumed, true, rec.Username, rec.ID, nil, nil)
	return nil
}

// ActiveSessions returns the ids of the live persisted sessions of username.
// It returns nil when persistence is off.
func (e *Engine) ActiveSessions(ctx context.Context, username string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" {
		return nil, validation("username", "Username is required")
	}
	if !e.SessionPersistence() {
		return nil, nil
	}

	cctx, cancel := e.upstreamContext(ctx)
	defer cancel()

	ids, err := e.sessions.ActiveSessionIDs(cctx, username)
	if err != nil {
		return nil, upstream("list sessions", err)
	}
	return ids, nil
}

// revokeOtherSessions ends every persisted session of username except keep.
func (e *Engine) revokeOtherSessions(ctx context.Context, username, keep string) {
	if !e.SessionPersistence() || !e.config.Session.RevokeOthersOnPasswordChange {
		return
	}

	cctx, cancel := e.recordContext(ctx)
	defer cancel()

	n, err := e.sessions.DeleteAllForUser(cctx, username, keep)
	if err != nil {
		e.logger.Warn("session revocation after password change failed", "username", username, "error", err)
		return
	}
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionsRevoked, true, username, keep, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
}

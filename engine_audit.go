package goGuard

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventLockoutTriggered      = "lockout_triggered"
	auditEventLockoutCleared        = "lockout_cleared"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventPasswordRehashed      = "password_rehashed"
	auditEventRegistrationSuccess   = "registration_success"
	auditEventRegistrationFailure   = "registration_failure"
	auditEventSessionRefreshed      = "session_refreshed"
	auditEventSessionResumed        = "session_resumed"
	auditEventSessionsRevoked       = "sessions_revoked"
	auditEventLogout                = "logout"
	auditEventUpstreamUnavailable   = "upstream_unavailable"
)

// AuditErrorCode is the stable error label written to audit events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrCurrentPassword    AuditErrorCode = "current_password_invalid"
	auditErrPasswordTooWeak    AuditErrorCode = "password_too_weak"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrAccountExists      AuditErrorCode = "duplicate"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrTokenInvalid       AuditErrorCode = "invalid_token"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrTimeout            AuditErrorCode = "upstream_timeout"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Username:  username,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var up *UpstreamError
	switch {
	case errors.As(err, &up):
		if up.Timeout() {
			return auditErrTimeout
		}
		return auditErrUnavailable
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrCurrentPasswordInvalid):
		return auditErrCurrentPassword
	case errors.Is(err, ErrPasswordTooWeak):
		return auditErrPasswordTooWeak
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrAccountExists):
		return auditErrAccountExists
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrUpstreamUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

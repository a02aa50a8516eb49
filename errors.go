package goGuard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for any failed credential check. The
	// same value is used for unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is matched by every *LockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrPasswordMismatch is returned when a new password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrCurrentPasswordInvalid is returned when re-authentication during a
	// password change fails.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
	// ErrPasswordTooWeak is returned when a candidate password scores below
	// the configured minimum.
	ErrPasswordTooWeak = errors.New("password too weak")
	// ErrPasswordReuse is returned when the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrUpstreamUnavailable is returned when the account store, the
	// verifier or the lockout backend failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUnauthenticated is returned for operations that need an
	// authenticated session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionRequired is returned when a nil *Session is passed.
	ErrSessionRequired = errors.New("session required")
	// ErrSessionEnded is returned for any operation on an ended session.
	ErrSessionEnded = errors.New("session ended")
	// ErrAlreadyAuthenticated is returned by login and resume on a session
	// that is already bound to a user.
	ErrAlreadyAuthenticated = errors.New("session already authenticated")
	// ErrSessionExpired is returned by Refresh and Resume when the persisted
	// session was revoked or has lapsed.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionPersistenceDisabled is returned by Resume when the engine was
	// built without a session registry.
	ErrSessionPersistenceDisabled = errors.New("session persistence disabled")
	// ErrTokenInvalid is returned by Resume for an unparseable or forged token.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrAccountNotFound is returned by repositories for unknown usernames.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by registration for a taken username.
	ErrAccountExists = errors.New("account already exists")
	// ErrEngineNotReady is returned when methods are called on a nil engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError reports client input that must be corrected before the
// request can be evaluated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LockedError reports an active lockout and when it ends.
type LockedError struct {
	UnlockAt time.Time
}

func (e *LockedError) Error() string {
	return "account locked until " + e.UnlockAt.UTC().Format(time.RFC3339)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// UpstreamError wraps a collaborator failure. It matches
// ErrUpstreamUnavailable and the underlying cause, so a timeout is also
// context.DeadlineExceeded.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream unavailable: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

// Timeout reports whether the failure was a deadline.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UserMessage maps err to a message safe to show the end user. It never
// includes secrets or internal details, and it gives the same text for every
// credential failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var locked *LockedError
	var invalid *ValidationError
	switch {
	case errors.As(err, &locked):
		return "Account locked due to failed login attempts. Try again after " + locked.UnlockAt.Local().Format("15:04:05")
	case errors.As(err, &invalid):
		if invalid.Reason != "" && invalid.Field != "credentials" {
			return invalid.Reason
		}
		return "Please enter both username and password"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords don't match"
	case errors.Is(err, ErrCurrentPasswordInvalid):
		return "Current password is incorrect"
	case errors.Is(err, ErrPasswordTooWeak):
		return "Password is too weak"
	case errors.Is(err, ErrPasswordReuse):
		return "New password must be different from the current password"
	case errors.Is(err, ErrAccountExists):
		return "Username already exists"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrSessionEnded):
		return "Please log in first"
	case errors.Is(err, ErrAlreadyAuthenticated):
		return "Already logged in"
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrTokenInvalid):
		return "Your session has expired. Please log in again"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "Service temporarily unavailable. Please try again"
	default:
		return "Something went wrong. Please try again"
	}
}

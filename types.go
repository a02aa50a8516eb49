package goGuard

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/strength"
)

// Account is the stored user record as seen by the engine. PasswordHash is
// a PHC string and never leaves the engine.
type Account struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLogin    time.Time
	Active       bool
}

// CreateAccountInput is passed to AccountRepository.CreateAccount.
type CreateAccountInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// AccountRepository is the persistence boundary for accounts. Implementations
// return ErrAccountNotFound for unknown usernames and ErrAccountExists on a
// duplicate create. Any other error is treated as an upstream failure.
type AccountRepository interface {
	FetchAccount(ctx context.Context, username string) (Account, error)
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
	UpdateCredential(ctx context.Context, username string, passwordHash string) error
	CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error)
}

// CredentialVerifier checks a password for a username. An unknown username
// must produce (false, nil) so callers cannot tell it from a wrong password.
// A non-nil error means the check could not be performed.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, username, password string) (bool, error)
}

// CredentialVerifierFunc adapts a function to CredentialVerifier.
type CredentialVerifierFunc func(ctx context.Context, username, password string) (bool, error)

func (f CredentialVerifierFunc) VerifyCredential(ctx context.Context, username, password string) (bool, error) {
	return f(ctx, username, password)
}

// LoginStatus is the decision reached by a login attempt. LoginNoDecision
// means the attempt failed before a decision, for example on invalid input
// or an upstream failure.
type LoginStatus int

const (
	LoginNoDecision LoginStatus = iota
	LoginSuccess
	LoginInvalidCredentials
	LoginLocked
)

func (s LoginStatus) String() string {
	switch s {
	case LoginNoDecision:
		return "no_decision"
	case LoginSuccess:
		return "success"
	case LoginInvalidCredentials:
		return "invalid_credentials"
	case LoginLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// LoginResult describes a login attempt. The accompanying error is nil
// exactly when Status is LoginSuccess. UnlockAt is set only for
// LoginLocked. Token and ExpiresAt are set on success when session
// persistence is configured.
type LoginResult struct {
	Status    LoginStatus
	UnlockAt  time.Time
	Token     string
	ExpiresAt time.Time
}

// ChangeResult is the outcome of a password change. Message is safe to show
// the user.
type ChangeResult struct {
	OK      bool
	Message string
}

// RegisterRequest carries a sign-up form.
type RegisterRequest struct {
	Username        string `validate:"required,username"`
	Email           string `validate:"required,email,max=254"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// RegisterResult is the outcome of a registration. Message is safe to show
// the user.
type RegisterResult struct {
	OK      bool
	Message string
}

// Profile is the account view returned to an authenticated session.
type Profile struct {
	Username    string
	Email       string
	Role        string
	CreatedAt   time.Time
	LastLogin   time.Time
	Active      bool
	MemberDays  int
	SessionID   string
	SessionEnds time.Time
	Sessions    int
}

// StrengthReport is the scorer output plus the three-level indicator shown
// next to a login form.
type StrengthReport struct {
	strength.Result
	Indicator strength.Indicator
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that writes events to a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]. A nil logger uses slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

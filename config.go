package goGuard

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/lockout"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/strength"
)

// Config is the complete engine configuration. Obtain a baseline from
// DefaultConfig and adjust fields before passing it to Builder.WithConfig.
type Config struct {
	Lockout  LockoutConfig
	Password PasswordConfig
	Strength StrengthConfig
	Account  AccountConfig
	Session  SessionConfig
	Upstream UpstreamConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls brute-force protection.
type LockoutConfig struct {
	MaxFailures     int
	LockoutDuration time.Duration
	// FailureWindow, when > 0, restarts the failure count if the first
	// failure of the current run is older than the window.
	FailureWindow time.Duration
	// IdleTTL evicts counters that have not changed for this long.
	IdleTTL time.Duration
	// SweepInterval runs the in-memory sweeper. Zero disables it.
	SweepInterval time.Duration
	RedisPrefix   string
	// ThrottleReauthentication makes the current-password check of a
	// password change consult and feed the lockout tracker.
	ThrottleReauthentication bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	// UpgradeOnLogin re-hashes a stored credential produced with weaker
	// parameters after a successful login.
	UpgradeOnLogin bool
}

/*
====================================
STRENGTH CONFIG
====================================
*/

// StrengthConfig sets the minimum scores enforced by registration and
// password change. A zero minimum disables that gate.
type StrengthConfig struct {
	MinRegisterScore int
	MinChangeScore   int
	RejectReuse      bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	MinUsernameLength int
	DefaultRole       string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls persisted sessions. Persistence is active only
// when the engine has a Redis client and SigningKey is set.
type SessionConfig struct {
	TTL           time.Duration
	RedisPrefix   string
	SigningMethod string // "hs256" (default) or "ed25519"
	SigningKey    []byte
	VerifyKey     []byte
	Issuer        string
	// RevokeOthersOnPasswordChange ends every other persisted session of a
	// user after a successful password change.
	RevokeOthersOnPasswordChange bool
}

/*
====================================
UPSTREAM CONFIG
====================================
*/

// UpstreamConfig bounds calls to the repository, the verifier and the
// lockout backend.
type UpstreamConfig struct {
	Timeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: five failures lock a
// username for fifteen minutes, registration needs a medium password and
// password changes are not strength-gated.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Lockout: LockoutConfig{
			MaxFailures:     5,
			LockoutDuration: 15 * time.Minute,
			IdleTTL:         24 * time.Hour,
			SweepInterval:   time.Minute,
			RedisPrefix:     "gg:lockout",
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
		},
		Strength: StrengthConfig{
			MinRegisterScore: 50,
			MinChangeScore:   0,
			RejectReuse:      true,
		},
		Account: AccountConfig{
			MinUsernameLength: 3,
			DefaultRole:       "user",
		},
		Session: SessionConfig{
			TTL:                          24 * time.Hour,
			RedisPrefix:                  "gg:session",
			SigningMethod:                "hs256",
			Issuer:                       "goguard",
			RevokeOthersOnPasswordChange: true,
		},
		Upstream: UpstreamConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// HighSecurityConfig tightens DefaultConfig: three failures lock a username
// for thirty minutes, password changes are throttled and strength-gated, and
// audit is on.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Lockout.MaxFailures = 3
	cfg.Lockout.LockoutDuration = 30 * time.Minute
	cfg.Lockout.FailureWindow = time.Hour
	cfg.Lockout.ThrottleReauthentication = true
	cfg.Strength.MinRegisterScore = 70
	cfg.Strength.MinChangeScore = 70
	cfg.Session.TTL = 8 * time.Hour
	cfg.Upstream.Timeout = 3 * time.Second
	cfg.Audit.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SigningKey = cloneBytes(cfg.Session.SigningKey)
	out.Session.VerifyKey = cloneBytes(cfg.Session.VerifyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c LockoutConfig) tracker() lockout.Config {
	return lockout.Config{
		MaxFailures:     c.MaxFailures,
		LockoutDuration: c.LockoutDuration,
		FailureWindow:   c.FailureWindow,
		IdleTTL:         c.IdleTTL,
	}
}

func (c PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MaxPasswordBytes: c.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Lockout
	if err := c.Lockout.tracker().Validate(); err != nil {
		return err
	}
	if c.Lockout.SweepInterval < 0 {
		return errors.New("Lockout SweepInterval must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Strength
	if c.Strength.MinRegisterScore < 0 || c.Strength.MinRegisterScore > strength.MaxScore {
		return errors.New("Strength MinRegisterScore must be within [0, 100]")
	}
	if c.Strength.MinChangeScore < 0 || c.Strength.MinChangeScore > strength.MaxScore {
		return errors.New("Strength MinChangeScore must be within [0, 100]")
	}

	// Account
	if c.Account.MinUsernameLength < 1 {
		return errors.New("Account MinUsernameLength must be >= 1")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	switch c.Session.SigningMethod {
	case "hs256":
		if len(c.Session.SigningKey) > 0 && len(c.Session.SigningKey) < 32 {
			return errors.New("Session SigningKey must be at least 32 bytes for hs256")
		}
	case "ed25519":
	default:
		return errors.New("Session SigningMethod must be 'hs256' or 'ed25519'")
	}

	// Upstream
	if c.Upstream.Timeout < 0 {
		return errors.New("Upstream Timeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks a lint finding.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a valid setting that weakens the policy.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings returned by Lint.
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins findings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

// Lint returns settings that pass Validate but weaken the policy.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Lockout.MaxFailures > 10 {
		add("lockout_threshold_high", LintHigh, "more than 10 failures before lockout allows extended guessing")
	}
	if c.Lockout.LockoutDuration < time.Minute {
		add("lockout_duration_short", LintWarn, "lockouts shorter than one minute barely slow guessing")
	}
	if c.Strength.MinRegisterScore < 50 {
		add("register_strength_low", LintWarn, "registration accepts passwords below the medium band")
	}
	if c.Upstream.Timeout == 0 {
		add("upstream_timeout_disabled", LintHigh, "no upstream timeout; a stalled store blocks logins indefinitely")
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2 memory below 64 MiB")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are disabled")
	}
	if c.Session.SigningMethod == "hs256" && len(c.Session.SigningKey) > 0 {
		add("hs256_shared_secret", LintInfo, "hs256 shares one secret between signer and verifier")
	}
	if c.Lockout.ThrottleReauthentication && c.Lockout.MaxFailures < 3 {
		add("reauth_throttle_tight", LintWarn, "password change retries can lock the signed-in user out quickly")
	}
	return out
}

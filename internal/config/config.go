// Package config loads goguard command configuration from an optional TOML
// file and GOGUARD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	goGuard "github.com/MrEthical07/goGuard"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GOGUARD_"

// File is the on-disk and environment form of the configuration.
type File struct {
	Lockout  Lockout  `toml:"lockout" envPrefix:"LOCKOUT_"`
	Password Password `toml:"password" envPrefix:"PASSWORD_"`
	Strength Strength `toml:"strength" envPrefix:"STRENGTH_"`
	Account  Account  `toml:"account" envPrefix:"ACCOUNT_"`
	Session  Session  `toml:"session" envPrefix:"SESSION_"`
	Upstream Upstream `toml:"upstream" envPrefix:"UPSTREAM_"`
	Audit    Audit    `toml:"audit" envPrefix:"AUDIT_"`
	Metrics  Metrics  `toml:"metrics" envPrefix:"METRICS_"`
	Redis    Redis    `toml:"redis" envPrefix:"REDIS_"`
	Database Database `toml:"database" envPrefix:"DATABASE_"`
	Log      Log      `toml:"log" envPrefix:"LOG_"`
}

// Lockout mirrors goGuard.LockoutConfig.
type Lockout struct {
	MaxFailures              int           `toml:"max_failures" env:"MAX_FAILURES"`
	Duration                 time.Duration `toml:"duration" env:"DURATION"`
	FailureWindow            time.Duration `toml:"failure_window" env:"FAILURE_WINDOW"`
	IdleTTL                  time.Duration `toml:"idle_ttl" env:"IDLE_TTL"`
	SweepInterval            time.Duration `toml:"sweep_interval" env:"SWEEP_INTERVAL"`
	RedisPrefix              string        `toml:"redis_prefix" env:"REDIS_PREFIX"`
	ThrottleReauthentication bool          `toml:"throttle_reauthentication" env:"THROTTLE_REAUTHENTICATION"`
}

// Password holds Argon2id parameters.
type Password struct {
	MemoryKiB        uint32 `toml:"memory_kib" env:"MEMORY_KIB"`
	Time             uint32 `toml:"time" env:"TIME"`
	Parallelism      uint8  `toml:"parallelism" env:"PARALLELISM"`
	SaltLength       uint32 `toml:"salt_length" env:"SALT_LENGTH"`
	KeyLength        uint32 `toml:"key_length" env:"KEY_LENGTH"`
	MaxPasswordBytes int    `toml:"max_password_bytes" env:"MAX_PASSWORD_BYTES"`
	UpgradeOnLogin   bool   `toml:"upgrade_on_login" env:"UPGRADE_ON_LOGIN"`
}

// Strength holds the minimum scores for registration and password change.
type Strength struct {
	MinRegisterScore int  `toml:"min_register_score" env:"MIN_REGISTER_SCORE"`
	MinChangeScore   int  `toml:"min_change_score" env:"MIN_CHANGE_SCORE"`
	RejectReuse      bool `toml:"reject_reuse" env:"REJECT_REUSE"`
}

// Account controls registration.
type Account struct {
	MinUsernameLength int    `toml:"min_username_length" env:"MIN_USERNAME_LENGTH"`
	DefaultRole       string `toml:"default_role" env:"DEFAULT_ROLE"`
}

// Session controls persisted sessions. SigningKey is used as raw bytes.
type Session struct {
	TTL                          time.Duration `toml:"ttl" env:"TTL"`
	RedisPrefix                  string        `toml:"redis_prefix" env:"REDIS_PREFIX"`
	SigningMethod                string        `toml:"signing_method" env:"SIGNING_METHOD"`
	SigningKey                   string        `toml:"signing_key" env:"SIGNING_KEY"`
	Issuer                       string        `toml:"issuer" env:"ISSUER"`
	RevokeOthersOnPasswordChange bool          `toml:"revoke_others_on_password_change" env:"REVOKE_OTHERS_ON_PASSWORD_CHANGE"`
}

// Upstream bounds repository, verifier and lockout backend calls.
type Upstream struct {
	Timeout time.Duration `toml:"timeout" env:"TIMEOUT"`
}

// Audit controls the audit dispatcher.
type Audit struct {
	Enabled    bool `toml:"enabled" env:"ENABLED"`
	BufferSize int  `toml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `toml:"drop_if_full" env:"DROP_IF_FULL"`
}

// Metrics controls in-process counters.
type Metrics struct {
	Enabled           bool `toml:"enabled" env:"ENABLED"`
	LatencyHistograms bool `toml:"latency_histograms" env:"LATENCY_HISTOGRAMS"`
}

// Redis selects the shared backend. An empty Addr disables Redis.
type Redis struct {
	Addr     string `toml:"addr" env:"ADDR"`
	Password string `toml:"password" env:"PASSWORD"`
	DB       int    `toml:"db" env:"DB"`
}

// Database selects the account repository. An empty DSN uses the
// in-memory repository.
type Database struct {
	Dialect string `toml:"dialect" env:"DIALECT"`
	DSN     string `toml:"dsn" env:"DSN"`
}

// Log configures the process logger.
type Log struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Default returns the file form of goGuard.DefaultConfig plus local
// defaults for the process-level sections.
func Default() File {
	return FromEngine(goGuard.DefaultConfig())
}

// FromEngine converts an engine configuration into its file form.
func FromEngine(cfg goGuard.Config) File {
	return File{
		Lockout: Lockout{
			MaxFailures:              cfg.Lockout.MaxFailures,
			Duration:                 cfg.Lockout.LockoutDuration,
			FailureWindow:            cfg.Lockout.FailureWindow,
			IdleTTL:                  cfg.Lockout.IdleTTL,
			SweepInterval:            cfg.Lockout.SweepInterval,
			RedisPrefix:              cfg.Lockout.RedisPrefix,
			ThrottleReauthentication: cfg.Lockout.ThrottleReauthentication,
		},
		Password: Password{
			MemoryKiB:        cfg.Password.Memory,
			Time:             cfg.Password.Time,
			Parallelism:      cfg.Password.Parallelism,
			SaltLength:       cfg.Password.SaltLength,
			KeyLength:        cfg.Password.KeyLength,
			MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
			UpgradeOnLogin:   cfg.Password.UpgradeOnLogin,
		},
		Strength: Strength{
			MinRegisterScore: cfg.Strength.MinRegisterScore,
			MinChangeScore:   cfg.Strength.MinChangeScore,
			RejectReuse:      cfg.Strength.RejectReuse,
		},
		Account: Account{
			MinUsernameLength: cfg.Account.MinUsernameLength,
			DefaultRole:       cfg.Account.DefaultRole,
		},
		Session: Session{
			TTL:                          cfg.Session.TTL,
			RedisPrefix:                  cfg.Session.RedisPrefix,
			SigningMethod:                cfg.Session.SigningMethod,
			SigningKey:                   string(cfg.Session.SigningKey),
			Issuer:                       cfg.Session.Issuer,
			RevokeOthersOnPasswordChange: cfg.Session.RevokeOthersOnPasswordChange,
		},
		Upstream: Upstream{Timeout: cfg.Upstream.Timeout},
		Audit: Audit{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		},
		Metrics: Metrics{
			Enabled:           cfg.Metrics.Enabled,
			LatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		},
		Database: Database{Dialect: "sqlite"},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load starts from Default, overlays the TOML file at path when path is
// non-empty, then overlays GOGUARD_* environment variables.
func Load(path string) (File, error) {
	return load(path, nil)
}

func load(path string, environment map[string]string) (File, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return File{}, fmt.Errorf("config file: %w", err)
		}
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return File{}, fmt.Errorf("failed to decode TOML file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return File{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return File{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Engine converts the file form into a validated goGuard.Config.
func (f File) Engine() (goGuard.Config, error) {
	cfg := goGuard.DefaultConfig()

	cfg.Lockout.MaxFailures = f.Lockout.MaxFailures
	cfg.Lockout.LockoutDuration = f.Lockout.Duration
	cfg.Lockout.FailureWindow = f.Lockout.FailureWindow
	cfg.Lockout.IdleTTL = f.Lockout.IdleTTL
	cfg.Lockout.SweepInterval = f.Lockout.SweepInterval
	cfg.Lockout.RedisPrefix = f.Lockout.RedisPrefix
	cfg.Lockout.ThrottleReauthentication = f.Lockout.ThrottleReauthentication

	cfg.Password.Memory = f.Password.MemoryKiB
	cfg.Password.Time = f.Password.Time
	cfg.Password.Parallelism = f.Password.Parallelism
	cfg.Password.SaltLength = f.Password.SaltLength
	cfg.Password.KeyLength = f.Password.KeyLength
	cfg.Password.MaxPasswordBytes = f.Password.MaxPasswordBytes
	cfg.Password.UpgradeOnLogin = f.Password.UpgradeOnLogin

	cfg.Strength.MinRegisterScore = f.Strength.MinRegisterScore
	cfg.Strength.MinChangeScore = f.Strength.MinChangeScore
	cfg.Strength.RejectReuse = f.Strength.RejectReuse

	cfg.Account.MinUsernameLength = f.Account.MinUsernameLength
	cfg.Account.DefaultRole = f.Account.DefaultRole

	cfg.Session.TTL = f.Session.TTL
	cfg.Session.RedisPrefix = f.Session.RedisPrefix
	cfg.Session.SigningMethod = f.Session.SigningMethod
	cfg.Session.SigningKey = nil
	if f.Session.SigningKey != "" {
		cfg.Session.SigningKey = []byte(f.Session.SigningKey)
	}
	cfg.Session.Issuer = f.Session.Issuer
	cfg.Session.RevokeOthersOnPasswordChange = f.Session.RevokeOthersOnPasswordChange

	cfg.Upstream.Timeout = f.Upstream.Timeout

	cfg.Audit.Enabled = f.Audit.Enabled
	cfg.Audit.BufferSize = f.Audit.BufferSize
	cfg.Audit.DropIfFull = f.Audit.DropIfFull

	cfg.Metrics.Enabled = f.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = f.Metrics.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return goGuard.Config{}, err
	}
	return cfg, nil
}

// ErrNoRedis is returned by RedisRequired when no address is configured.
var ErrNoRedis = errors.New("config: redis address not set")

// RedisRequired reports ErrNoRedis when the file has no Redis address.
func (f File) RedisRequired() error {
	if f.Redis.Addr == "" {
		return ErrNoRedis
	}
	return nil
}

package goGuard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/lockout"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/session"
)

// Builder assembles an Engine. Configure it once during initialization and
// call Build; a Builder cannot be reused.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	repo      AccountRepository
	verifier  CredentialVerifier
	tracker   lockout.Tracker
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis shares lockout state through Redis and, together with
// Session.SigningKey, enables persisted sessions.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRepository sets the account store. It is required.
func (b *Builder) WithRepository(repo AccountRepository) *Builder {
	b.repo = repo
	return b
}

// WithVerifier replaces the default HashVerifier. Hash upgrades on login are
// skipped for custom verifiers.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLockoutTracker overrides the tracker chosen from the Redis setting.
func (b *Builder) WithLockoutTracker(t lockout.Tracker) *Builder {
	b.tracker = t
	return b
}

// WithAuditSink sets the audit destination. Audit.Enabled must also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Nil uses slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source used for lockouts, sessions and audit.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.repo == nil {
		return nil, errors.New("account repository required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:  cfg,
		repo:    b.repo,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger.With("component", "goguard"),
		now:     clock,
		newID:   uuid.NewString,
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	validate, err := newRegistrationValidator(cfg.Account.MinUsernameLength)
	if err != nil {
		return nil, err
	}
	engine.validate = validate

	engine.verifier = b.verifier
	if engine.verifier == nil {
		engine.verifier = NewHashVerifier(b.repo, hasher)
		engine.hashVerifier = true
	}

	// -------- LOCKOUT TRACKER --------
	switch {
	case b.tracker != nil:
		engine.tracker = b.tracker
	case b.redis != nil:
		rt, err := lockout.NewRedisTracker(b.redis, cfg.Lockout.RedisPrefix, cfg.Lockout.tracker(), clock)
		if err != nil {
			return nil, err
		}
		engine.tracker = rt
	default:
		mt, err := lockout.NewMemoryTracker(cfg.Lockout.tracker(), clock)
		if err != nil {
			return nil, err
		}
		mt.StartSweeper(cfg.Lockout.SweepInterval)
		engine.tracker = mt
		engine.memTracker = mt
	}

	// -------- SESSION REGISTRY --------
	if b.redis != nil && len(cfg.Session.SigningKey) > 0 {
		tokens, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Session.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Session.SigningKey),
			PublicKey:     cloneBytes(cfg.Session.VerifyKey),
			Issuer:        cfg.Session.Issuer,
			Now:           clock,
		})
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("session tokens: %w", err)
		}
		engine.tokens = tokens
		engine.sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix, clock)
	}

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, func() {
		engine.metricInc(MetricAuditDropped)
	})

	b.built = true

	return engine, nil
}

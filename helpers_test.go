package goGuard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/password"
)

const (
	testUser     = "alice"
	testPassword = "Correct#Horse9"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockRepository struct {
	mu       sync.Mutex
	accounts map[string]Account

	fetchCalls      atomic.Int64
	credentialCalls atomic.Int64

	fetchErr     error
	fetchDelay   time.Duration
	updateErr    error
	lastLoginErr error
	createErr    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{accounts: make(map[string]Account)}
}

func (r *mockRepository) add(t *testing.T, hasher *password.Argon2, username, pw string) {
	t.Helper()
	hash, err := hasher.Hash(pw)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	r.mu.Lock()
	r.accounts[username] = Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         "user",
		CreatedAt:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Active:       true,
	}
	r.mu.Unlock()
}

func (r *mockRepository) get(username string) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	return a, ok
}

func (r *mockRepository) setActive(username string, active bool) {
	r.mu.Lock()
	a := r.accounts[username]
	a.Active = active
	r.accounts[username] = a
	r.mu.Unlock()
}

func (r *mockRepository) FetchAccount(ctx context.Context, username string) (Account, error) {
	r.fetchCalls.Add(1)
	if r.fetchDelay > 0 {
		select {
		case <-time.After(r.fetchDelay):
		case <-ctx.Done():
			return Account{}, ctx.Err()
		}
	}
	if r.fetchErr != nil {
		return Account{}, r.fetchErr
	}
	a, ok := r.get(username)
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (r *mockRepository) UpdateLastLogin(_ context.Context, username string, at time.Time) error {
	if r.lastLoginErr != nil {
		return r.lastLoginErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}
	a.LastLogin = at
	r.accounts[username] = a
	return nil
}

func (r *mockRepository) UpdateCredential(_ context.Context, username, hash string) error {
	r.credentialCalls.Add(1)
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = hash
	r.accounts[username] = a
	return nil
}

func (r *mockRepository) CreateAccount(_ context.Context, in CreateAccountInput) (Account, error) {
	if r.createErr != nil {
		return Account{}, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[in.Username]; ok {
		return Account{}, ErrAccountExists
	}
	a := Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    in.CreatedAt,
		Active:       true,
	}
	r.accounts[in.Username] = a
	return a, nil
}

type countingVerifier struct {
	inner CredentialVerifier
	calls atomic.Int64
}

func (v *countingVerifier) VerifyCredential(ctx context.Context, username, pw string) (bool, error) {
	v.calls.Add(1)
	return v.inner.VerifyCredential(ctx, username, pw)
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Lockout.SweepInterval = 0
	cfg.Upstream.Timeout = time.Second
	return cfg
}

func testHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	cfg := testEngineConfig()
	h, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

type testEnv struct {
	engine *Engine
	repo   *mockRepository
	clock  *fakeClock
	redis  *miniredis.Miniredis
}

type testOption func(*Builder, *testEnv)

func withConfig(mutate func(*Config)) testOption {
	return func(b *Builder, _ *testEnv) {
		mutate(&b.config)
	}
}

func withSessions() testOption {
	return func(b *Builder, env *testEnv) {
		b.config.Session.SigningKey = testSigningKey
		b.WithRedis(redis.NewClient(&redis.Options{Addr: env.redis.Addr()}))
	}
}

func withVerifier(v CredentialVerifier) testOption {
	return func(b *Builder, _ *testEnv) {
		b.WithVerifier(v)
	}
}

func withAudit(sink AuditSink) testOption {
	return func(b *Builder, _ *testEnv) {
		b.config.Audit.Enabled = true
		b.config.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	}
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	env := &testEnv{
		repo:  newMockRepository(),
		clock: newFakeClock(),
		redis: mr,
	}
	env.repo.add(t, testHasher(t), testUser, testPassword)

	b := New().
		WithConfig(testEngineConfig()).
		WithRepository(env.repo).
		WithClock(env.clock.Now).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b, env)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) login(t *testing.T, sess *Session) LoginResult {
	t.Helper()
	res, err := env.engine.AttemptLogin(context.Background(), sess, testUser, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}

func (env *testEnv) failures(t *testing.T, username string) int {
	t.Helper()
	n, err := env.engine.FailedAttempts(context.Background(), username)
	if err != nil {
		t.Fatalf("FailedAttempts error: %v", err)
	}
	return n
}

func isUpstream(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up) && errors.Is(err, ErrUpstreamUnavailable)
}

package test

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/store/memory"
)

const (
	testPassword = "Correct#Horse9"
	otherPassword = "Other#Horse10"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// redisMode describes which Redis backend a suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns miniredis and, when GOGUARD_REDIS_ADDR is set, a real
// Redis server. The real server is flushed before use.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{name: "miniredis", setup: newMiniredis}}

	if addr := os.Getenv("GOGUARD_REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "redis",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				if err := rdb.FlushDB(context.Background()).Err(); err != nil {
					t.Skipf("redis at %s unavailable: %v", addr, err)
				}
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		})
	}
	return modes
}

func newMiniredis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func testConfig() goGuard.Config {
	cfg := goGuard.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Lockout.SweepInterval = 0
	cfg.Session.SigningKey = testSigningKey
	return cfg
}

// buildEngine builds an engine with persisted sessions. Engines built
// on the same client and repository behave like replicas of one service.
func buildEngine(t *testing.T, rdb redis.UniversalClient, repo goGuard.AccountRepository) *goGuard.Engine {
	t.Helper()
	engine, err := goGuard.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithRepository(repo).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func register(t *testing.T, engine *goGuard.Engine, username string) {
	t.Helper()
	res, err := engine.RegisterAccount(context.Background(), goGuard.RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil || !res.OK {
		t.Fatalf("RegisterAccount failed: %v (%s)", err, res.Message)
	}
}

func login(t *testing.T, engine *goGuard.Engine, username, pw string) (*goGuard.Session, goGuard.LoginResult) {
	t.Helper()
	sess := goGuard.NewSession()
	res, err := engine.AttemptLogin(context.Background(), sess, username, pw)
	if err != nil {
		t.Fatalf("AttemptLogin(%s) failed: %v", username, err)
	}
	return sess, res
}

func newMemoryRepo() *memory.Repository {
	return memory.New()
}

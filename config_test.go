package goGuard

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Lockout.MaxFailures != 5 || cfg.Lockout.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults %+v", cfg.Lockout)
	}
	if cfg.Strength.MinRegisterScore != 50 || cfg.Strength.MinChangeScore != 0 {
		t.Fatalf("unexpected strength defaults %+v", cfg.Strength)
	}
	if cfg.Lockout.ThrottleReauthentication {
		t.Fatal("re-authentication must be unthrottled by default")
	}
}

func TestHighSecurityConfigValidates(t *testing.T) {
	cfg := HighSecurityConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("high security preset must validate: %v", err)
	}
	if !cfg.Lockout.ThrottleReauthentication || cfg.Strength.MinChangeScore == 0 || !cfg.Audit.Enabled {
		t.Fatalf("unexpected preset %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{"zero max failures", func(c *Config) { c.Lockout.MaxFailures = 0 }, false},
		{"zero lockout duration", func(c *Config) { c.Lockout.LockoutDuration = 0 }, false},
		{"negative window", func(c *Config) { c.Lockout.FailureWindow = -time.Second }, false},
		{"negative sweep", func(c *Config) { c.Lockout.SweepInterval = -time.Second }, false},
		{"window ok", func(c *Config) { c.Lockout.FailureWindow = time.Hour }, true},
		{"argon memory low", func(c *Config) { c.Password.Memory = 1024 }, false},
		{"argon time zero", func(c *Config) { c.Password.Time = 0 }, false},
		{"argon parallelism zero", func(c *Config) { c.Password.Parallelism = 0 }, false},
		{"salt short", func(c *Config) { c.Password.SaltLength = 8 }, false},
		{"key short", func(c *Config) { c.Password.KeyLength = 8 }, false},
		{"negative max bytes", func(c *Config) { c.Password.MaxPasswordBytes = -1 }, false},
		{"register score over max", func(c *Config) { c.Strength.MinRegisterScore = 101 }, false},
		{"change score negative", func(c *Config) { c.Strength.MinChangeScore = -1 }, false},
		{"change score set", func(c *Config) { c.Strength.MinChangeScore = 70 }, true},
		{"username length zero", func(c *Config) { c.Account.MinUsernameLength = 0 }, false},
		{"session ttl zero", func(c *Config) { c.Session.TTL = 0 }, false},
		{"signing method unknown", func(c *Config) { c.Session.SigningMethod = "rs256" }, false},
		{"hs256 short key", func(c *Config) { c.Session.SigningKey = []byte("short") }, false},
		{"hs256 key ok", func(c *Config) { c.Session.SigningKey = testSigningKey }, true},
		{"negative timeout", func(c *Config) { c.Upstream.Timeout = -time.Second }, false},
		{"no timeout", func(c *Config) { c.Upstream.Timeout = 0 }, true},
		{"audit zero buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderRequiresRepository(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testEngineConfig()).WithRepository(newMockRepository())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Lockout.MaxFailures = 0
	if _, err := New().WithConfig(cfg).WithRepository(newMockRepository()).Build(); err == nil {
		t.Fatal("expected invalid config to fail Build")
	}
}

func TestBuilderCopiesConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Session.SigningKey = append([]byte(nil), testSigningKey...)

	b := New().WithConfig(cfg).WithRepository(newMockRepository())
	cfg.Session.SigningKey[0] = 'X'

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.config.Session.SigningKey[0] != '0' {
		t.Fatal("builder must not alias caller key material")
	}
	if engine.SessionPersistence() {
		t.Fatal("persistence requires redis")
	}
}

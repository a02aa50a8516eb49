package goGuard

import (
	"testing"
	"time"
)

func TestLint_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	ws := cfg.Lint()

	if err := ws.AsError(LintHigh); err != nil {
		t.Fatalf("default config should have no HIGH findings: %v", err)
	}
	if !containsCode(ws.Codes(), "audit_disabled") {
		t.Fatal("expected audit_disabled info")
	}
}

func TestLint_HighSecurityConfigMinimalWarnings(t *testing.T) {
	cfg := HighSecurityConfig()
	ws := cfg.Lint()

	if len(ws.BySeverity(LintWarn)) != 0 {
		t.Fatalf("high security preset should have no warnings, got %v", ws.Codes())
	}
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		code     string
		severity LintSeverity
		mutate   func(*Config)
	}{
		{"lockout_threshold_high", LintHigh, func(c *Config) { c.Lockout.MaxFailures = 20 }},
		{"lockout_duration_short", LintWarn, func(c *Config) { c.Lockout.LockoutDuration = 30 * time.Second }},
		{"register_strength_low", LintWarn, func(c *Config) { c.Strength.MinRegisterScore = 30 }},
		{"upstream_timeout_disabled", LintHigh, func(c *Config) { c.Upstream.Timeout = 0 }},
		{"argon2_memory_low", LintWarn, func(c *Config) { c.Password.Memory = 8 * 1024 }},
		{"hs256_shared_secret", LintInfo, func(c *Config) { c.Session.SigningKey = testSigningKey }},
		{"reauth_throttle_tight", LintWarn, func(c *Config) {
			c.Lockout.ThrottleReauthentication = true
			c.Lockout.MaxFailures = 2
		}},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			var found bool
			for _, w := range cfg.Lint() {
				if w.Code == tc.code {
					found = true
					if w.Severity != tc.severity {
						t.Fatalf("severity = %s, want %s", w.Severity, tc.severity)
					}
				}
			}
			if !found {
				t.Fatalf("expected %s finding", tc.code)
			}
		})
	}
}

func TestLint_NoWarningForGoodArgon2(t *testing.T) {
	cfg := DefaultConfig()
	if containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Fatal("should not warn at 64 MiB")
	}
}

func TestLint_AsErrorAndBySeverity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upstream.Timeout = 0
	ws := cfg.Lint()

	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
	for _, w := range ws.BySeverity(LintHigh) {
		if w.Severity < LintHigh {
			t.Fatalf("BySeverity(LintHigh) returned %s", w.Severity)
		}
	}
	if len(ws.BySeverity(LintInfo)) != len(ws) {
		t.Fatal("BySeverity(LintInfo) must return everything")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

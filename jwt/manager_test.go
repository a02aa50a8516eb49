package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func hsConfig(clock *stepClock) Config {
	return Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte(strings.Repeat("k", 32)),
		Issuer:        "goguard",
		Now:           clock.Now,
	}
}

func TestIssueAndParseHS256(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(hsConfig(clock))
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	token, expires, err := m.Issue("alice", "sid-1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !expires.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expires)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != "alice" || claims.SID != "sid-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseExpired(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, _ := NewManager(hsConfig(clock))

	token, _, _ := m.Issue("alice", "sid-1")
	clock.now = clock.now.Add(2 * time.Hour)

	if _, err := m.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	clock := &stepClock{now: time.Now()}
	m, _ := NewManager(hsConfig(clock))

	other := hsConfig(clock)
	other.PrivateKey = []byte(strings.Repeat("z", 32))
	foreign, _ := NewManager(other)

	token, _, _ := foreign.Issue("alice", "sid-1")
	if _, err := m.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	clock := &stepClock{now: time.Now()}
	m, _ := NewManager(hsConfig(clock))

	token, _, _ := m.Issue("alice", "sid-1")
	tampered := token[:len(token)-2] + "xx"
	if _, err := m.Parse(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := m.Parse("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestEd25519DerivesPublicKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	token, _, err := m.Issue("bob", "sid-2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != "bob" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestAlgorithmConfusionRejected(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	ed, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv})
	hs, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("s", 32))})

	token, _, _ := hs.Issue("mallory", "sid")
	if _, err := ed.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	bad := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32))},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte(strings.Repeat("k", 32))},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32)), Leeway: time.Hour},
	}
	for i, cfg := range bad {
		if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

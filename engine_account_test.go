package goGuard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRegisterAccount(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
		wantMsg string
	}{
		{
			name:    "success",
			req:     RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantMsg: "Account created successfully! Please log in.",
		},
		{
			name:    "short username",
			req:     RegisterRequest{Username: "bo", Email: "bo@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrValidation,
			wantMsg: "Username must be at least 3 characters",
		},
		{
			name:    "invalid email",
			req:     RegisterRequest{Username: "carol", Email: "carol.example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrValidation,
			wantMsg: "Please enter a valid email address",
		},
		{
			name:    "display name email",
			req:     RegisterRequest{Username: "carol", Email: "Carol <carol@example.com>", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrValidation,
			wantMsg: "Please enter a valid email address",
		},
		{
			name:    "padded username",
			req:     RegisterRequest{Username: " bob", Email: "bob@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrValidation,
			wantMsg: "Username must be at least 3 characters",
		},
		{
			name:    "overlong email",
			req:     RegisterRequest{Username: "carol", Email: strings.Repeat("c", 250) + "@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrValidation,
			wantMsg: "Please enter a valid email address",
		},
		{
			name:    "empty password",
			req:     RegisterRequest{Username: "dave", Email: "dave@example.com"},
			wantErr: ErrValidation,
			wantMsg: "Please choose a password",
		},
		{
			name:    "mismatch",
			req:     RegisterRequest{Username: "dave", Email: "dave@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret2"},
			wantErr: ErrPasswordMismatch,
			wantMsg: "Passwords don't match",
		},
		{
			name:    "weak password",
			req:     RegisterRequest{Username: "erin", Email: "erin@example.com", Password: "password", ConfirmPassword: "password"},
			wantErr: ErrPasswordTooWeak,
			wantMsg: "Password is too weak",
		},
		{
			name:    "duplicate",
			req:     RegisterRequest{Username: testUser, Email: "a2@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"},
			wantErr: ErrAccountExists,
			wantMsg: "Username already exists",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			res, err := env.engine.RegisterAccount(context.Background(), tc.req)
			if tc.wantErr == nil {
				if err != nil || !res.OK {
					t.Fatalf("expected success, got %+v %v", res, err)
				}
			} else if !errors.Is(err, tc.wantErr) || res.OK {
				t.Fatalf("expected %v, got %+v %v", tc.wantErr, res, err)
			}
			if res.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", res.Message, tc.wantMsg)
			}
		})
	}
}

func TestRegisteredAccountCanLogIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret"}
	if _, err := env.engine.RegisterAccount(ctx, req); err != nil {
		t.Fatalf("RegisterAccount failed: %v", err)
	}

	account, ok := env.repo.get("bob")
	if !ok {
		t.Fatal("expected account created")
	}
	if account.PasswordHash == req.Password || account.Role != "user" || !account.CreatedAt.Equal(env.clock.Now()) {
		t.Fatalf("unexpected stored account %+v", account)
	}

	sess := NewSession()
	if _, err := env.engine.AttemptLogin(ctx, sess, "bob", "Sup3r#Secret"); err != nil {
		t.Fatalf("login after registration failed: %v", err)
	}
}

func TestRegisterTrimsEmail(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.RegisterAccount(context.Background(), RegisterRequest{
		Username: "bob", Email: "  bob@example.com ", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret",
	})
	if err != nil || !res.OK {
		t.Fatalf("expected success, got %+v %v", res, err)
	}
	if account, _ := env.repo.get("bob"); account.Email != "bob@example.com" {
		t.Fatalf("stored email = %q", account.Email)
	}
}

func TestRegisterUsernameMinimumFollowsConfig(t *testing.T) {
	env := newTestEnv(t, withConfig(func(cfg *Config) {
		cfg.Account.MinUsernameLength = 6
	}))
	ctx := context.Background()

	res, err := env.engine.RegisterAccount(ctx, RegisterRequest{
		Username: "bobby", Email: "bobby@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret",
	})
	if !errors.Is(err, ErrValidation) || res.Message != "Username must be at least 6 characters" {
		t.Fatalf("expected username validation error, got %+v %v", res, err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "username" {
		t.Fatalf("expected username field error, got %v", err)
	}

	if _, err := env.engine.RegisterAccount(ctx, RegisterRequest{
		Username: "bobbie", Email: "bobbie@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret",
	}); err != nil {
		t.Fatalf("expected six-character username to register, got %v", err)
	}
}

func TestRegisterUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createErr = errors.New("db down")

	res, err := env.engine.RegisterAccount(context.Background(), RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "Sup3r#Secret", ConfirmPassword: "Sup3r#Secret",
	})
	if !isUpstream(err) || res.OK {
		t.Fatalf("expected upstream error, got %+v %v", res, err)
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Profile(ctx, NewSession()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	sess := NewSession()
	env.login(t, sess)

	p, err := env.engine.Profile(ctx, sess)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.Username != testUser || p.Email != testUser+"@example.com" || !p.Active {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.MemberDays != 59 {
		t.Fatalf("member days = %d, want 59", p.MemberDays)
	}
	if !p.LastLogin.Equal(env.clock.Now()) {
		t.Fatalf("unexpected last login %v", p.LastLogin)
	}
}

func TestProfileDeletedAccountLogsOut(t *testing.T) {
	env := newTestEnv(t)
	sess := NewSession()
	env.login(t, sess)

	env.repo.mu.Lock()
	delete(env.repo.accounts, testUser)
	env.repo.mu.Unlock()

	if _, err := env.engine.Profile(context.Background(), sess); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if sess.IsAuthenticated() {
		t.Fatal("expected session cleared")
	}
}

func TestUnlockAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = env.engine.AttemptLogin(ctx, NewSession(), testUser, "wrong")
	}
	if locked, _, _ := env.engine.IsAccountLocked(ctx, testUser); !locked {
		t.Fatal("expected lock")
	}

	if err := env.engine.UnlockAccount(ctx, testUser); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}
	if locked, _, _ := env.engine.IsAccountLocked(ctx, testUser); locked {
		t.Fatal("expected unlock")
	}
	if err := env.engine.UnlockAccount(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordFailedLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var last time.Time
	for i := 1; i <= 5; i++ {
		state, err := env.engine.RecordFailedLogin(ctx, "bob")
		if err != nil {
			t.Fatalf("RecordFailedLogin failed: %v", err)
		}
		if state.Failures != i {
			t.Fatalf("failures = %d, want %d", state.Failures, i)
		}
		last = state.LockedUntil
	}
	if !last.Equal(env.clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected lock time %v", last)
	}
}

func TestFailedAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = env.engine.AttemptLogin(ctx, NewSession(), testUser, "wrong")
	}
	n, err := env.engine.FailedAttempts(ctx, testUser)
	if err != nil || n != 3 {
		t.Fatalf("FailedAttempts = %d %v, want 3", n, err)
	}
	if _, err := env.engine.FailedAttempts(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScorePasswordStrength(t *testing.T) {
	env := newTestEnv(t)

	for _, pw := range []string{"", "a", "abcdefgh", "Abcdefg1!", "ÄÖÜäöü12!!"} {
		r := env.engine.ScorePasswordStrength(pw)
		if r.Score < 0 || r.Score > 100 {
			t.Fatalf("score out of range for %q: %d", pw, r.Score)
		}
	}
	if r := env.engine.ScorePasswordStrength("Abcdefg1!"); r.Score != 100 || r.Band.String() != "very-strong" || r.Indicator.String() != "strong" {
		t.Fatalf("unexpected report %+v", r)
	}
	if r := env.engine.ScorePasswordStrength(""); r.Score != 0 || r.Band.String() != "very-weak" {
		t.Fatalf("unexpected empty report %+v", r)
	}
}

package test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/store/sqlstore"
)

type repoCase struct {
	name string
	open func(t *testing.T) goGuard.AccountRepository
}

func repositories() []repoCase {
	return []repoCase{
		{
			name: "memory",
			open: func(*testing.T) goGuard.AccountRepository { return newMemoryRepo() },
		},
		{
			name: "sqlite",
			open: func(t *testing.T) goGuard.AccountRepository {
				t.Helper()
				path := filepath.Join(t.TempDir(), "goguard.db")
				store, err := sqlstore.Open(context.Background(), sqlstore.SQLite, path)
				if err != nil {
					t.Fatalf("sqlstore.Open failed: %v", err)
				}
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}
}

// Every repository must drive the engine to the same observable outcomes.
func TestRepositoriesBehaveAlike(t *testing.T) {
	for _, rc := range repositories() {
		t.Run(rc.name, func(t *testing.T) {
			ctx := context.Background()
			engine := buildEngine(t, newMiniredis(t), rc.open(t))

			register(t, engine, "alice")

			_, err := engine.RegisterAccount(ctx, goGuard.RegisterRequest{
				Username:        "alice",
				Email:           "other@example.com",
				Password:        testPassword,
				ConfirmPassword: testPassword,
			})
			if !errors.Is(err, goGuard.ErrAccountExists) {
				t.Fatalf("expected ErrAccountExists, got %v", err)
			}

			sess, _ := login(t, engine, "alice", testPassword)

			profile, err := engine.Profile(ctx, sess)
			if err != nil {
				t.Fatalf("Profile failed: %v", err)
			}
			if profile.Email != "alice@example.com" || profile.Role != "user" || !profile.Active {
				t.Fatalf("unexpected profile %+v", profile)
			}
			if profile.LastLogin.IsZero() {
				t.Fatal("expected last login to be recorded")
			}

			res, err := engine.ChangePassword(ctx, sess, testPassword, otherPassword, otherPassword)
			if err != nil || !res.OK {
				t.Fatalf("ChangePassword failed: %v (%s)", err, res.Message)
			}
			if err := engine.Logout(ctx, sess); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}

			if _, err := engine.AttemptLogin(ctx, goGuard.NewSession(), "alice", testPassword); !errors.Is(err, goGuard.ErrInvalidCredentials) {
				t.Fatalf("old password must fail, got %v", err)
			}
			login(t, engine, "alice", otherPassword)

			if _, err := engine.AttemptLogin(ctx, goGuard.NewSession(), "nobody", testPassword); !errors.Is(err, goGuard.ErrInvalidCredentials) {
				t.Fatalf("unknown user must fail like a wrong password, got %v", err)
			}
		})
	}
}

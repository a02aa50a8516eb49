package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
)

func TestRefreshLogoutRace(t *testing.T) {
	ctx := context.Background()
	engine := buildEngine(t, newMiniredis(t), newMemoryRepo())
	register(t, engine, "alice")
	_, res := login(t, engine, "alice", testPassword)

	const workers = 16
	sessions := make([]*goGuard.Session, workers)
	for i := range sessions {
		sessions[i] = goGuard.NewSession()
		if err := engine.Resume(ctx, sessions[i], res.Token); err != nil {
			t.Fatalf("Resume %d failed: %v", i, err)
		}
	}

	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i, sess := range sessions {
		wg.Add(1)
		go func(i int, sess *goGuard.Session) {
			defer wg.Done()
			<-start
			if i == 0 {
				errs <- engine.Logout(ctx, sess)
				return
			}
			errs <- engine.Refresh(ctx, sess)
		}(i, sess)
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !errors.Is(err, goGuard.ErrSessionExpired) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := engine.Resume(ctx, goGuard.NewSession(), res.Token); !errors.Is(err, goGuard.ErrSessionExpired) {
		t.Fatalf("expected session gone after logout, got %v", err)
	}
	for i, sess := range sessions[1:] {
		want := goGuard.ErrSessionExpired
		if !sess.IsAuthenticated() {
			// A refresh that lost the race already cleared this session.
			want = goGuard.ErrUnauthenticated
		}
		if err := engine.Refresh(ctx, sess); !errors.Is(err, want) {
			t.Fatalf("session %d: expected %v after logout, got %v", i+1, want, err)
		}
		if sess.IsAuthenticated() {
			t.Fatalf("session %d: failed refresh must drop the session to anonymous", i+1)
		}
	}
}

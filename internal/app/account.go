package app

import (
	"context"
	"log"
	"time"

	"healthlog/internal/domain"
)

// DefaultPullWait is how long sign-in waits for the initial remote pull.
const DefaultPullWait = 10 * time.Second

// LoadWithDeadline starts store.LoadFromRemote and waits at most wait for it.
// The pull is not cancelled when the wait runs out; it finishes in the
// background and its snapshot still lands in the store. done reports
// whether the pull finished in time, loaded whether it succeeded.
func LoadWithDeadline(ctx context.Context, store *Store, wait time.Duration) (loaded, done bool) {
	result := make(chan bool, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		result <- store.LoadFromRemote(bg)
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ok := <-result:
		return ok, true
	case <-timer.C:
		return false, false
	case <-ctx.Done():
		return false, false
	}
}

// BindSession connects sign-in and sign-out to the local store: signing in
// claims the local tree for the user and pulls their remote data, signing
// out clears local data.
func BindSession(auth *AuthService, store *Store, wait time.Duration, logger *log.Logger) {
	if wait <= 0 {
		wait = DefaultPullWait
	}
	auth.OnSignIn(func(ctx context.Context, user *domain.User) {
		store.Claim(ctx, user.ID)
		loaded, done := LoadWithDeadline(ctx, store, wait)
		switch {
		case !done:
			logger.Printf("pull for %s still running after %s", user.Email, wait)
		case !loaded:
			logger.Printf("pull for %s failed, keeping local data", user.Email)
		}
	})
	auth.OnSignOut(func(ctx context.Context) {
		store.Reset()
	})
}

// Package memory provides an in-process goGuard.AccountRepository for
// single-instance deployments, demos and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

// Repository keeps accounts in a map guarded by a RWMutex. Usernames are
// case-sensitive.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]goGuard.Account
}

var _ goGuard.AccountRepository = (*Repository)(nil)

// New returns an empty repository.
func New() *Repository {
	return &Repository{
		accounts: make(map[string]goGuard.Account),
	}
}

// Put inserts or replaces an account.
func (r *Repository) Put(a goGuard.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.Username] = a
}

// SetActive toggles the active flag. It returns goGuard.ErrAccountNotFound
// for unknown usernames.
func (r *Repository) SetActive(username string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[username]
	if !ok {
		return goGuard.ErrAccountNotFound
	}
	a.Active = active
	r.accounts[username] = a
	return nil
}

// Usernames returns every stored username in sorted order.
func (r *Repository) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FetchAccount implements goGuard.AccountRepository.
func (r *Repository) FetchAccount(ctx context.Context, username string) (goGuard.Account, error) {
	if err := ctx.Err(); err != nil {
		return goGuard.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[username]
	if !ok {
		return goGuard.Account{}, goGuard.ErrAccountNotFound
	}
	return a, nil
}

// UpdateLastLogin implements goGuard.AccountRepository.
func (r *Repository) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	return r.update(ctx, username, func(a *goGuard.Account) {
		a.LastLogin = at
	})
}

// UpdateCredential implements goGuard.AccountRepository.
func (r *Repository) UpdateCredential(ctx context.Context, username, passwordHash string) error {
	return r.update(ctx, username, func(a *goGuard.Account) {
		a.PasswordHash = passwordHash
	})
}

// CreateAccount implements goGuard.AccountRepository.
func (r *Repository) CreateAccount(ctx context.Context, in goGuard.CreateAccountInput) (goGuard.Account, error) {
	if err := ctx.Err(); err != nil {
		return goGuard.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[in.Username]; ok {
		return goGuard.Account{}, goGuard.ErrAccountExists
	}
	a := goGuard.Account{
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

func (r *Repository) update(ctx context.Context, username string, fn func(*goGuard.Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[username]
	if !ok {
		return goGuard.ErrAccountNotFound
	}
	fn(&a)
	r.accounts[username] = a
	return nil
}

package goGuard

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGuard/password"
)

// HashVerifier is the default CredentialVerifier. It loads the account from
// the repository and checks the password against the stored Argon2id hash.
//
// Unknown usernames run a verification against an internal dummy hash, and
// inactive accounts run the real verification before reporting false, so
// neither case answers faster than a wrong password.
type HashVerifier struct {
	repo   AccountRepository
	hasher *password.Argon2
}

var _ CredentialVerifier = (*HashVerifier)(nil)

// NewHashVerifier returns a verifier backed by repo and hasher.
func NewHashVerifier(repo AccountRepository, hasher *password.Argon2) *HashVerifier {
	return &HashVerifier{repo: repo, hasher: hasher}
}

// VerifyCredential implements [CredentialVerifier].
func (v *HashVerifier) VerifyCredential(ctx context.Context, username, pw string) (bool, error) {
	account, err := v.repo.FetchAccount(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		v.hasher.VerifyDummy(pw)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch account: %w", err)
	}

	ok, err := v.hasher.Verify(pw, account.PasswordHash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify stored hash: %w", err)
	}
	return ok && account.Active, nil
}

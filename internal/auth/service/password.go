package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

type passwordHasher struct {
	hasher *pwdhash.PasswordHasher
}

// NewPasswordHasher creates an Argon2id hasher with the moderate policy.
func NewPasswordHasher() PasswordHasher {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &passwordHasher{hasher: hasher}
}

// Hash hashes a plain text password using Argon2id.
func (p *passwordHasher) Hash(password string) (string, error) {
	hash, err := p.hasher.Hash([]byte(password))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hash, nil
}

// Compare reports whether password matches hash. Malformed hashes never match.
func (p *passwordHasher) Compare(password, hash string) bool {
	ok, err := p.hasher.Verify([]byte(password), hash)
	if err != nil {
		return false
	}
	return ok
}

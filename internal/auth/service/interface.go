// Package service provides the credential primitives used by operator
// authentication: password hashing, TOTP and per-identity throttling.
package service

import "time"

// PasswordHasher hashes and verifies operator passwords.
type PasswordHasher interface {
	// Hash returns an encoded Argon2id hash of the password.
	Hash(password string) (string, error)

	// Compare performs a constant-time check of password against hash.
	Compare(password, hash string) bool
}

// TOTPService enrolls and checks time-based one-time codes.
type TOTPService interface {
	// Generate creates a new secret for the account and its provisioning URL.
	Generate(account string) (secret, url string, err error)

	// Validate checks a code against the secret at the current time.
	Validate(code, secret string) bool
}

// Throttle tracks authentication attempts per identity.
type Throttle interface {
	// Allow reports whether an attempt for identity may proceed at now.
	Allow(identity string, now time.Time) bool

	// Fail records a failed attempt and reports whether the identity is now locked.
	Fail(identity string, now time.Time) bool

	// Succeed clears the failure counter of identity.
	Succeed(identity string)

	// Prune forgets identities idle since before threshold and not locked.
	Prune(threshold time.Time)
}

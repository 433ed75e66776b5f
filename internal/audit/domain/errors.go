package domain

import "github.com/allisson/btsguard/internal/errors"

var (
	// ErrSignatureInvalid indicates an entry's HMAC does not match its content.
	ErrSignatureInvalid = errors.Wrap(errors.ErrCorrupt, "audit entry signature invalid")

	// ErrSigningKeyMissing indicates the recorder was built without a signing key.
	ErrSigningKeyMissing = errors.Wrap(errors.ErrInvalidInput, "audit signing key missing")
)

// StorageError reports that the audit trail could not be written after retries.
type StorageError = errors.StorageError

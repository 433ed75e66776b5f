package domain

import (
	"fmt"

	"github.com/allisson/btsguard/internal/errors"
)

// Reasons carried by CryptoError.
const (
	ReasonInUse           = "in-use"
	ReasonInvalidValidity = "invalid-validity"
	ReasonNotActive       = "not-active"
	ReasonKeyGeneration   = "key-generation"
)

// CryptoError reports a failed credential operation.
type CryptoError struct {
	Op     string
	Reason string
	Err    error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto %s failed (%s): %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("crypto %s failed (%s)", e.Op, e.Reason)
}

// Unwrap maps the reason onto a domain sentinel.
func (e *CryptoError) Unwrap() []error {
	var sentinel error
	switch e.Reason {
	case ReasonInUse:
		sentinel = errors.ErrBusy
	case ReasonInvalidValidity, ReasonNotActive:
		sentinel = errors.ErrInvalidInput
	default:
		sentinel = errors.ErrStorage
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

var (
	// ErrCertificateNotFound indicates no record has the requested ID.
	ErrCertificateNotFound = errors.Wrap(errors.ErrNotFound, "certificate not found")

	// ErrNoActiveCertificate indicates the keystore holds no usable certificate.
	ErrNoActiveCertificate = errors.Wrap(errors.ErrNotFound, "no active certificate")

	// ErrKeystoreCorrupt indicates the keystore index or a sealed key cannot be read.
	// It is fatal at startup.
	ErrKeystoreCorrupt = errors.Wrap(errors.ErrCorrupt, "keystore corrupt")

	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a data key that is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a sealed key could not be opened. The cause
	// (wrong key, tampered ciphertext) is deliberately not distinguished.
	ErrDecryptionFailed = errors.Wrap(errors.ErrCorrupt, "decryption failed")

	// ErrKMSKeyURIMissing indicates the keystore cannot be unlocked without a KMS key.
	ErrKMSKeyURIMissing = errors.Wrap(errors.ErrInvalidInput, "KMS_KEY_URI is required")
)

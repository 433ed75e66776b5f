// Package service provides the audit entry signer.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
)

// Signer computes and checks entry signatures.
type Signer interface {
	// Sign returns the HMAC-SHA256 of the entry's canonical form.
	Sign(rootKey []byte, entry *auditDomain.Entry) ([]byte, error)

	// Verify returns ErrSignatureInvalid when the entry was altered after signing.
	Verify(rootKey []byte, entry *auditDomain.Entry) error
}

type hmacSigner struct{}

// NewSigner creates a new HMAC-based audit signer using HKDF-SHA256
// for key derivation and HMAC-SHA256 for signature generation.
func NewSigner() Signer {
	return &hmacSigner{}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the root key.
// Info parameter: "audit-log-signing-v1" (versioned for future algorithm changes).
func (s *hmacSigner) deriveSigningKey(rootKey []byte) ([]byte, error) {
	if len(rootKey) == 0 {
		return nil, auditDomain.ErrSigningKeyMissing
	}
	reader := hkdf.New(sha256.New, rootKey, nil, []byte("audit-log-signing-v1"))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// canonicalize converts an entry to the byte representation covered by the signature.
// Format: sequence || timestamp || actor || action || target || before || after || success || reason
func canonicalize(entry *auditDomain.Entry) []byte {
	buf := make([]byte, 0, 256)

	buf = binary.BigEndian.AppendUint64(buf, entry.Sequence)
	buf = binary.BigEndian.AppendUint64(buf, uint64(entry.Timestamp.UnixNano()))

	buf = appendLengthPrefixed(buf, []byte(entry.ActorID))
	buf = appendLengthPrefixed(buf, []byte(entry.Action))
	buf = appendLengthPrefixed(buf, []byte(entry.Target))
	buf = appendLengthPrefixed(buf, []byte(entry.BeforeDigest))
	buf = appendLengthPrefixed(buf, []byte(entry.AfterDigest))

	if entry.Result.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendLengthPrefixed(buf, []byte(entry.Result.Reason))

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Sign generates the HMAC-SHA256 signature for the entry.
func (s *hmacSigner) Sign(rootKey []byte, entry *auditDomain.Entry) ([]byte, error) {
	signingKey, err := s.deriveSigningKey(rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(signingKey)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonicalize(entry))
	return mac.Sum(nil), nil
}

// Verify checks if the entry signature is valid.
func (s *hmacSigner) Verify(rootKey []byte, entry *auditDomain.Entry) error {
	expected, err := s.Sign(rootKey, entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(entry.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

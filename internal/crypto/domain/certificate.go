// Package domain defines the credential model: X.509 certificates paired with
// sealed private keys, rotated by append-only supersession.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a certificate record.
type Status string

const (
	// StatusActive marks the certificate currently in service for its subject.
	StatusActive Status = "active"
	// StatusSuperseded marks a rotated certificate; it stays usable until GraceUntil.
	StatusSuperseded Status = "superseded"
	// StatusExpiredGrace is reported for a superseded record whose grace period has
	// ended. It is never stored; the record itself stays superseded.
	StatusExpiredGrace Status = "expired-grace"
)

// Subject names the entity a certificate identifies.
type Subject struct {
	CommonName   string   `json:"common_name"`
	Organization string   `json:"organization,omitempty"`
	Country      string   `json:"country,omitempty"`
	DNSNames     []string `json:"dns_names,omitempty"`
	IPAddresses  []string `json:"ip_addresses,omitempty"`
}

// Key identifies the subject for rotation locking. Case is ignored like DNS names.
func (s Subject) Key() string {
	return strings.ToLower(s.CommonName)
}

// Certificate is the public half of a credential. The private key is referenced
// only through KeyHandle and never leaves the keystore in plaintext.
type Certificate struct {
	ID           uuid.UUID     `json:"id"`
	Subject      Subject       `json:"subject"`
	SerialNumber string        `json:"serial_number"`
	NotBefore    time.Time     `json:"not_before"`
	NotAfter     time.Time     `json:"not_after"`
	Validity     time.Duration `json:"validity"`
	Fingerprint  string        `json:"fingerprint"`
	CertPEM      []byte        `json:"cert_pem"`
	KeyHandle    uuid.UUID     `json:"key_handle"`
	Status       Status        `json:"status"`
	SupersededBy *uuid.UUID    `json:"superseded_by,omitempty"`
	GraceUntil   *time.Time    `json:"grace_until,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Usable reports whether the certificate may still be presented at the given time:
// active, or superseded but inside its grace period, and not past NotAfter.
func (c *Certificate) Usable(now time.Time) bool {
	if now.After(c.NotAfter) {
		return false
	}
	switch c.Status {
	case StatusActive:
		return true
	case StatusSuperseded:
		return c.GraceUntil != nil && now.Before(*c.GraceUntil)
	default:
		return false
	}
}

// ObservedStatus is the status reported to readers at the given time.
func (c *Certificate) ObservedStatus(now time.Time) Status {
	if c.Status == StatusSuperseded && (c.GraceUntil == nil || !now.Before(*c.GraceUntil)) {
		return StatusExpiredGrace
	}
	return c.Status
}

// SealedKey is a private key encrypted under the keystore data key.
type SealedKey struct {
	Handle     uuid.UUID `json:"handle"`
	Algorithm  Algorithm `json:"algorithm"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
}

// State is the complete, still-sealed content of the keystore. Backups carry it
// verbatim, so no plaintext key material is ever written into an archive.
type State struct {
	Certificates []*Certificate `json:"certificates"`
	Keys         []*SealedKey   `json:"keys"`
}

// KMSKeeper is the subset of gocloud.dev/secrets.Keeper used to wrap the data key.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

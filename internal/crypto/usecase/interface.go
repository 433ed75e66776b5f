// Package usecase implements the credential store: generation, rotation with a
// grace period, expiry tracking and the sealed state used by backups.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
)

// Repository defines persistence for certificate records and sealed keys.
type Repository interface {
	LoadCertificates(ctx context.Context) ([]*cryptoDomain.Certificate, error)
	SaveCertificates(ctx context.Context, certs []*cryptoDomain.Certificate) error
	SaveKey(ctx context.Context, key *cryptoDomain.SealedKey) error
	LoadKey(ctx context.Context, handle uuid.UUID) (*cryptoDomain.SealedKey, error)
	DeleteKey(ctx context.Context, handle uuid.UUID) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)
}

// CertificateUseCase manages the station's TLS credentials.
type CertificateUseCase interface {
	// Generate creates a key pair and self-signed certificate for the subject.
	// A non-positive validity fails with a *CryptoError.
	Generate(
		ctx context.Context,
		actorID string,
		subject cryptoDomain.Subject,
		validity time.Duration,
	) (*cryptoDomain.Certificate, error)

	// Rotate replaces an active certificate with a new pair for the same subject and
	// validity length. The old record is kept, marked superseded, and stays usable
	// for the overlap window. A rotation already running for the subject fails with
	// a *CryptoError whose reason is "in-use".
	Rotate(ctx context.Context, actorID string, certID uuid.UUID) (*cryptoDomain.Certificate, error)

	// Expiring returns active certificates whose NotAfter falls within the window,
	// ordered by NotAfter ascending.
	Expiring(ctx context.Context, within time.Duration) ([]*cryptoDomain.Certificate, error)

	// Get returns a certificate by ID, including superseded ones. A superseded
	// certificate past its grace period is reported as expired-grace.
	Get(ctx context.Context, certID uuid.UUID) (*cryptoDomain.Certificate, error)

	// List returns every certificate ordered by creation time.
	List(ctx context.Context) ([]*cryptoDomain.Certificate, error)

	// Active returns the newest usable active certificate.
	Active(ctx context.Context) (*cryptoDomain.Certificate, error)

	// MaterializeKeyPair unseals the private key and hands the PEM pair to write.
	// The plaintext is zeroed when write returns.
	MaterializeKeyPair(ctx context.Context, certID uuid.UUID, write func(certPEM, keyPEM []byte) error) error

	// ExportState copies the sealed keystore under the read barrier.
	ExportState(ctx context.Context) (*cryptoDomain.State, error)

	// ImportState replaces the keystore with a previously exported state after
	// checking every key unseals with the current data key.
	ImportState(ctx context.Context, state *cryptoDomain.State) error
}

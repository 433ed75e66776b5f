// Package usecase implements backup snapshots and restore.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// Repository defines persistence for archives and the snapshot index.
type Repository interface {
	LoadIndex(ctx context.Context) ([]*backupDomain.Snapshot, error)
	SaveIndex(ctx context.Context, snapshots []*backupDomain.Snapshot) error
	WriteArchive(ctx context.Context, id uuid.UUID, data []byte) error
	ReadArchive(ctx context.Context, id uuid.UUID) ([]byte, error)
	DeleteArchive(ctx context.Context, id uuid.UUID) error
}

// ConfigStore is the part of the configuration store a backup needs.
type ConfigStore interface {
	WithReadBarrier(ctx context.Context, fn func(doc *configDomain.Document) error) error
	Replace(
		ctx context.Context,
		actorID string,
		content configDomain.Content,
		reason string,
	) (*configDomain.Document, error)
}

// KeyStore is the part of the credential store a backup needs.
type KeyStore interface {
	ExportState(ctx context.Context) (*cryptoDomain.State, error)
	ImportState(ctx context.Context, state *cryptoDomain.State) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)
}

// BackupUseCase takes and restores full snapshots.
type BackupUseCase interface {
	// Snapshot copies the current document and keystore under the read barrier.
	Snapshot(ctx context.Context, actorID string) (*backupDomain.Snapshot, error)

	// Restore replaces the document and keystore with the snapshot's content. An
	// unknown id or a checksum mismatch returns *RestoreError with nothing changed.
	// A pre-restore snapshot is taken first.
	Restore(ctx context.Context, actorID, id string) (*backupDomain.RestoreResult, error)

	// List returns the snapshots newest first.
	List(ctx context.Context) ([]*backupDomain.Snapshot, error)
}

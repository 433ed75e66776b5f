// Package usecase implements the transactional configuration store:
// edit, validate, commit, apply with rollback, and restore.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// Repository defines persistence for history files and the current pointer.
type Repository interface {
	LoadPointer(ctx context.Context) (*configDomain.Pointer, error)
	SavePointer(ctx context.Context, pointer *configDomain.Pointer) error
	SaveDocument(ctx context.Context, doc *configDomain.Document) error
	LoadDocument(ctx context.Context, version uint64) (*configDomain.Document, error)
	DeleteDocument(ctx context.Context, version uint64) error
	ListVersions(ctx context.Context) ([]uint64, error)
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)
}

// ServiceController drives the managed base-station service.
type ServiceController interface {
	WriteConfig(ctx context.Context, data []byte) error
	Reload(ctx context.Context) error
	Status(ctx context.Context) (*stationDomain.Status, error)
}

// CredentialInstaller places the active TLS key pair where the service reads it.
type CredentialInstaller interface {
	Install(ctx context.Context) error
}

// ConfigUseCase owns the current configuration document.
type ConfigUseCase interface {
	// BeginEdit opens a draft on top of the current document.
	BeginEdit(ctx context.Context) (*configDomain.Draft, error)

	// SetField validates value against the schema and stores it in the draft. On a
	// *ValidationError the draft is left unchanged.
	SetField(ctx context.Context, draft *configDomain.Draft, section, key, value string) error

	// Commit promotes the draft to the next version. A draft whose base version is
	// no longer current fails with *ConflictError.
	Commit(ctx context.Context, actorID string, draft *configDomain.Draft) (*configDomain.Document, error)

	// Current returns the current document without locking.
	Current(ctx context.Context) *configDomain.Document

	// Get returns one historical version.
	Get(ctx context.Context, version uint64) (*configDomain.Document, error)

	// History returns every version in ascending order.
	History(ctx context.Context) ([]*configDomain.Document, error)

	// Apply writes the current document to the service and reloads it. version
	// guards against applying something other than what the operator reviewed; 0
	// means the current version. A rejection rolls back and returns *ApplyError.
	Apply(ctx context.Context, actorID string, version uint64) error

	// Replace commits content as a new version without a draft. Used by restore.
	Replace(
		ctx context.Context,
		actorID string,
		content configDomain.Content,
		reason string,
	) (*configDomain.Document, error)

	// WithReadBarrier runs fn while commits, applies and replaces are held off.
	WithReadBarrier(ctx context.Context, fn func(doc *configDomain.Document) error) error

	// Schema returns the field table consulted by SetField.
	Schema() configDomain.Schema
}

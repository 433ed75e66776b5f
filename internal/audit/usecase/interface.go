// Package usecase implements the audit trail operations.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
)

// Repository defines persistence for audit entries.
type Repository interface {
	// Append allocates the next sequence number and stores the entry built for it atomically.
	Append(ctx context.Context, build func(sequence uint64) (*auditDomain.Entry, error)) (*auditDomain.Entry, error)

	// ListSince returns entries with a sequence strictly greater than after, ascending.
	ListSince(ctx context.Context, after uint64) ([]*auditDomain.Entry, error)
}

// UseCase records and reads the audit trail.
type UseCase interface {
	// Record signs and appends the entry, assigning its sequence and timestamp.
	// Failures are retried; when retries are exhausted a *StorageError is returned
	// and the caller must treat the triggering action as failed.
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)

	// EntriesSince returns entries with a sequence greater than after.
	EntriesSince(ctx context.Context, after uint64) ([]*auditDomain.Entry, error)

	// Verify re-checks every signature and reports sequence gaps.
	Verify(ctx context.Context) (*auditDomain.VerificationReport, error)
}

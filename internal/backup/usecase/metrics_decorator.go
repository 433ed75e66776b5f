package usecase

import (
	"context"
	"time"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	"github.com/allisson/btsguard/internal/metrics"
)

// backupUseCaseWithMetrics decorates BackupUseCase with metrics instrumentation.
type backupUseCaseWithMetrics struct {
	next    BackupUseCase
	metrics metrics.BusinessMetrics
}

// NewBackupUseCaseWithMetrics wraps a BackupUseCase with metrics recording.
func NewBackupUseCaseWithMetrics(useCase BackupUseCase, m metrics.BusinessMetrics) BackupUseCase {
	return &backupUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (b *backupUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, b.metrics, "backup", operation, start, err)
}

// Snapshot records metrics for snapshot creation.
func (b *backupUseCaseWithMetrics) Snapshot(ctx context.Context, actorID string) (*backupDomain.Snapshot, error) {
	start := time.Now()
	snapshot, err := b.next.Snapshot(ctx, actorID)
	b.record(ctx, "snapshot", start, err)
	return snapshot, err
}

// Restore records metrics for restore.
func (b *backupUseCaseWithMetrics) Restore(
	ctx context.Context,
	actorID, id string,
) (*backupDomain.RestoreResult, error) {
	start := time.Now()
	result, err := b.next.Restore(ctx, actorID, id)
	b.record(ctx, "restore", start, err)
	return result, err
}

// List records metrics for listing snapshots.
func (b *backupUseCaseWithMetrics) List(ctx context.Context) ([]*backupDomain.Snapshot, error) {
	start := time.Now()
	snapshots, err := b.next.List(ctx)
	b.record(ctx, "list", start, err)
	return snapshots, err
}

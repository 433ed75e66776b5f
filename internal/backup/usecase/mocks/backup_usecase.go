// Package mocks provides mock implementations of the backup manager for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
)

// MockBackupUseCase is a mock implementation of BackupUseCase.
type MockBackupUseCase struct {
	mock.Mock
}

// Snapshot mocks the Snapshot method.
func (m *MockBackupUseCase) Snapshot(ctx context.Context, actorID string) (*backupDomain.Snapshot, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backupDomain.Snapshot), args.Error(1)
}

// Restore mocks the Restore method.
func (m *MockBackupUseCase) Restore(ctx context.Context, actorID, id string) (*backupDomain.RestoreResult, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backupDomain.RestoreResult), args.Error(1)
}

// List mocks the List method.
func (m *MockBackupUseCase) List(ctx context.Context) ([]*backupDomain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backupDomain.Snapshot), args.Error(1)
}

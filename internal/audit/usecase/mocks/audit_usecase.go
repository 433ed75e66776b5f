// Package mocks provides mock implementations of the audit trail use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
)

// MockUseCase is a mock implementation of UseCase.
type MockUseCase struct {
	mock.Mock
}

// Record mocks the Record method.
func (m *MockUseCase) Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.Entry), args.Error(1)
}

// EntriesSince mocks the EntriesSince method.
func (m *MockUseCase) EntriesSince(ctx context.Context, after uint64) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

// Verify mocks the Verify method.
func (m *MockUseCase) Verify(ctx context.Context) (*auditDomain.VerificationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationReport), args.Error(1)
}

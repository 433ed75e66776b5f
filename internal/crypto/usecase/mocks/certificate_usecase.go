// Package mocks provides mock implementations of the credential store for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
)

// MockCertificateUseCase is a mock implementation of CertificateUseCase.
type MockCertificateUseCase struct {
	mock.Mock
}

// Generate mocks the Generate method.
func (m *MockCertificateUseCase) Generate(
	ctx context.Context,
	actorID string,
	subject cryptoDomain.Subject,
	validity time.Duration,
) (*cryptoDomain.Certificate, error) {
	args := m.Called(ctx, actorID, subject, validity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Certificate), args.Error(1)
}

// Rotate mocks the Rotate method.
func (m *MockCertificateUseCase) Rotate(
	ctx context.Context,
	actorID string,
	certID uuid.UUID,
) (*cryptoDomain.Certificate, error) {
	args := m.Called(ctx, actorID, certID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Certificate), args.Error(1)
}

// Expiring mocks the Expiring method.
func (m *MockCertificateUseCase) Expiring(
	ctx context.Context,
	within time.Duration,
) ([]*cryptoDomain.Certificate, error) {
	args := m.Called(ctx, within)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.Certificate), args.Error(1)
}

// Get mocks the Get method.
func (m *MockCertificateUseCase) Get(ctx context.Context, certID uuid.UUID) (*cryptoDomain.Certificate, error) {
	args := m.Called(ctx, certID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Certificate), args.Error(1)
}

// List mocks the List method.
func (m *MockCertificateUseCase) List(ctx context.Context) ([]*cryptoDomain.Certificate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.Certificate), args.Error(1)
}

// Active mocks the Active method.
func (m *MockCertificateUseCase) Active(ctx context.Context) (*cryptoDomain.Certificate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Certificate), args.Error(1)
}

// MaterializeKeyPair mocks the MaterializeKeyPair method.
func (m *MockCertificateUseCase) MaterializeKeyPair(
	ctx context.Context,
	certID uuid.UUID,
	write func(certPEM, keyPEM []byte) error,
) error {
	args := m.Called(ctx, certID, write)
	return args.Error(0)
}

// ExportState mocks the ExportState method.
func (m *MockCertificateUseCase) ExportState(ctx context.Context) (*cryptoDomain.State, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.State), args.Error(1)
}

// ImportState mocks the ImportState method.
func (m *MockCertificateUseCase) ImportState(ctx context.Context, state *cryptoDomain.State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

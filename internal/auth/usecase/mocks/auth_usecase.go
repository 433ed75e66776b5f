// Package mocks provides mock implementations of the access control use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

// MockAuthUseCase is a mock implementation of AuthUseCase.
type MockAuthUseCase struct {
	mock.Mock
}

// Authenticate mocks the Authenticate method.
func (m *MockAuthUseCase) Authenticate(
	ctx context.Context,
	credentials authDomain.Credentials,
) (*authDomain.Actor, error) {
	args := m.Called(ctx, credentials)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Actor), args.Error(1)
}

// Authorize mocks the Authorize method.
func (m *MockAuthUseCase) Authorize(ctx context.Context, actor *authDomain.Actor, action authDomain.Action) error {
	args := m.Called(ctx, actor, action)
	return args.Error(0)
}

// CreateOperator mocks the CreateOperator method.
func (m *MockAuthUseCase) CreateOperator(
	ctx context.Context,
	actorID string,
	input *authDomain.CreateOperatorInput,
) (*authDomain.Operator, error) {
	args := m.Called(ctx, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Operator), args.Error(1)
}

// ListOperators mocks the ListOperators method.
func (m *MockAuthUseCase) ListOperators(ctx context.Context) ([]*authDomain.Operator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authDomain.Operator), args.Error(1)
}

// EnrollTOTP mocks the EnrollTOTP method.
func (m *MockAuthUseCase) EnrollTOTP(ctx context.Context, actorID, name string) (*authDomain.TOTPEnrollment, error) {
	args := m.Called(ctx, actorID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.TOTPEnrollment), args.Error(1)
}

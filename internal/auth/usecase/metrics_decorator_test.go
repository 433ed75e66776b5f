package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/auth/usecase"
	usecaseMocks "github.com/allisson/btsguard/internal/auth/usecase/mocks"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func expectMetrics(ctx context.Context, m *mockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", ctx, "auth", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "auth", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestAuthUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	creds := authDomain.Credentials{Operator: "alice", Password: "pw"}
	actor := &authDomain.Actor{ID: "a1", Name: "alice"}

	t.Run("Authenticate success", func(t *testing.T) {
		mockNext := &usecaseMocks.MockAuthUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewAuthUseCaseWithMetrics(mockNext, mockMetrics)

		mockNext.On("Authenticate", ctx, creds).Return(actor, nil).Once()
		expectMetrics(ctx, mockMetrics, "authenticate", "success")

		res, err := uc.Authenticate(ctx, creds)
		assert.NoError(t, err)
		assert.Equal(t, actor, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Authorize error", func(t *testing.T) {
		mockNext := &usecaseMocks.MockAuthUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewAuthUseCaseWithMetrics(mockNext, mockMetrics)
		forbidden := &authDomain.AuthError{Kind: authDomain.KindForbidden}

		mockNext.On("Authorize", ctx, actor, authDomain.ActionRestore).Return(forbidden).Once()
		expectMetrics(ctx, mockMetrics, "authorize", "error")

		err := uc.Authorize(ctx, actor, authDomain.ActionRestore)
		assert.ErrorIs(t, err, forbidden)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("EnrollTOTP success", func(t *testing.T) {
		mockNext := &usecaseMocks.MockAuthUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewAuthUseCaseWithMetrics(mockNext, mockMetrics)
		enrollment := &authDomain.TOTPEnrollment{Operator: "alice", Secret: "S"}

		mockNext.On("EnrollTOTP", ctx, "system", "alice").Return(enrollment, nil).Once()
		expectMetrics(ctx, mockMetrics, "totp_enroll", "success")

		res, err := uc.EnrollTOTP(ctx, "system", "alice")
		assert.NoError(t, err)
		assert.Equal(t, enrollment, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})
}

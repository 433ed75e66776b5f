package usecase

import (
	"context"
	"time"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/metrics"
)

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *authUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, a.metrics, "auth", operation, start, err)
}

// Authenticate records metrics for operator authentication.
func (a *authUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	credentials authDomain.Credentials,
) (*authDomain.Actor, error) {
	start := time.Now()
	actor, err := a.next.Authenticate(ctx, credentials)
	a.record(ctx, "authenticate", start, err)
	return actor, err
}

// Authorize records metrics for authorization checks.
func (a *authUseCaseWithMetrics) Authorize(
	ctx context.Context,
	actor *authDomain.Actor,
	action authDomain.Action,
) error {
	start := time.Now()
	err := a.next.Authorize(ctx, actor, action)
	a.record(ctx, "authorize", start, err)
	return err
}

// CreateOperator records metrics for operator creation.
func (a *authUseCaseWithMetrics) CreateOperator(
	ctx context.Context,
	actorID string,
	input *authDomain.CreateOperatorInput,
) (*authDomain.Operator, error) {
	start := time.Now()
	operator, err := a.next.CreateOperator(ctx, actorID, input)
	a.record(ctx, "operator_create", start, err)
	return operator, err
}

// ListOperators records metrics for operator listing.
func (a *authUseCaseWithMetrics) ListOperators(ctx context.Context) ([]*authDomain.Operator, error) {
	start := time.Now()
	operators, err := a.next.ListOperators(ctx)
	a.record(ctx, "operator_list", start, err)
	return operators, err
}

// EnrollTOTP records metrics for second factor enrollment.
func (a *authUseCaseWithMetrics) EnrollTOTP(
	ctx context.Context,
	actorID, name string,
) (*authDomain.TOTPEnrollment, error) {
	start := time.Now()
	enrollment, err := a.next.EnrollTOTP(ctx, actorID, name)
	a.record(ctx, "totp_enroll", start, err)
	return enrollment, err
}

// Package usecase implements operator authentication and authorization.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

// OperatorRepository defines persistence for operator accounts.
type OperatorRepository interface {
	List(ctx context.Context) ([]*authDomain.Operator, error)
	GetByName(ctx context.Context, name string) (*authDomain.Operator, error)
	Create(ctx context.Context, operator *authDomain.Operator) error
	Update(ctx context.Context, operator *authDomain.Operator) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error)
}

// AuthUseCase authenticates operators and authorizes their actions.
type AuthUseCase interface {
	// Authenticate verifies the credentials. Every failure, including lockout and
	// unknown identities, is reported as *AuthError{Kind: "denied"}.
	Authenticate(ctx context.Context, credentials authDomain.Credentials) (*authDomain.Actor, error)

	// Authorize checks the actor holds the permission the action requires. A denial
	// is audited and returned as *AuthError{Kind: "forbidden"}.
	Authorize(ctx context.Context, actor *authDomain.Actor, action authDomain.Action) error

	// CreateOperator validates, hashes and stores a new operator.
	CreateOperator(
		ctx context.Context,
		actorID string,
		input *authDomain.CreateOperatorInput,
	) (*authDomain.Operator, error)

	// ListOperators returns every operator ordered by name.
	ListOperators(ctx context.Context) ([]*authDomain.Operator, error)

	// EnrollTOTP attaches a second factor to the operator and returns the secret once.
	EnrollTOTP(ctx context.Context, actorID, name string) (*authDomain.TOTPEnrollment, error)
}

package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	authService "github.com/allisson/btsguard/internal/auth/service"
	apperrors "github.com/allisson/btsguard/internal/errors"
	appValidation "github.com/allisson/btsguard/internal/validation"
)

// throttleIdleTTL is how long an identity's attempt history is kept after its last attempt.
const throttleIdleTTL = time.Hour

var passwordPolicy = appValidation.PasswordStrength{
	MinLength:     12,
	RequireUpper:  true,
	RequireLower:  true,
	RequireNumber: true,
}

// AuthUseCaseParams groups the collaborators of the auth use case.
type AuthUseCaseParams struct {
	Repository OperatorRepository
	Hasher     authService.PasswordHasher
	TOTP       authService.TOTPService
	Throttle   authService.Throttle
	Audit      AuditRecorder
	Logger     *slog.Logger
}

type authUseCase struct {
	repo      OperatorRepository
	hasher    authService.PasswordHasher
	totp      authService.TOTPService
	throttle  authService.Throttle
	audit     AuditRecorder
	logger    *slog.Logger
	now       func() time.Time
	dummyHash string

	// mu serializes operator mutations so validation and storage see the same file.
	mu sync.Mutex
}

// NewAuthUseCase creates the access control use case.
func NewAuthUseCase(params AuthUseCaseParams) AuthUseCase {
	// Unknown identities are compared against this hash so they cost the same as known ones.
	dummyHash, _ := params.Hasher.Hash(uuid.NewString())

	return &authUseCase{
		repo:      params.Repository,
		hasher:    params.Hasher,
		totp:      params.TOTP,
		throttle:  params.Throttle,
		audit:     params.Audit,
		logger:    params.Logger,
		now:       time.Now,
		dummyHash: dummyHash,
	}
}

func denied() error {
	return &authDomain.AuthError{Kind: authDomain.KindDenied}
}

// Authenticate checks throttling first, then the password, then the optional TOTP code.
func (a *authUseCase) Authenticate(
	ctx context.Context,
	credentials authDomain.Credentials,
) (*authDomain.Actor, error) {
	now := a.now()
	identity := strings.TrimSpace(credentials.Operator)
	a.throttle.Prune(now.Add(-throttleIdleTTL))

	if !a.throttle.Allow(identity, now) {
		a.logger.Warn("authentication throttled", slog.String("operator", identity))
		a.recordLogin(ctx, "", identity, auditDomain.Failed("denied"))
		return nil, denied()
	}

	operator, err := a.repo.GetByName(ctx, identity)
	if err != nil && !apperrors.Is(err, authDomain.ErrOperatorNotFound) {
		a.logger.Error("failed to load operator", slog.String("operator", identity), slog.Any("error", err))
		return nil, denied()
	}

	valid := false
	if operator == nil {
		a.hasher.Compare(credentials.Password, a.dummyHash)
	} else {
		valid = a.hasher.Compare(credentials.Password, operator.PasswordHash)
		if valid && operator.TOTPEnabled() {
			valid = a.totp.Validate(credentials.TOTPCode, operator.TOTPSecret)
		}
	}

	if !valid {
		if a.throttle.Fail(identity, now) {
			a.logger.Warn("identity locked after repeated failures", slog.String("operator", identity))
		}
		a.recordLogin(ctx, "", identity, auditDomain.Failed("denied"))
		return nil, denied()
	}

	a.throttle.Succeed(identity)
	actor := operator.Actor()
	a.recordLogin(ctx, actor.ID, identity, auditDomain.Succeeded())
	return actor, nil
}

// recordLogin audits an authentication attempt. Logins are not mutations, so a
// failing trail is logged rather than surfaced.
func (a *authUseCase) recordLogin(ctx context.Context, actorID, identity string, result auditDomain.Result) {
	if actorID == "" {
		actorID = "anonymous"
	}
	_, err := a.audit.Record(ctx, &auditDomain.Entry{
		ActorID: actorID,
		Action:  auditDomain.ActionLogin,
		Target:  "operator/" + identity,
		Result:  result,
	})
	if err != nil {
		a.logger.Error("failed to audit login", slog.String("operator", identity), slog.Any("error", err))
	}
}

// Authorize looks up the permission required by the action.
func (a *authUseCase) Authorize(ctx context.Context, actor *authDomain.Actor, action authDomain.Action) error {
	if actor == nil {
		return denied()
	}
	permission := authDomain.RequiredPermission(action)
	if actor.Has(permission) {
		return nil
	}

	a.logger.Warn("action forbidden",
		slog.String("actor_id", actor.ID),
		slog.String("action", string(action)),
		slog.String("permission", string(permission)),
	)
	if _, err := a.audit.Record(ctx, &auditDomain.Entry{
		ActorID: actor.ID,
		Action:  auditDomain.ActionAuthorize,
		Target:  string(action),
		Result:  auditDomain.Failed("forbidden"),
	}); err != nil {
		a.logger.Error("failed to audit forbidden action", slog.Any("error", err))
	}
	return &authDomain.AuthError{Kind: authDomain.KindForbidden}
}

func validateCreateOperator(input *authDomain.CreateOperatorInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Name, validation.Required, appValidation.OperatorName),
		validation.Field(&input.Password, validation.Required, passwordPolicy),
		validation.Field(&input.Permissions, validation.Required),
	)
	if err != nil {
		return appValidation.WrapValidationError(err)
	}
	for _, permission := range input.Permissions {
		if !slices.Contains(authDomain.AllPermissions, permission) {
			return &authDomain.InvalidPermissionError{Permission: string(permission)}
		}
	}
	return nil
}

// CreateOperator stores a new operator. The audit entry is written first so a
// failing trail leaves no account behind.
func (a *authUseCase) CreateOperator(
	ctx context.Context,
	actorID string,
	input *authDomain.CreateOperatorInput,
) (*authDomain.Operator, error) {
	if err := validateCreateOperator(input); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.repo.GetByName(ctx, input.Name); err == nil {
		return nil, authDomain.ErrOperatorExists
	} else if !apperrors.Is(err, authDomain.ErrOperatorNotFound) {
		return nil, err
	}

	hash, err := a.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate operator id")
	}
	operator := &authDomain.Operator{
		ID:           id,
		Name:         input.Name,
		PasswordHash: hash,
		Permissions:  slices.Clone(input.Permissions),
		CreatedAt:    a.now().UTC(),
	}

	entry := &auditDomain.Entry{
		ActorID: actorID,
		Action:  auditDomain.ActionOperatorCreate,
		Target:  "operator/" + operator.Name,
		Result:  auditDomain.Succeeded(),
	}
	if _, err := a.audit.Record(ctx, entry); err != nil {
		return nil, err
	}

	if err := a.repo.Create(ctx, operator); err != nil {
		a.recordFailure(ctx, entry, err)
		return nil, &apperrors.StorageError{Op: "create operator", Err: err}
	}

	a.logger.Info("operator created",
		slog.String("operator", operator.Name),
		slog.String("actor_id", actorID),
	)
	return operator, nil
}

// ListOperators returns every operator.
func (a *authUseCase) ListOperators(ctx context.Context) ([]*authDomain.Operator, error) {
	return a.repo.List(ctx)
}

// EnrollTOTP generates a secret for an operator without one.
func (a *authUseCase) EnrollTOTP(ctx context.Context, actorID, name string) (*authDomain.TOTPEnrollment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	operator, err := a.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if operator.TOTPEnabled() {
		return nil, authDomain.ErrTOTPAlreadyEnrolled
	}

	secret, url, err := a.totp.Generate(name)
	if err != nil {
		return nil, err
	}

	entry := &auditDomain.Entry{
		ActorID: actorID,
		Action:  auditDomain.ActionOperatorTOTP,
		Target:  "operator/" + name,
		Result:  auditDomain.Succeeded(),
	}
	if _, err := a.audit.Record(ctx, entry); err != nil {
		return nil, err
	}

	updated := *operator
	updated.TOTPSecret = secret
	if err := a.repo.Update(ctx, &updated); err != nil {
		a.recordFailure(ctx, entry, err)
		return nil, &apperrors.StorageError{Op: "enroll totp", Err: err}
	}

	a.logger.Info("totp enrolled", slog.String("operator", name), slog.String("actor_id", actorID))
	return &authDomain.TOTPEnrollment{Operator: name, Secret: secret, URL: url}, nil
}

func (a *authUseCase) recordFailure(ctx context.Context, entry *auditDomain.Entry, cause error) {
	failed := *entry
	failed.Result = auditDomain.Failed(cause.Error())
	if _, err := a.audit.Record(ctx, &failed); err != nil {
		a.logger.Error("failed to audit failed operation",
			slog.String("action", string(entry.Action)),
			slog.Any("error", err),
		)
	}
}

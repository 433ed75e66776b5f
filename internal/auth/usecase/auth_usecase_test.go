package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	authRepository "github.com/allisson/btsguard/internal/auth/repository"
	authService "github.com/allisson/btsguard/internal/auth/service"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*auditDomain.Entry
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stored := *entry
	stored.Sequence = uint64(len(f.entries) + 1)
	f.entries = append(f.entries, &stored)
	return &stored, nil
}

func (f *fakeRecorder) last() *auditDomain.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

// plainHasher keeps tests fast; Argon2id is covered in the service package.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(password, hash string) bool { return hash == "plain:"+password }

type fixture struct {
	uc       *authUseCase
	recorder *fakeRecorder
	repo     *authRepository.FileOperatorRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := authRepository.NewFileOperatorRepository(filepath.Join(t.TempDir(), "operators.json"))
	require.NoError(t, err)

	recorder := &fakeRecorder{}
	uc := NewAuthUseCase(AuthUseCaseParams{
		Repository: repo,
		Hasher:     plainHasher{},
		TOTP:       authService.NewTOTPService("btsguard"),
		Throttle:   authService.NewThrottle(100, 100, 3, 5*time.Minute),
		Audit:      recorder,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).(*authUseCase)
	return &fixture{uc: uc, recorder: recorder, repo: repo}
}

func (f *fixture) createOperator(t *testing.T, name string, permissions ...authDomain.Permission) {
	t.Helper()
	_, err := f.uc.CreateOperator(context.Background(), "system", &authDomain.CreateOperatorInput{
		Name:        name,
		Password:    "Corr3ct-Horse-Battery",
		Permissions: permissions,
	})
	require.NoError(t, err)
}

func TestAuthUseCase_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ValidPassword", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionEdit)

		actor, err := f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "alice",
			Password: "Corr3ct-Horse-Battery",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", actor.Name)
		assert.True(t, actor.Has(authDomain.PermissionEdit))

		last := f.recorder.last()
		assert.Equal(t, auditDomain.ActionLogin, last.Action)
		assert.True(t, last.Result.Success)
		assert.Equal(t, actor.ID, last.ActorID)
	})

	t.Run("Error_WrongPasswordIsDenied", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionRead)

		_, err := f.uc.Authenticate(ctx, authDomain.Credentials{Operator: "alice", Password: "nope"})

		var authErr *authDomain.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, authDomain.KindDenied, authErr.Kind)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, auditDomain.Failed("denied"), f.recorder.last().Result)
	})

	t.Run("Error_UnknownIdentityIndistinguishable", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionRead)

		_, knownErr := f.uc.Authenticate(ctx, authDomain.Credentials{Operator: "alice", Password: "x"})
		_, unknownErr := f.uc.Authenticate(ctx, authDomain.Credentials{Operator: "ghost", Password: "x"})

		assert.Equal(t, knownErr.Error(), unknownErr.Error())
		assert.ErrorIs(t, unknownErr, apperrors.ErrUnauthorized)
	})

	t.Run("Error_LockoutAfterMaxAttempts", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionRead)
		now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		f.uc.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			_, err := f.uc.Authenticate(ctx, authDomain.Credentials{Operator: "alice", Password: "bad"})
			require.Error(t, err)
		}

		// Correct password is still denied while locked, with the same message.
		_, err := f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "alice",
			Password: "Corr3ct-Horse-Battery",
		})
		assert.EqualError(t, err, "access denied")

		now = now.Add(5 * time.Minute)
		actor, err := f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "alice",
			Password: "Corr3ct-Horse-Battery",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", actor.Name)
	})

	t.Run("Error_UnknownIdentityLockedIdentically", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 3; i++ {
			_, _ = f.uc.Authenticate(ctx, authDomain.Credentials{Operator: "ghost", Password: "bad"})
		}
		f.createOperator(t, "ghost", authDomain.PermissionRead)

		_, err := f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "ghost",
			Password: "Corr3ct-Horse-Battery",
		})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Success_TOTPRequiredAfterEnrollment", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionRead)

		enrollment, err := f.uc.EnrollTOTP(ctx, "system", "alice")
		require.NoError(t, err)

		_, err = f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "alice",
			Password: "Corr3ct-Horse-Battery",
		})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)
		actor, err := f.uc.Authenticate(ctx, authDomain.Credentials{
			Operator: "alice",
			Password: "Corr3ct-Horse-Battery",
			TOTPCode: code,
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", actor.Name)
	})
}

func TestAuthUseCase_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PermissionHeld", func(t *testing.T) {
		f := newFixture(t)
		actor := &authDomain.Actor{ID: "a1", Permissions: []authDomain.Permission{authDomain.PermissionEdit}}

		assert.NoError(t, f.uc.Authorize(ctx, actor, authDomain.ActionEditConfig))
		assert.Nil(t, f.recorder.last())
	})

	t.Run("Success_AdminImpliesAll", func(t *testing.T) {
		f := newFixture(t)
		actor := &authDomain.Actor{ID: "root", Permissions: []authDomain.Permission{authDomain.PermissionAdmin}}

		assert.NoError(t, f.uc.Authorize(ctx, actor, authDomain.ActionRestore))
		assert.NoError(t, f.uc.Authorize(ctx, actor, authDomain.ActionManageOperator))
	})

	t.Run("Error_ForbiddenIsAudited", func(t *testing.T) {
		f := newFixture(t)
		actor := &authDomain.Actor{ID: "viewer", Permissions: []authDomain.Permission{authDomain.PermissionRead}}

		err := f.uc.Authorize(ctx, actor, authDomain.ActionApplyConfig)

		var authErr *authDomain.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, authDomain.KindForbidden, authErr.Kind)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		last := f.recorder.last()
		require.NotNil(t, last)
		assert.Equal(t, auditDomain.ActionAuthorize, last.Action)
		assert.Equal(t, "viewer", last.ActorID)
		assert.Equal(t, string(authDomain.ActionApplyConfig), last.Target)
		assert.Equal(t, auditDomain.Failed("forbidden"), last.Result)
	})

	t.Run("Error_NilActorDenied", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.uc.Authorize(ctx, nil, authDomain.ActionView), apperrors.ErrUnauthorized)
	})
}

func TestAuthUseCase_CreateOperator(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		op, err := f.uc.CreateOperator(ctx, "system", &authDomain.CreateOperatorInput{
			Name:        "bob",
			Password:    "Corr3ct-Horse-Battery",
			Permissions: []authDomain.Permission{authDomain.PermissionRead},
		})
		require.NoError(t, err)
		assert.Equal(t, "plain:Corr3ct-Horse-Battery", op.PasswordHash)

		operators, err := f.uc.ListOperators(ctx)
		require.NoError(t, err)
		assert.Len(t, operators, 1)
		assert.Equal(t, auditDomain.ActionOperatorCreate, f.recorder.last().Action)
	})

	t.Run("Error_Validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input *authDomain.CreateOperatorInput
		}{
			{
				name: "bad name",
				input: &authDomain.CreateOperatorInput{
					Name:        "Bob Smith",
					Password:    "Corr3ct-Horse-Battery",
					Permissions: []authDomain.Permission{authDomain.PermissionRead},
				},
			},
			{
				name: "weak password",
				input: &authDomain.CreateOperatorInput{
					Name:        "bob",
					Password:    "short",
					Permissions: []authDomain.Permission{authDomain.PermissionRead},
				},
			},
			{
				name: "no permissions",
				input: &authDomain.CreateOperatorInput{
					Name:     "bob",
					Password: "Corr3ct-Horse-Battery",
				},
			},
			{
				name: "unknown permission",
				input: &authDomain.CreateOperatorInput{
					Name:        "bob",
					Password:    "Corr3ct-Horse-Battery",
					Permissions: []authDomain.Permission{"root"},
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				_, err := f.uc.CreateOperator(ctx, "system", tt.input)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			})
		}
	})

	t.Run("Error_Duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "bob", authDomain.PermissionRead)

		_, err := f.uc.CreateOperator(ctx, "system", &authDomain.CreateOperatorInput{
			Name:        "bob",
			Password:    "Corr3ct-Horse-Battery",
			Permissions: []authDomain.Permission{authDomain.PermissionRead},
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_AuditFailureLeavesNoOperator", func(t *testing.T) {
		f := newFixture(t)
		f.recorder.err = &apperrors.StorageError{Op: "audit append", Err: errors.New("disk full")}

		_, err := f.uc.CreateOperator(ctx, "system", &authDomain.CreateOperatorInput{
			Name:        "bob",
			Password:    "Corr3ct-Horse-Battery",
			Permissions: []authDomain.Permission{authDomain.PermissionRead},
		})
		assert.ErrorIs(t, err, apperrors.ErrStorage)

		operators, err := f.repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, operators)
	})
}

func TestAuthUseCase_EnrollTOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_AlreadyEnrolled", func(t *testing.T) {
		f := newFixture(t)
		f.createOperator(t, "alice", authDomain.PermissionRead)

		_, err := f.uc.EnrollTOTP(ctx, "system", "alice")
		require.NoError(t, err)
		_, err = f.uc.EnrollTOTP(ctx, "system", "alice")
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_UnknownOperator", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.EnrollTOTP(ctx, "system", "ghost")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

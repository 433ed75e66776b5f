package domain

import (
	"fmt"

	"github.com/allisson/btsguard/internal/errors"
)

// AuthError kinds.
const (
	KindDenied    = "denied"
	KindForbidden = "forbidden"
)

// AuthError reports a failed authentication or authorization. It never says
// whether the identity exists or is locked.
type AuthError struct {
	Kind string
}

func (e *AuthError) Error() string {
	if e.Kind == KindForbidden {
		return "forbidden"
	}
	return "access denied"
}

// Unwrap maps the kind onto ErrUnauthorized or ErrForbidden.
func (e *AuthError) Unwrap() error {
	if e.Kind == KindForbidden {
		return errors.ErrForbidden
	}
	return errors.ErrUnauthorized
}

// InvalidPermissionError reports an unknown permission name.
type InvalidPermissionError struct {
	Permission string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("unknown permission %q", e.Permission)
}

// Unwrap returns ErrInvalidInput.
func (e *InvalidPermissionError) Unwrap() error {
	return errors.ErrInvalidInput
}

var (
	// ErrNoPermissions indicates an operator definition without permissions.
	ErrNoPermissions = errors.Wrap(errors.ErrInvalidInput, "at least one permission is required")

	// ErrOperatorExists indicates the operator name is taken.
	ErrOperatorExists = errors.Wrap(errors.ErrConflict, "operator already exists")

	// ErrOperatorNotFound indicates no operator has the name.
	ErrOperatorNotFound = errors.Wrap(errors.ErrNotFound, "operator not found")

	// ErrTOTPAlreadyEnrolled indicates the operator already has a second factor.
	ErrTOTPAlreadyEnrolled = errors.Wrap(errors.ErrConflict, "TOTP already enrolled")

	// ErrOperatorsCorrupt indicates operators.json cannot be decoded.
	ErrOperatorsCorrupt = errors.Wrap(errors.ErrCorrupt, "operator file corrupt")
)

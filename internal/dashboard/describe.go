package dashboard

import (
	"fmt"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// Describe translates an engine error into a line an operator can act on.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var authErr *authDomain.AuthError
	if apperrors.As(err, &authErr) {
		if authErr.Kind == authDomain.KindForbidden {
			return "You do not have permission to do that."
		}
		return "Access denied."
	}

	var validationErr *configDomain.ValidationError
	if apperrors.As(err, &validationErr) {
		return fmt.Sprintf("Invalid value for %s: %s.", validationErr.Field, validationErr.Reason)
	}

	var conflictErr *configDomain.ConflictError
	if apperrors.As(err, &conflictErr) {
		return fmt.Sprintf(
			"Configuration changed to v%d while you were editing v%d. Discard the draft and edit again.",
			conflictErr.CurrentVersion,
			conflictErr.BaseVersion,
		)
	}

	var applyErr *configDomain.ApplyError
	if apperrors.As(err, &applyErr) {
		msg := fmt.Sprintf("The station rejected v%d: %s.", applyErr.Version, applyErr.Reason)
		if applyErr.RolledBackTo != 0 {
			msg += fmt.Sprintf(" Running configuration restored to v%d.", applyErr.RolledBackTo)
		}
		return msg
	}

	var cryptoErr *cryptoDomain.CryptoError
	if apperrors.As(err, &cryptoErr) {
		switch cryptoErr.Reason {
		case cryptoDomain.ReasonInUse:
			return "A rotation for this certificate is already in progress."
		case cryptoDomain.ReasonInvalidValidity:
			return "Certificate validity must be positive."
		case cryptoDomain.ReasonNotActive:
			return "Only an active certificate can be rotated."
		}
		return fmt.Sprintf("Certificate %s failed.", cryptoErr.Op)
	}

	var restoreErr *backupDomain.RestoreError
	if apperrors.As(err, &restoreErr) {
		if restoreErr.Reason == backupDomain.RestoreNotFound {
			return fmt.Sprintf("Backup %s was not found. Nothing was changed.", restoreErr.ID)
		}
		return fmt.Sprintf("Backup %s failed its integrity check. Nothing was changed.", restoreErr.ID)
	}

	var storageErr *apperrors.StorageError
	if apperrors.As(err, &storageErr) {
		return "State could not be saved; the operation was not performed."
	}

	switch {
	case apperrors.Is(err, configDomain.ErrNoChanges):
		return "The draft has no changes."
	case apperrors.Is(err, cryptoDomain.ErrNoActiveCertificate):
		return "No usable certificate. Generate one first."
	case apperrors.Is(err, apperrors.ErrNotFound):
		return "Not found."
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return "Invalid input: " + err.Error() + "."
	case apperrors.Is(err, apperrors.ErrCorrupt):
		return "Stored state failed an integrity check."
	case apperrors.Is(err, apperrors.ErrRejected):
		return "The station refused the request: " + err.Error() + "."
	}
	return err.Error()
}

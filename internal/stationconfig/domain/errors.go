package domain

import (
	"fmt"

	"github.com/allisson/btsguard/internal/errors"
)

var (
	// ErrHistoryCorrupt indicates a history file or the current pointer failed its
	// digest check. It is fatal at startup.
	ErrHistoryCorrupt = errors.Wrap(errors.ErrCorrupt, "configuration history corrupt")

	// ErrVersionNotFound indicates no history file exists for the version.
	ErrVersionNotFound = errors.Wrap(errors.ErrNotFound, "configuration version not found")

	// ErrNoChanges indicates a commit of a draft without pending changes.
	ErrNoChanges = errors.Wrap(errors.ErrInvalidInput, "draft has no changes")
)

// ValidationError reports a field value rejected by the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidInput
}

// ConflictError reports a draft opened against a version that is no longer current.
type ConflictError struct {
	BaseVersion    uint64
	CurrentVersion uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"configuration changed since the draft was opened (draft base v%d, current v%d)",
		e.BaseVersion,
		e.CurrentVersion,
	)
}

// Unwrap returns ErrConflict.
func (e *ConflictError) Unwrap() error {
	return errors.ErrConflict
}

// ApplyError reports that the managed service refused a document. The current
// pointer has already been rolled back when it is returned.
type ApplyError struct {
	Version      uint64
	RolledBackTo uint64
	Reason       string
	Err          error
}

func (e *ApplyError) Error() string {
	msg := fmt.Sprintf("service rejected configuration v%d: %s", e.Version, e.Reason)
	if e.RolledBackTo != 0 {
		msg += fmt.Sprintf(" (rolled back to v%d)", e.RolledBackTo)
	}
	return msg
}

// Unwrap exposes ErrRejected and the underlying cause.
func (e *ApplyError) Unwrap() []error {
	if e.Err != nil {
		return []error{errors.ErrRejected, e.Err}
	}
	return []error{errors.ErrRejected}
}

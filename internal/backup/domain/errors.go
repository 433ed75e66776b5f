package domain

import (
	"fmt"

	"github.com/allisson/btsguard/internal/errors"
)

// Restore failure reasons that guarantee nothing was changed.
const (
	RestoreNotFound = "not found"
	RestoreCorrupt  = "corrupt"
)

// RestoreError reports a restore that was refused before any state changed.
type RestoreError struct {
	ID     string
	Reason string
	Err    error
}

func (e *RestoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("restore %s: %s: %v", e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("restore %s: %s", e.ID, e.Reason)
}

// Unwrap maps the reason onto ErrNotFound or ErrCorrupt.
func (e *RestoreError) Unwrap() []error {
	sentinel := errors.ErrCorrupt
	if e.Reason == RestoreNotFound {
		sentinel = errors.ErrNotFound
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}

// ErrIndexCorrupt indicates backups/index.json cannot be decoded.
var ErrIndexCorrupt = errors.Wrap(errors.ErrCorrupt, "backup index corrupt")

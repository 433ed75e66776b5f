// Package domain defines what the managed base-station service reports back.
package domain

import (
	"time"

	"github.com/allisson/btsguard/internal/errors"
)

// Status is the service state read after a reload.
type Status struct {
	Running        bool      `json:"running"`
	Detail         string    `json:"detail,omitempty"`
	ActiveSessions int       `json:"active_sessions"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Drift reports an out-of-band modification of the live configuration file.
type Drift struct {
	Path       string    `json:"path"`
	Op         string    `json:"op"`
	DetectedAt time.Time `json:"detected_at"`
}

var (
	// ErrCommandFailed indicates a reload or status command exited unsuccessfully.
	ErrCommandFailed = errors.Wrap(errors.ErrRejected, "service command failed")

	// ErrEmptyCommand indicates a command line without a program.
	ErrEmptyCommand = errors.Wrap(errors.ErrInvalidInput, "empty service command")
)

// Package domain defines the audit trail model: append-only, signed entries in a
// total order given by their sequence number.
package domain

import "time"

// Action identifies the kind of operation an entry records.
type Action string

// Recorded actions.
const (
	ActionConfigCommit   Action = "config.commit"
	ActionConfigApply    Action = "config.apply"
	ActionConfigRollback Action = "config.rollback"
	ActionConfigRestore  Action = "config.restore"

	ActionCertGenerate Action = "cert.generate"
	ActionCertRotate   Action = "cert.rotate"

	ActionBackupSnapshot Action = "backup.snapshot"
	ActionBackupRestore  Action = "backup.restore"

	ActionLogin          Action = "auth.login"
	ActionAuthorize      Action = "auth.authorize"
	ActionOperatorCreate Action = "operator.create"
	ActionOperatorTOTP   Action = "operator.enroll_totp"

	ActionServiceReload Action = "service.reload"
)

// Result is the outcome of the audited operation.
type Result struct {
	Success bool   `cbor:"1,keyasint" json:"success"`
	Reason  string `cbor:"2,keyasint,omitempty" json:"reason,omitempty"`
}

// Succeeded is the result recorded for a successful mutation.
func Succeeded() Result { return Result{Success: true} }

// Failed is the result recorded for a failed or denied operation.
func Failed(reason string) Result { return Result{Success: false, Reason: reason} }

// Entry is a single audit record. Sequence numbers start at 1 and have no gaps.
type Entry struct {
	Sequence     uint64    `cbor:"1,keyasint" json:"sequence"`
	Timestamp    time.Time `cbor:"2,keyasint" json:"timestamp"`
	ActorID      string    `cbor:"3,keyasint" json:"actor_id"`
	Action       Action    `cbor:"4,keyasint" json:"action"`
	Target       string    `cbor:"5,keyasint,omitempty" json:"target,omitempty"`
	BeforeDigest string    `cbor:"6,keyasint,omitempty" json:"before_digest,omitempty"`
	AfterDigest  string    `cbor:"7,keyasint,omitempty" json:"after_digest,omitempty"`
	Result       Result    `cbor:"8,keyasint" json:"result"`
	Signature    []byte    `cbor:"9,keyasint,omitempty" json:"signature,omitempty"`
}

// VerificationReport summarizes an integrity pass over the whole trail.
type VerificationReport struct {
	TotalChecked     int64    `json:"total_checked"`
	ValidCount       int64    `json:"valid_count"`
	InvalidCount     int64    `json:"invalid_count"`
	InvalidSequences []uint64 `json:"invalid_sequences"`
	// MissingSequences lists holes in the sequence, which indicate deleted entries.
	MissingSequences []uint64 `json:"missing_sequences"`
	LastSequence     uint64   `json:"last_sequence"`
}

// Passed reports whether every signature verified and no sequence is missing.
func (r *VerificationReport) Passed() bool {
	return r.InvalidCount == 0 && len(r.MissingSequences) == 0
}

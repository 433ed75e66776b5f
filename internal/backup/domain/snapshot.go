// Package domain defines backup snapshots: full, checksummed copies of the current
// configuration document and the sealed keystore.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// FormatVersion is written into every manifest.
const FormatVersion = 1

// Reason records why a snapshot was taken.
type Reason string

// Snapshot reasons.
const (
	ReasonManual     Reason = "manual"
	ReasonPreRestore Reason = "pre-restore"
)

// Snapshot describes one archive under the backup directory.
type Snapshot struct {
	ID             uuid.UUID   `json:"id"              yaml:"id"`
	CreatedAt      time.Time   `json:"created_at"      yaml:"created_at"`
	CreatedBy      string      `json:"created_by"      yaml:"created_by"`
	ConfigVersion  uint64      `json:"config_version"  yaml:"config_version"`
	ConfigDigest   string      `json:"config_digest"   yaml:"config_digest"`
	CertificateIDs []uuid.UUID `json:"certificate_ids" yaml:"certificate_ids"`
	Checksum       string      `json:"checksum"        yaml:"checksum"`
	Size           int64       `json:"size"            yaml:"size"`
	Reason         Reason      `json:"reason"          yaml:"reason"`
}

// Manifest is the first member of an archive.
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	Snapshot      *Snapshot `json:"snapshot"`
}

// Payload is the checksummed content of an archive.
type Payload struct {
	Document *configDomain.Document `json:"document"`
	Keystore *cryptoDomain.State    `json:"keystore"`
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	Restored   *Snapshot              `json:"restored"`
	PreRestore *Snapshot              `json:"pre_restore"`
	Document   *configDomain.Document `json:"document"`
}

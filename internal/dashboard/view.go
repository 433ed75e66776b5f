package dashboard

import (
	"time"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// Level grades a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the outcome line shown after an intent.
type Notice struct {
	Level Level
	Text  string
}

// ConfigView summarizes the current document.
type ConfigView struct {
	Version  uint64
	Digest   string
	Status   configDomain.Status
	Reason   string
	Sections []SectionView
}

// SectionView is one section as rendered.
type SectionView struct {
	Name   string
	Fields []FieldView
}

// FieldView is one key with its display value. Pending is set when the open
// draft changes it.
type FieldView struct {
	Key     string
	Value   string
	Pending string
	Changed bool
}

// DraftView summarizes the open draft.
type DraftView struct {
	BaseVersion uint64
	Changes     []string
}

// CertificateView is one certificate line.
type CertificateView struct {
	ID          string
	CommonName  string
	Status      cryptoDomain.Status
	NotAfter    time.Time
	Fingerprint string
	Expiring    bool
	Usable      bool
}

// BackupView is one snapshot line.
type BackupView struct {
	ID            string
	CreatedAt     time.Time
	CreatedBy     string
	ConfigVersion uint64
	Reason        backupDomain.Reason
}

// ViewModel is a complete, immutable picture of the station. A new value is
// built for every publication; nothing in it is shared with the controller.
type ViewModel struct {
	Operator     string
	Permissions  []string
	Config       ConfigView
	Draft        *DraftView
	Certificates []CertificateView
	Backups      []BackupView
	Service      *stationDomain.Status
	Drift        *stationDomain.Drift
	Metrics      *monitorDomain.Snapshot
	Notice       Notice
	UpdatedAt    time.Time
}

// Expiring counts certificates flagged as expiring.
func (v *ViewModel) Expiring() int {
	n := 0
	for _, c := range v.Certificates {
		if c.Expiring {
			n++
		}
	}
	return n
}

// Package domain defines metrics samples. Every field is collected independently
// and may be unavailable on its own.
package domain

import (
	"net/netip"
	"time"
)

// Field names a group of readings within a snapshot.
type Field string

// Sampled fields.
const (
	FieldCPU        Field = "cpu"
	FieldMemory     Field = "memory"
	FieldSessions   Field = "sessions"
	FieldInterfaces Field = "interfaces"
)

// CPULoad holds load averages and the utilization since the previous call.
type CPULoad struct {
	Load1   float64 `json:"load1"`
	Load5   float64 `json:"load5"`
	Load15  float64 `json:"load15"`
	Percent float64 `json:"percent"`
}

// Memory holds physical memory usage.
type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// Interface is a network interface and its addresses.
type Interface struct {
	Name      string   `json:"name"`
	Up        bool     `json:"up"`
	Addresses []string `json:"addresses"`
}

// IPv4 returns the first IPv4 address as reported, or "".
func (i Interface) IPv4() string {
	for _, addr := range i.Addresses {
		if prefix, err := netip.ParsePrefix(addr); err == nil && prefix.Addr().Is4() {
			return addr
		}
		if ip, err := netip.ParseAddr(addr); err == nil && ip.Is4() {
			return addr
		}
	}
	return ""
}

// Snapshot is one sample. Unavailable maps a field to the error that prevented
// its collection.
type Snapshot struct {
	TakenAt     time.Time        `json:"taken_at"`
	CPU         *CPULoad         `json:"cpu,omitempty"`
	Memory      *Memory          `json:"memory,omitempty"`
	Sessions    *int             `json:"sessions,omitempty"`
	Interfaces  []Interface      `json:"interfaces,omitempty"`
	Unavailable map[Field]string `json:"unavailable,omitempty"`
	Stale       bool             `json:"stale"`
}

// Available reports whether field was collected.
func (s *Snapshot) Available(field Field) bool {
	_, failed := s.Unavailable[field]
	return !failed
}

// Clone returns a copy that can be flagged without affecting the original.
func (s *Snapshot) Clone() *Snapshot {
	clone := *s
	clone.Interfaces = append([]Interface(nil), s.Interfaces...)
	if s.Unavailable != nil {
		clone.Unavailable = make(map[Field]string, len(s.Unavailable))
		for k, v := range s.Unavailable {
			clone.Unavailable[k] = v
		}
	}
	return &clone
}

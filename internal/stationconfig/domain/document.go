package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a committed document.
type Status string

// Document statuses.
const (
	StatusCommitted Status = "committed"
	StatusApplied   Status = "applied"
	StatusRejected  Status = "rejected"
	StatusRestored  Status = "restored"
)

// Field is one key of a section.
type Field struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// Section is an ordered group of fields.
type Section struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Content is the ordered section list of a document.
type Content []Section

// Clone returns a deep copy safe to mutate.
func (c Content) Clone() Content {
	clone := make(Content, len(c))
	for i, section := range c {
		clone[i] = Section{Name: section.Name, Fields: append([]Field(nil), section.Fields...)}
	}
	return clone
}

// Get returns the value of section.key.
func (c Content) Get(section, key string) (Value, bool) {
	for _, s := range c {
		if s.Name != section {
			continue
		}
		for _, f := range s.Fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}
	return Value{}, false
}

// Set stores the value in place, appending the section or key when missing.
func (c *Content) Set(section, key string, value Value) {
	for i := range *c {
		s := &(*c)[i]
		if s.Name != section {
			continue
		}
		for j := range s.Fields {
			if s.Fields[j].Key == key {
				s.Fields[j].Value = value
				return
			}
		}
		s.Fields = append(s.Fields, Field{Key: key, Value: value})
		return
	}
	*c = append(*c, Section{Name: section, Fields: []Field{{Key: key, Value: value}}})
}

// Digest is the hex SHA-256 of the canonical content. Metadata such as status or
// author does not contribute.
func (c Content) Digest() string {
	h := sha256.New()
	for _, s := range c {
		_, _ = fmt.Fprintf(h, "[%d:%s]\n", len(s.Name), s.Name)
		for _, f := range s.Fields {
			_, _ = fmt.Fprintf(h, "%d:%s=%s:%d:%s\n", len(f.Key), f.Key, f.Value.Type, len(f.Value.Raw), f.Value.Raw)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Document is a committed configuration version. Content never changes once
// committed; only Status and StatusReason follow the apply lifecycle.
type Document struct {
	Version       uint64    `json:"version"`
	Digest        string    `json:"digest"`
	ParentVersion uint64    `json:"parent_version,omitempty"`
	CommittedAt   time.Time `json:"committed_at"`
	CommittedBy   string    `json:"committed_by"`
	Status        Status    `json:"status"`
	StatusReason  string    `json:"status_reason,omitempty"`
	Content       Content   `json:"content"`
}

// Verify checks the stored digest against the content.
func (d *Document) Verify() bool {
	return d.Digest == d.Content.Digest()
}

// WithStatus returns a copy carrying the new status.
func (d *Document) WithStatus(status Status, reason string) *Document {
	clone := *d
	clone.Status = status
	clone.StatusReason = reason
	return &clone
}

// Get is a shortcut for Content.Get.
func (d *Document) Get(section, key string) (Value, bool) {
	return d.Content.Get(section, key)
}

// Pointer names the current version and the last version accepted by the
// service. Swapping it is the commit point of every configuration mutation.
type Pointer struct {
	Version        uint64 `json:"version"`
	Digest         string `json:"digest"`
	AppliedVersion uint64 `json:"applied_version,omitempty"`
}

// Change is one pending edit of a draft.
type Change struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Old     Value  `json:"old"`
	New     Value  `json:"new"`
}

// Field returns the dotted field name.
func (c Change) Field() string {
	return FieldName(c.Section, c.Key)
}

// Draft is a working copy owned by one editing session.
type Draft struct {
	ID          uuid.UUID `json:"id"`
	BaseVersion uint64    `json:"base_version"`
	Content     Content   `json:"content"`
	Changes     []Change  `json:"changes"`
}

// Clone returns a deep copy safe to mutate while the original is being read.
func (d *Draft) Clone() *Draft {
	clone := &Draft{
		ID:          d.ID,
		BaseVersion: d.BaseVersion,
		Changes:     append([]Change(nil), d.Changes...),
	}
	if d.Content != nil {
		clone.Content = d.Content.Clone()
	}
	return clone
}

// Dirty reports whether the draft holds pending changes.
func (d *Draft) Dirty() bool {
	return len(d.Changes) > 0
}

// FieldName formats section and key as "section.key".
func FieldName(section, key string) string {
	return section + "." + key
}

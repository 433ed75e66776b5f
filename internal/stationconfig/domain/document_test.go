package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

func sampleContent() Content {
	return Content{
		{Name: "radio", Fields: []Field{
			{Key: "band", Value: Value{Type: TypeString, Raw: "GSM900"}},
			{Key: "power_dbm", Value: Value{Type: TypeInt, Raw: "20"}},
		}},
		{Name: "Security", Fields: []Field{
			{Key: "TLS.Enabled", Value: Value{Type: TypeBool, Raw: "yes"}},
		}},
	}
}

func TestContent_GetSet(t *testing.T) {
	content := sampleContent()

	value, ok := content.Get("radio", "power_dbm")
	require.True(t, ok)
	assert.Equal(t, "20", value.Raw)

	_, ok = content.Get("radio", "missing")
	assert.False(t, ok)

	content.Set("radio", "power_dbm", Value{Type: TypeInt, Raw: "33"})
	content.Set("radio", "arfcn", Value{Type: TypeInt, Raw: "62"})
	content.Set("Interfaces", "GSM.Interface", Value{Type: TypeString, Raw: "eth1"})

	value, _ = content.Get("radio", "power_dbm")
	assert.Equal(t, "33", value.Raw)
	require.Len(t, content, 3)
	assert.Equal(t, "arfcn", content[0].Fields[2].Key)
	assert.Equal(t, "Interfaces", content[2].Name)
}

func TestContent_Clone(t *testing.T) {
	original := sampleContent()
	clone := original.Clone()

	clone.Set("radio", "power_dbm", Value{Type: TypeInt, Raw: "33"})

	value, _ := original.Get("radio", "power_dbm")
	assert.Equal(t, "20", value.Raw)
}

func TestDraft_Clone(t *testing.T) {
	draft := &Draft{BaseVersion: 4, Content: sampleContent()}
	clone := draft.Clone()

	old, _ := clone.Content.Get("radio", "power_dbm")
	updated := Value{Type: TypeInt, Raw: "33"}
	clone.Content.Set("radio", "power_dbm", updated)
	clone.Changes = append(clone.Changes, Change{Section: "radio", Key: "power_dbm", Old: old, New: updated})

	value, _ := draft.Content.Get("radio", "power_dbm")
	assert.Equal(t, "20", value.Raw)
	assert.Empty(t, draft.Changes)
	assert.Equal(t, uint64(4), clone.BaseVersion)
	assert.Nil(t, (&Draft{}).Clone().Content)
}

func TestContent_Digest(t *testing.T) {
	t.Run("Success_Deterministic", func(t *testing.T) {
		assert.Equal(t, sampleContent().Digest(), sampleContent().Digest())
		assert.Len(t, sampleContent().Digest(), 64)
	})

	t.Run("Success_ChangesWithValue", func(t *testing.T) {
		changed := sampleContent()
		changed.Set("radio", "power_dbm", Value{Type: TypeInt, Raw: "33"})
		assert.NotEqual(t, sampleContent().Digest(), changed.Digest())
	})

	t.Run("Success_ChangesWithOrder", func(t *testing.T) {
		reordered := sampleContent()
		reordered[0], reordered[1] = reordered[1], reordered[0]
		assert.NotEqual(t, sampleContent().Digest(), reordered.Digest())
	})

	t.Run("Success_FieldBoundariesMatter", func(t *testing.T) {
		a := Content{{Name: "s", Fields: []Field{{Key: "a", Value: Value{Type: TypeString, Raw: "b=c"}}}}}
		b := Content{{Name: "s", Fields: []Field{{Key: "a=b", Value: Value{Type: TypeString, Raw: "c"}}}}}
		assert.NotEqual(t, a.Digest(), b.Digest())
	})
}

func TestDocument_VerifyAndStatus(t *testing.T) {
	content := sampleContent()
	doc := &Document{Version: 6, Digest: content.Digest(), Status: StatusCommitted, Content: content}

	assert.True(t, doc.Verify())

	rejected := doc.WithStatus(StatusRejected, "service inactive")
	assert.Equal(t, StatusCommitted, doc.Status)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "service inactive", rejected.StatusReason)
	assert.True(t, rejected.Verify())

	doc.Content = doc.Content.Clone()
	doc.Content.Set("radio", "band", Value{Type: TypeString, Raw: "DCS1800"})
	assert.False(t, doc.Verify())
}

func TestRender(t *testing.T) {
	content := sampleContent()
	content.Set("Security", "LoginBanTime", Value{Type: TypeDuration, Raw: "5m0s"})
	doc := &Document{Version: 6, Digest: content.Digest(), Content: content}

	out := string(Render(doc, RenderInfo{
		Operator: "alice",
		Hostname: "bts01",
		At:       time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}))

	assert.True(t, strings.HasPrefix(out, "# YateBTS configuration v6 managed by btsguard\n"))
	assert.Contains(t, out, "# Last modified: 2026-03-01 12:30:00\n")
	assert.Contains(t, out, "# Authorized operators: alice@bts01\n")
	assert.Contains(t, out, "\n[radio]\nband=GSM900\npower_dbm=20\n")
	assert.Contains(t, out, "TLS.Enabled=yes\nLoginBanTime=300\n")
}

func TestErrors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		err := &ValidationError{Field: "radio.power_dbm", Reason: "must be no greater than 43"}
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, "invalid value for radio.power_dbm: must be no greater than 43", err.Error())
	})

	t.Run("ConflictError", func(t *testing.T) {
		err := &ConflictError{BaseVersion: 6, CurrentVersion: 7}
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Contains(t, err.Error(), "draft base v6, current v7")
	})

	t.Run("ApplyError", func(t *testing.T) {
		cause := errors.New("exit status 3")
		err := &ApplyError{Version: 7, RolledBackTo: 6, Reason: "service inactive", Err: cause}
		assert.ErrorIs(t, err, apperrors.ErrRejected)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "service rejected configuration v7: service inactive (rolled back to v6)", err.Error())
	})
}

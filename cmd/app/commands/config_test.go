package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
	configMocks "github.com/allisson/btsguard/internal/stationconfig/usecase/mocks"
)

func testDocument(version uint64, status configDomain.Status) *configDomain.Document {
	content := configDomain.Content{
		{Name: "gsm", Fields: []configDomain.Field{
			{Key: "Radio.Band", Value: configDomain.Value{Type: configDomain.TypeInt, Raw: "900"}},
			{Key: "Identity.ShortName", Value: configDomain.Value{Type: configDomain.TypeString, Raw: "btsguard"}},
		}},
	}
	return &configDomain.Document{
		Version:     version,
		Digest:      content.Digest(),
		CommittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CommittedBy: "op-1",
		Status:      status,
		Content:     content,
	}
}

func TestRunShowConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("current-text", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("Current", ctx).Return(testDocument(2, configDomain.StatusApplied))

		var out bytes.Buffer
		err := RunShowConfig(ctx, store, &out, 0, FormatText)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Version 2 (applied) committed by op-1")
		assert.Contains(t, out.String(), "[gsm]")
		assert.Contains(t, out.String(), "Radio.Band=900")
		store.AssertExpectations(t)
	})

	t.Run("historical-json", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("Current", ctx).Return(testDocument(2, configDomain.StatusApplied))
		store.On("Get", ctx, uint64(1)).Return(testDocument(1, configDomain.StatusCommitted), nil)

		var out bytes.Buffer
		err := RunShowConfig(ctx, store, &out, 1, FormatJSON)
		require.NoError(t, err)

		var result documentView
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, uint64(1), result.Version)
		require.Len(t, result.Sections, 1)
		assert.Equal(t, "int", result.Sections[0].Fields[0].Type)
	})

	t.Run("version-not-found", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("Current", ctx).Return(testDocument(2, configDomain.StatusApplied))
		store.On("Get", ctx, uint64(9)).Return(nil, configDomain.ErrVersionNotFound)

		err := RunShowConfig(ctx, store, &bytes.Buffer{}, 9, FormatText)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("invalid-format", func(t *testing.T) {
		err := RunShowConfig(ctx, nil, nil, 0, "xml")
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		section string
		key     string
		value   string
		wantErr bool
	}{
		{name: "simple", input: "gsm.Radio.Band=1800", section: "gsm", key: "Radio.Band", value: "1800"},
		{name: "empty-value", input: "gsm.Identity.ShortName=", section: "gsm", key: "Identity.ShortName"},
		{name: "value-with-equals", input: "tmsi.Note=a=b", section: "tmsi", key: "Note", value: "a=b"},
		{name: "missing-equals", input: "gsm.Radio.Band", wantErr: true},
		{name: "missing-key", input: "gsm=1", wantErr: true},
		{name: "missing-section", input: ".Band=1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, key, value, err := parseAssignment(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.section, section)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestRunSetField(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	newDraft := func() *configDomain.Draft {
		return &configDomain.Draft{
			BaseVersion: 2,
			Content:     testDocument(2, configDomain.StatusApplied).Content.Clone(),
			Changes: []configDomain.Change{{
				Section: "gsm",
				Key:     "Radio.Band",
				Old:     configDomain.Value{Type: configDomain.TypeInt, Raw: "900"},
				New:     configDomain.Value{Type: configDomain.TypeInt, Raw: "1800"},
			}},
		}
	}

	t.Run("commit-only", func(t *testing.T) {
		draft := newDraft()
		store := &configMocks.MockConfigUseCase{}
		store.On("BeginEdit", ctx).Return(draft, nil)
		store.On("SetField", ctx, draft, "gsm", "Radio.Band", "1800").Return(nil)
		store.On("Commit", ctx, "op-1", draft).Return(testDocument(3, configDomain.StatusCommitted), nil)

		var out bytes.Buffer
		err := RunSetField(ctx, store, logger, &out, "op-1", []string{"gsm.Radio.Band=1800"}, false, FormatText)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Committed version 3 (committed)")
		assert.Contains(t, out.String(), "gsm.Radio.Band: 900 -> 1800")
		store.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("commit-and-apply", func(t *testing.T) {
		draft := newDraft()
		store := &configMocks.MockConfigUseCase{}
		store.On("BeginEdit", ctx).Return(draft, nil)
		store.On("SetField", ctx, draft, "gsm", "Radio.Band", "1800").Return(nil)
		store.On("Commit", ctx, "op-1", draft).Return(testDocument(3, configDomain.StatusCommitted), nil)
		store.On("Apply", ctx, "op-1", uint64(3)).Return(nil)
		store.On("Get", ctx, uint64(3)).Return(testDocument(3, configDomain.StatusApplied), nil)

		var out bytes.Buffer
		err := RunSetField(ctx, store, logger, &out, "op-1", []string{"gsm.Radio.Band=1800"}, true, FormatJSON)
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, "applied", result["status"])
		assert.NotContains(t, result, "sections")
		store.AssertExpectations(t)
	})

	t.Run("validation-error-leaves-no-commit", func(t *testing.T) {
		draft := newDraft()
		store := &configMocks.MockConfigUseCase{}
		store.On("BeginEdit", ctx).Return(draft, nil)
		store.On("SetField", ctx, draft, "gsm", "Radio.Band", "loud").
			Return(&configDomain.ValidationError{Field: "gsm.Radio.Band", Reason: "not an integer"})

		err := RunSetField(ctx, store, logger, &bytes.Buffer{}, "op-1", []string{"gsm.Radio.Band=loud"}, false, FormatText)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "Invalid value for gsm.Radio.Band: not an integer.")
		store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed-assignment", func(t *testing.T) {
		draft := newDraft()
		store := &configMocks.MockConfigUseCase{}
		store.On("BeginEdit", ctx).Return(draft, nil)

		err := RunSetField(ctx, store, logger, &bytes.Buffer{}, "op-1", []string{"Radio.Band"}, false, FormatText)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("conflict", func(t *testing.T) {
		draft := newDraft()
		store := &configMocks.MockConfigUseCase{}
		store.On("BeginEdit", ctx).Return(draft, nil)
		store.On("SetField", ctx, draft, "gsm", "Radio.Band", "1800").Return(nil)
		store.On("Commit", ctx, "op-1", draft).
			Return(nil, &configDomain.ConflictError{BaseVersion: 2, CurrentVersion: 3})

		err := RunSetField(ctx, store, logger, &bytes.Buffer{}, "op-1", []string{"gsm.Radio.Band=1800"}, false, FormatText)
		require.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("no-assignments", func(t *testing.T) {
		err := RunSetField(ctx, nil, logger, nil, "op-1", nil, false, FormatText)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestRunApply(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("success", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("Apply", ctx, "op-1", uint64(0)).Return(nil)
		store.On("Current", ctx).Return(testDocument(3, configDomain.StatusApplied))

		var out bytes.Buffer
		err := RunApply(ctx, store, logger, &out, "op-1", 0, FormatText)
		require.NoError(t, err)
		assert.Equal(t, "Applied version 3\n", out.String())
		store.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("Apply", ctx, "op-1", uint64(3)).
			Return(&configDomain.ApplyError{Version: 3, RolledBackTo: 2, Reason: "reload exited with status 1"})

		err := RunApply(ctx, store, logger, &bytes.Buffer{}, "op-1", 3, FormatText)
		require.ErrorIs(t, err, apperrors.ErrRejected)
		assert.Contains(t, err.Error(), "Running configuration restored to v2.")
	})
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		rejected := testDocument(2, configDomain.StatusRejected)
		rejected.StatusReason = "reload failed"
		store := &configMocks.MockConfigUseCase{}
		store.On("History", ctx).Return([]*configDomain.Document{
			testDocument(1, configDomain.StatusApplied),
			rejected,
		}, nil)

		var out bytes.Buffer
		require.NoError(t, RunHistory(ctx, store, &out, FormatText))

		lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		assert.Contains(t, string(lines[0]), "v1")
		assert.Contains(t, string(lines[1]), `"reload failed"`)
	})

	t.Run("yaml", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("History", ctx).Return([]*configDomain.Document{testDocument(1, configDomain.StatusApplied)}, nil)

		var out bytes.Buffer
		require.NoError(t, RunHistory(ctx, store, &out, FormatYAML))
		assert.Contains(t, out.String(), "version: 1")
		assert.Contains(t, out.String(), "status: applied")
	})

	t.Run("storage-error", func(t *testing.T) {
		store := &configMocks.MockConfigUseCase{}
		store.On("History", ctx).Return(nil, apperrors.ErrStorage)

		err := RunHistory(ctx, store, &bytes.Buffer{}, FormatText)
		require.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

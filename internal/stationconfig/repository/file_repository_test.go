package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

func newDocument(t *testing.T, version uint64) *configDomain.Document {
	t.Helper()
	content, err := configDomain.DefaultSchema().Defaults()
	require.NoError(t, err)
	return &configDomain.Document{
		Version:     version,
		Digest:      content.Digest(),
		CommittedAt: time.Now().UTC(),
		CommittedBy: "admin",
		Status:      configDomain.StatusCommitted,
		Content:     content,
	}
}

func TestFileRepository_Pointer(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	t.Run("Success_MissingPointer", func(t *testing.T) {
		pointer, err := repo.LoadPointer(ctx)
		require.NoError(t, err)
		assert.Nil(t, pointer)
	})

	t.Run("Success_RoundTrip", func(t *testing.T) {
		require.NoError(t, repo.SavePointer(ctx, &configDomain.Pointer{Version: 3, Digest: "abc", AppliedVersion: 2}))

		pointer, err := repo.LoadPointer(ctx)
		require.NoError(t, err)
		assert.Equal(t, &configDomain.Pointer{Version: 3, Digest: "abc", AppliedVersion: 2}, pointer)
	})

	t.Run("Error_CorruptPointer", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(repo.dir, pointerFile), []byte("{"), 0600))

		_, err := repo.LoadPointer(ctx)
		assert.ErrorIs(t, err, apperrors.ErrCorrupt)
	})
}

func TestFileRepository_Documents(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	for _, version := range []uint64{1, 2, 10} {
		require.NoError(t, repo.SaveDocument(ctx, newDocument(t, version)))
	}

	t.Run("Success_ListVersionsNumericOrder", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(repo.dir, historyDir, "notes.txt"), []byte("x"), 0600))

		versions, err := repo.ListVersions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 10}, versions)
	})

	t.Run("Success_LoadDocument", func(t *testing.T) {
		doc, err := repo.LoadDocument(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), doc.Version)
		assert.True(t, doc.Verify())
	})

	t.Run("Error_Missing", func(t *testing.T) {
		_, err := repo.LoadDocument(ctx, 99)
		assert.ErrorIs(t, err, configDomain.ErrVersionNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_DigestMismatch", func(t *testing.T) {
		doc := newDocument(t, 5)
		doc.Digest = "0000"
		require.NoError(t, repo.SaveDocument(ctx, doc))

		_, err := repo.LoadDocument(ctx, 5)
		assert.ErrorIs(t, err, configDomain.ErrHistoryCorrupt)
	})

	t.Run("Success_DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteDocument(ctx, 10))
		require.NoError(t, repo.DeleteDocument(ctx, 10))

		_, err := repo.LoadDocument(ctx, 10)
		assert.ErrorIs(t, err, configDomain.ErrVersionNotFound)
	})
}

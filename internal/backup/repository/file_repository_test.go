package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

func TestFileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_IndexOrderedByCreation", func(t *testing.T) {
		repo, err := NewFileRepository(t.TempDir())
		require.NoError(t, err)

		empty, err := repo.LoadIndex(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		now := time.Now().UTC()
		newer := &backupDomain.Snapshot{ID: uuid.New(), CreatedAt: now, Reason: backupDomain.ReasonManual}
		older := &backupDomain.Snapshot{ID: uuid.New(), CreatedAt: now.Add(-time.Hour)}
		require.NoError(t, repo.SaveIndex(ctx, []*backupDomain.Snapshot{newer, older}))

		got, err := repo.LoadIndex(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, older.ID, got[0].ID)
		assert.Equal(t, newer.ID, got[1].ID)
	})

	t.Run("Success_ArchiveLifecycle", func(t *testing.T) {
		repo, err := NewFileRepository(t.TempDir())
		require.NoError(t, err)
		id := uuid.New()

		require.NoError(t, repo.WriteArchive(ctx, id, []byte("archive")))
		info, err := os.Stat(repo.ArchivePath(id))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		data, err := repo.ReadArchive(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("archive"), data)

		require.NoError(t, repo.DeleteArchive(ctx, id))
		require.NoError(t, repo.DeleteArchive(ctx, id))
		_, err = repo.ReadArchive(ctx, id)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Error_CorruptIndex", func(t *testing.T) {
		dir := t.TempDir()
		repo, err := NewFileRepository(dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("[oops"), 0640))

		_, err = repo.LoadIndex(ctx)
		assert.ErrorIs(t, err, apperrors.ErrCorrupt)
	})
}

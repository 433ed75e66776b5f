package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
)

func newTestRepository(t *testing.T) *BoltRepository {
	t.Helper()
	repo, err := NewBoltRepository(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func buildEntry(action auditDomain.Action) func(uint64) (*auditDomain.Entry, error) {
	return func(seq uint64) (*auditDomain.Entry, error) {
		return &auditDomain.Entry{
			Sequence:  seq,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
			ActorID:   "alice",
			Action:    action,
			Result:    auditDomain.Succeeded(),
			Signature: []byte{1, 2, 3},
		}, nil
	}
}

func TestBoltRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SequentialNumbers", func(t *testing.T) {
		repo := newTestRepository(t)

		first, err := repo.Append(ctx, buildEntry(auditDomain.ActionConfigCommit))
		require.NoError(t, err)
		second, err := repo.Append(ctx, buildEntry(auditDomain.ActionConfigApply))
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first.Sequence)
		assert.Equal(t, uint64(2), second.Sequence)

		last, err := repo.LastSequence(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), last)
	})

	t.Run("Success_FailedBuildDoesNotConsumeSequence", func(t *testing.T) {
		repo := newTestRepository(t)

		_, err := repo.Append(ctx, func(uint64) (*auditDomain.Entry, error) {
			return nil, errors.New("sign failed")
		})
		require.Error(t, err)

		entry, err := repo.Append(ctx, buildEntry(auditDomain.ActionConfigCommit))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), entry.Sequence)
	})

	t.Run("Success_ConcurrentAppendsHaveNoGaps", func(t *testing.T) {
		repo := newTestRepository(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Append(ctx, buildEntry(auditDomain.ActionCertRotate))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		entries, err := repo.ListSince(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 20)
		for i, e := range entries {
			assert.Equal(t, uint64(i+1), e.Sequence)
		}
	})

	t.Run("Error_CanceledContext", func(t *testing.T) {
		repo := newTestRepository(t)
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.Append(canceled, buildEntry(auditDomain.ActionConfigCommit))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBoltRepository_ListSince(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for i := 0; i < 5; i++ {
		_, err := repo.Append(ctx, buildEntry(auditDomain.ActionConfigCommit))
		require.NoError(t, err)
	}

	entries, err := repo.ListSince(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(4), entries[0].Sequence)
	assert.Equal(t, uint64(5), entries[1].Sequence)

	// Round trip keeps nanoseconds and the signature.
	assert.Equal(t, 123456789, entries[0].Timestamp.Nanosecond())
	assert.Equal(t, []byte{1, 2, 3}, entries[0].Signature)

	none, err := repo.ListSince(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBoltRepository_SingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	repo, err := NewBoltRepository(path)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	_, err = NewBoltRepository(path)
	assert.Error(t, err)
}

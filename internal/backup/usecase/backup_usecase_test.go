package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	backupRepository "github.com/allisson/btsguard/internal/backup/repository"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*auditDomain.Entry
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stored := *entry
	stored.Sequence = uint64(len(f.entries) + 1)
	f.entries = append(f.entries, &stored)
	return &stored, nil
}

func (f *fakeRecorder) actions() []auditDomain.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]auditDomain.Action, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fakeConfig struct {
	mu         sync.RWMutex
	current    *configDomain.Document
	replaceErr error
	barriers   int
}

func newFakeConfig(power string) *fakeConfig {
	f := &fakeConfig{}
	f.current = f.document(1, power)
	return f
}

func (f *fakeConfig) document(version uint64, power string) *configDomain.Document {
	content := configDomain.Content{}
	content.Set("radio", "power_dbm", configDomain.Value{Type: configDomain.TypeInt, Raw: power})
	return &configDomain.Document{
		Version: version,
		Digest:  content.Digest(),
		Status:  configDomain.StatusCommitted,
		Content: content,
	}
}

func (f *fakeConfig) set(power string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.document(f.current.Version+1, power)
}

func (f *fakeConfig) WithReadBarrier(ctx context.Context, fn func(doc *configDomain.Document) error) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	f.barriers++
	return fn(f.current)
}

func (f *fakeConfig) Replace(
	ctx context.Context,
	actorID string,
	content configDomain.Content,
	reason string,
) (*configDomain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	f.current = &configDomain.Document{
		Version:       f.current.Version + 1,
		Digest:        content.Digest(),
		ParentVersion: f.current.Version,
		Status:        configDomain.StatusRestored,
		StatusReason:  reason,
		Content:       content.Clone(),
	}
	return f.current, nil
}

func (f *fakeConfig) doc() *configDomain.Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

type fakeKeys struct {
	mu        sync.Mutex
	state     *cryptoDomain.State
	importErr error
	imports   int
}

func newFakeKeys() *fakeKeys {
	handle := uuid.New()
	return &fakeKeys{state: &cryptoDomain.State{
		Certificates: []*cryptoDomain.Certificate{{ID: uuid.New(), KeyHandle: handle}},
		Keys:         []*cryptoDomain.SealedKey{{Handle: handle, Ciphertext: []byte("sealed")}},
	}}
}

func (f *fakeKeys) ExportState(ctx context.Context) (*cryptoDomain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeKeys) ImportState(ctx context.Context, state *cryptoDomain.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.importErr != nil {
		return f.importErr
	}
	f.imports++
	f.state = state
	return nil
}

func (f *fakeKeys) certIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(f.state.Certificates))
	for _, cert := range f.state.Certificates {
		ids = append(ids, cert.ID)
	}
	return ids
}

type fixture struct {
	uc       *backupUseCase
	repo     *backupRepository.FileRepository
	config   *fakeConfig
	keys     *fakeKeys
	recorder *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := backupRepository.NewFileRepository(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		repo:     repo,
		config:   newFakeConfig("20"),
		keys:     newFakeKeys(),
		recorder: &fakeRecorder{},
	}
	f.uc = NewBackupUseCase(BackupUseCaseParams{
		Repository: repo,
		Config:     f.config,
		Keys:       f.keys,
		Audit:      f.recorder,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).(*backupUseCase)
	return f
}

func TestBackupUseCase_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)

		assert.Equal(t, uint8(7), uint8(snapshot.ID.Version()))
		assert.Equal(t, backupDomain.ReasonManual, snapshot.Reason)
		assert.Equal(t, uint64(1), snapshot.ConfigVersion)
		assert.Equal(t, f.config.doc().Digest, snapshot.ConfigDigest)
		assert.Equal(t, f.keys.certIDs(), snapshot.CertificateIDs)
		assert.Len(t, snapshot.Checksum, 64)
		assert.Positive(t, snapshot.Size)
		assert.Equal(t, 1, f.config.barriers)
		assert.Equal(t, []auditDomain.Action{auditDomain.ActionBackupSnapshot}, f.recorder.actions())

		list, err := f.uc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, snapshot.ID, list[0].ID)
	})

	t.Run("Success_ListNewestFirst", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)
		second, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)

		list, err := f.uc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	})

	t.Run("Error_AuditFailureLeavesNothing", func(t *testing.T) {
		f := newFixture(t)
		f.recorder.err = &apperrors.StorageError{Op: "audit append", Err: errors.New("disk full")}

		_, err := f.uc.Snapshot(ctx, "admin")
		assert.ErrorIs(t, err, apperrors.ErrStorage)

		list, err := f.repo.LoadIndex(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestBackupUseCase_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		f := newFixture(t)
		originalKeys := f.keys.certIDs()

		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)

		f.config.set("33")
		f.keys.state = newFakeKeys().state
		require.NotEqual(t, snapshot.ConfigDigest, f.config.doc().Digest)

		result, err := f.uc.Restore(ctx, "admin", snapshot.ID.String())
		require.NoError(t, err)

		assert.Equal(t, snapshot.ConfigDigest, f.config.doc().Digest)
		assert.Equal(t, configDomain.StatusRestored, result.Document.Status)
		assert.Equal(t, originalKeys, f.keys.certIDs())
		assert.Equal(t, snapshot.ID, result.Restored.ID)
		assert.Equal(t, backupDomain.ReasonPreRestore, result.PreRestore.Reason)
		assert.Equal(t, uint64(2), result.PreRestore.ConfigVersion)
		assert.Equal(t, []auditDomain.Action{
			auditDomain.ActionBackupSnapshot,
			auditDomain.ActionBackupSnapshot,
			auditDomain.ActionBackupRestore,
		}, f.recorder.actions())
	})

	t.Run("Success_Idempotent", func(t *testing.T) {
		f := newFixture(t)
		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)
		f.config.set("40")

		first, err := f.uc.Restore(ctx, "admin", snapshot.ID.String())
		require.NoError(t, err)
		second, err := f.uc.Restore(ctx, "admin", snapshot.ID.String())
		require.NoError(t, err)

		assert.Equal(t, first.Document.Digest, second.Document.Digest)
		assert.Equal(t, first.Document.Content, second.Document.Content)
	})

	t.Run("Error_MissingIsNotFound", func(t *testing.T) {
		f := newFixture(t)
		before := f.config.doc()

		_, err := f.uc.Restore(ctx, "admin", "missing")

		var restoreErr *backupDomain.RestoreError
		require.ErrorAs(t, err, &restoreErr)
		assert.Equal(t, backupDomain.RestoreNotFound, restoreErr.Reason)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Same(t, before, f.config.doc())
		assert.Empty(t, f.recorder.actions())
		assert.Zero(t, f.keys.imports)
	})

	t.Run("Error_UnknownIDIsNotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.Restore(ctx, "admin", uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_ChecksumMismatchIsCorrupt", func(t *testing.T) {
		f := newFixture(t)
		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)
		f.config.set("33")
		before := f.config.doc()

		index, err := f.repo.LoadIndex(ctx)
		require.NoError(t, err)
		index[0].Checksum = "00" + index[0].Checksum[2:]
		require.NoError(t, f.repo.SaveIndex(ctx, index))

		_, err = f.uc.Restore(ctx, "admin", snapshot.ID.String())

		var restoreErr *backupDomain.RestoreError
		require.ErrorAs(t, err, &restoreErr)
		assert.Equal(t, backupDomain.RestoreCorrupt, restoreErr.Reason)
		assert.ErrorIs(t, err, apperrors.ErrCorrupt)
		assert.Same(t, before, f.config.doc())
		assert.Zero(t, f.keys.imports)
	})

	t.Run("Error_DamagedArchiveIsCorrupt", func(t *testing.T) {
		f := newFixture(t)
		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(f.repo.ArchivePath(snapshot.ID), []byte("garbage"), 0600))

		_, err = f.uc.Restore(ctx, "admin", snapshot.ID.String())
		assert.ErrorIs(t, err, apperrors.ErrCorrupt)
	})

	t.Run("Error_ReplaceFailureRollsBackKeystore", func(t *testing.T) {
		f := newFixture(t)
		snapshot, err := f.uc.Snapshot(ctx, "admin")
		require.NoError(t, err)

		replacement := newFakeKeys()
		f.keys.state = replacement.state
		current := f.keys.certIDs()
		f.config.replaceErr = &configDomain.ValidationError{Field: "radio.power_dbm", Reason: "out of range"}

		_, err = f.uc.Restore(ctx, "admin", snapshot.ID.String())
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, current, f.keys.certIDs())
		assert.Equal(t, 2, f.keys.imports)
	})
}

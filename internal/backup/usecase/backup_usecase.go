package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	backupService "github.com/allisson/btsguard/internal/backup/service"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// BackupUseCaseParams groups the collaborators of the backup use case.
type BackupUseCaseParams struct {
	Repository Repository
	Config     ConfigStore
	Keys       KeyStore
	Audit      AuditRecorder
	Logger     *slog.Logger
}

type backupUseCase struct {
	repo   Repository
	config ConfigStore
	keys   KeyStore
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time

	// mu serializes snapshot and restore so the index has a single writer.
	mu sync.Mutex
}

// NewBackupUseCase creates the backup manager.
func NewBackupUseCase(params BackupUseCaseParams) BackupUseCase {
	return &backupUseCase{
		repo:   params.Repository,
		config: params.Config,
		keys:   params.Keys,
		audit:  params.Audit,
		logger: params.Logger,
		now:    time.Now,
	}
}

func backupTarget(id uuid.UUID) string {
	return "backup/" + id.String()
}

// Snapshot takes a manual snapshot.
func (b *backupUseCase) Snapshot(ctx context.Context, actorID string) (*backupDomain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot, _, err := b.snapshot(ctx, actorID, backupDomain.ReasonManual)
	return snapshot, err
}

// capture copies the document and keystore while both stores hold off mutations.
func (b *backupUseCase) capture(ctx context.Context) (*backupDomain.Payload, error) {
	payload := &backupDomain.Payload{}
	err := b.config.WithReadBarrier(ctx, func(doc *configDomain.Document) error {
		if doc == nil {
			return apperrors.Wrap(apperrors.ErrNotFound, "no current configuration")
		}
		state, err := b.keys.ExportState(ctx)
		if err != nil {
			return err
		}
		payload.Document = doc
		payload.Keystore = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// snapshot writes the archive, audits, then publishes it in the index. It returns
// the captured payload so restore can roll back to it.
func (b *backupUseCase) snapshot(
	ctx context.Context,
	actorID string,
	reason backupDomain.Reason,
) (*backupDomain.Snapshot, *backupDomain.Payload, error) {
	payload, err := b.capture(ctx)
	if err != nil {
		return nil, nil, err
	}

	payloadData, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal backup payload")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to generate snapshot id")
	}
	certIDs := make([]uuid.UUID, 0, len(payload.Keystore.Certificates))
	for _, cert := range payload.Keystore.Certificates {
		certIDs = append(certIDs, cert.ID)
	}
	snapshot := &backupDomain.Snapshot{
		ID:             id,
		CreatedAt:      b.now().UTC(),
		CreatedBy:      actorID,
		ConfigVersion:  payload.Document.Version,
		ConfigDigest:   payload.Document.Digest,
		CertificateIDs: certIDs,
		Checksum:       backupService.Checksum(payloadData),
		Reason:         reason,
	}

	manifestData, err := json.Marshal(backupDomain.Manifest{
		FormatVersion: backupDomain.FormatVersion,
		Snapshot:      snapshot,
	})
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal backup manifest")
	}
	archive, err := backupService.Encode(manifestData, payloadData, snapshot.CreatedAt)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode backup archive")
	}
	snapshot.Size = int64(len(archive))

	index, err := b.repo.LoadIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := b.repo.WriteArchive(ctx, id, archive); err != nil {
		return nil, nil, &apperrors.StorageError{Op: "write backup archive", Err: err}
	}

	entry := &auditDomain.Entry{
		ActorID:     actorID,
		Action:      auditDomain.ActionBackupSnapshot,
		Target:      backupTarget(id),
		AfterDigest: snapshot.ConfigDigest,
		Result:      auditDomain.Succeeded(),
	}
	if _, err := b.audit.Record(ctx, entry); err != nil {
		b.discard(ctx, id)
		return nil, nil, err
	}

	if err := b.repo.SaveIndex(ctx, append(index, snapshot)); err != nil {
		b.discard(ctx, id)
		b.recordFailure(ctx, entry, err)
		return nil, nil, &apperrors.StorageError{Op: "save backup index", Err: err}
	}

	b.logger.Info("snapshot created",
		slog.String("id", id.String()),
		slog.String("reason", string(reason)),
		slog.Uint64("config_version", snapshot.ConfigVersion),
		slog.Int("certificates", len(certIDs)),
	)
	return snapshot, payload, nil
}

func (b *backupUseCase) discard(ctx context.Context, id uuid.UUID) {
	if err := b.repo.DeleteArchive(ctx, id); err != nil {
		b.logger.Error("failed to remove unpublished archive", slog.String("id", id.String()), slog.Any("error", err))
	}
}

// load finds and verifies a snapshot. Every failure is a *RestoreError.
func (b *backupUseCase) load(
	ctx context.Context,
	id string,
) (*backupDomain.Snapshot, *backupDomain.Payload, error) {
	notFound := &backupDomain.RestoreError{ID: id, Reason: backupDomain.RestoreNotFound}
	snapshotID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, notFound
	}

	index, err := b.repo.LoadIndex(ctx)
	if err != nil {
		return nil, nil, &backupDomain.RestoreError{ID: id, Reason: backupDomain.RestoreCorrupt, Err: err}
	}
	i := slices.IndexFunc(index, func(s *backupDomain.Snapshot) bool { return s.ID == snapshotID })
	if i < 0 {
		return nil, nil, notFound
	}
	snapshot := index[i]

	corrupt := func(err error) error {
		return &backupDomain.RestoreError{ID: id, Reason: backupDomain.RestoreCorrupt, Err: err}
	}

	archive, err := b.repo.ReadArchive(ctx, snapshotID)
	if os.IsNotExist(err) {
		return nil, nil, corrupt(apperrors.New("archive missing"))
	}
	if err != nil {
		return nil, nil, corrupt(err)
	}
	manifestData, payloadData, err := backupService.Decode(archive)
	if err != nil {
		return nil, nil, corrupt(err)
	}

	checksum := backupService.Checksum(payloadData)
	if checksum != snapshot.Checksum {
		return nil, nil, corrupt(apperrors.New("checksum mismatch"))
	}
	var manifest backupDomain.Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil || manifest.Snapshot == nil {
		return nil, nil, corrupt(apperrors.New("unreadable manifest"))
	}
	if manifest.Snapshot.ID != snapshotID || manifest.Snapshot.Checksum != checksum {
		return nil, nil, corrupt(apperrors.New("manifest does not match index"))
	}

	var payload backupDomain.Payload
	if err := json.Unmarshal(payloadData, &payload); err != nil {
		return nil, nil, corrupt(apperrors.New("unreadable payload"))
	}
	if payload.Document == nil || !payload.Document.Verify() || payload.Keystore == nil {
		return nil, nil, corrupt(apperrors.New("payload incomplete"))
	}
	return snapshot, &payload, nil
}

// Restore verifies the archive, takes a pre-restore snapshot, imports the keystore
// and replaces the document. A failing replace re-imports the pre-restore keystore.
func (b *backupUseCase) Restore(
	ctx context.Context,
	actorID, id string,
) (*backupDomain.RestoreResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot, payload, err := b.load(ctx, id)
	if err != nil {
		b.logger.Warn("restore refused", slog.String("id", id), slog.Any("error", err))
		return nil, err
	}

	pre, prePayload, err := b.snapshot(ctx, actorID, backupDomain.ReasonPreRestore)
	if err != nil {
		return nil, apperrors.Wrap(err, "pre-restore snapshot failed")
	}

	entry := &auditDomain.Entry{
		ActorID:      actorID,
		Action:       auditDomain.ActionBackupRestore,
		Target:       backupTarget(snapshot.ID),
		BeforeDigest: prePayload.Document.Digest,
		AfterDigest:  snapshot.ConfigDigest,
		Result:       auditDomain.Succeeded(),
	}
	if _, err := b.audit.Record(ctx, entry); err != nil {
		return nil, err
	}

	if err := b.keys.ImportState(ctx, payload.Keystore); err != nil {
		b.recordFailure(ctx, entry, err)
		return nil, err
	}

	reason := fmt.Sprintf("restored from backup %s", snapshot.ID)
	doc, err := b.config.Replace(ctx, actorID, payload.Document.Content, reason)
	if err != nil {
		b.recordFailure(ctx, entry, err)
		if rollbackErr := b.keys.ImportState(ctx, prePayload.Keystore); rollbackErr != nil {
			b.logger.Error("failed to roll back keystore after restore failure", slog.Any("error", rollbackErr))
			return nil, apperrors.Join(err, rollbackErr)
		}
		return nil, err
	}

	b.logger.Info("snapshot restored",
		slog.String("id", snapshot.ID.String()),
		slog.String("pre_restore_id", pre.ID.String()),
		slog.Uint64("version", doc.Version),
		slog.String("actor_id", actorID),
	)
	return &backupDomain.RestoreResult{Restored: snapshot, PreRestore: pre, Document: doc}, nil
}

// List returns snapshots newest first.
func (b *backupUseCase) List(ctx context.Context) ([]*backupDomain.Snapshot, error) {
	index, err := b.repo.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(index)
	return index, nil
}

func (b *backupUseCase) recordFailure(ctx context.Context, entry *auditDomain.Entry, cause error) {
	failed := *entry
	failed.Result = auditDomain.Failed(cause.Error())
	if _, err := b.audit.Record(ctx, &failed); err != nil {
		b.logger.Error("failed to audit failed operation",
			slog.String("action", string(entry.Action)),
			slog.Any("error", err),
		)
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// SystemActor is recorded for mutations made without an operator, such as bootstrap.
const SystemActor = "system"

// ConfigUseCaseParams groups the dependencies of the configuration store.
type ConfigUseCaseParams struct {
	Repository  Repository
	Schema      configDomain.Schema
	Audit       AuditRecorder
	Station     ServiceController
	Credentials CredentialInstaller
	Hostname    string
	Logger      *slog.Logger
}

type configUseCase struct {
	repo        Repository
	schema      configDomain.Schema
	audit       AuditRecorder
	station     ServiceController
	credentials CredentialInstaller
	hostname    string
	logger      *slog.Logger
	now         func() time.Time

	// slot serializes commit, apply and replace.
	slot sync.Mutex
	// barrier is held for writing while files and the pointer are swapped.
	barrier sync.RWMutex

	current atomic.Pointer[configDomain.Document]
	history map[uint64]*configDomain.Document
	latest  uint64
	applied uint64
}

// NewConfigUseCase loads and verifies the whole history. Any digest mismatch is
// returned as ErrHistoryCorrupt and must stop the process. An empty directory is
// bootstrapped with version 1 built from the schema defaults.
func NewConfigUseCase(ctx context.Context, params ConfigUseCaseParams) (ConfigUseCase, error) {
	schema := params.Schema
	if schema == nil {
		schema = configDomain.DefaultSchema()
	}
	c := &configUseCase{
		repo:        params.Repository,
		schema:      schema,
		audit:       params.Audit,
		station:     params.Station,
		credentials: params.Credentials,
		hostname:    params.Hostname,
		logger:      params.Logger,
		now:         time.Now,
		history:     make(map[uint64]*configDomain.Document),
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configUseCase) load(ctx context.Context) error {
	versions, err := c.repo.ListVersions(ctx)
	if err != nil {
		return &apperrors.StorageError{Op: "history list", Err: err}
	}
	pointer, err := c.repo.LoadPointer(ctx)
	if err != nil {
		return err
	}

	if pointer == nil {
		if len(versions) > 0 {
			return apperrors.Wrap(configDomain.ErrHistoryCorrupt, "history present without current pointer")
		}
		return c.bootstrap(ctx)
	}

	for _, version := range versions {
		doc, err := c.repo.LoadDocument(ctx, version)
		if err != nil {
			return err
		}
		c.history[version] = doc
		if version > c.latest {
			c.latest = version
		}
	}

	current, ok := c.history[pointer.Version]
	if !ok || current.Digest != pointer.Digest {
		return apperrors.Wrapf(configDomain.ErrHistoryCorrupt, "current pointer v%d does not match history", pointer.Version)
	}
	c.current.Store(current)
	c.applied = pointer.AppliedVersion
	return nil
}

func (c *configUseCase) bootstrap(ctx context.Context) error {
	content, err := c.schema.Defaults()
	if err != nil {
		return err
	}
	doc := c.newVersion(SystemActor, 0, content, configDomain.StatusCommitted, "bootstrap")
	entry := &auditDomain.Entry{
		ActorID:     SystemActor,
		Action:      auditDomain.ActionConfigCommit,
		Target:      versionTarget(doc.Version),
		AfterDigest: doc.Digest,
		Result:      auditDomain.Succeeded(),
	}
	if err := c.publish(ctx, doc, entry); err != nil {
		return err
	}
	c.logger.Info("configuration bootstrapped from defaults", slog.String("digest", doc.Digest))
	return nil
}

func versionTarget(version uint64) string {
	return fmt.Sprintf("config/v%d", version)
}

// newVersion must be called with c.slot held.
func (c *configUseCase) newVersion(
	actorID string,
	parent uint64,
	content configDomain.Content,
	status configDomain.Status,
	reason string,
) *configDomain.Document {
	return &configDomain.Document{
		Version:       c.latest + 1,
		Digest:        content.Digest(),
		ParentVersion: parent,
		CommittedAt:   c.now().UTC(),
		CommittedBy:   actorID,
		Status:        status,
		StatusReason:  reason,
		Content:       content,
	}
}

// publish persists a new version and makes it current. The history file is
// written first, then the audit entry, then the pointer. A failure at any step
// removes the new history file so the prior state stays current.
func (c *configUseCase) publish(ctx context.Context, doc *configDomain.Document, entry *auditDomain.Entry) error {
	c.barrier.Lock()
	defer c.barrier.Unlock()

	if err := c.repo.SaveDocument(ctx, doc); err != nil {
		_ = c.repo.DeleteDocument(ctx, doc.Version)
		return &apperrors.StorageError{Op: "history write", Err: err}
	}
	if _, err := c.audit.Record(ctx, entry); err != nil {
		_ = c.repo.DeleteDocument(ctx, doc.Version)
		return err
	}

	pointer := &configDomain.Pointer{Version: doc.Version, Digest: doc.Digest, AppliedVersion: c.applied}
	if err := c.repo.SavePointer(ctx, pointer); err != nil {
		_ = c.repo.DeleteDocument(ctx, doc.Version)
		failed := *entry
		failed.Result = auditDomain.Failed("pointer write failed")
		c.recordBestEffort(ctx, &failed)
		return &apperrors.StorageError{Op: "pointer write", Err: err}
	}

	c.history[doc.Version] = doc
	if doc.Version > c.latest {
		c.latest = doc.Version
	}
	c.current.Store(doc)
	return nil
}

func (c *configUseCase) recordBestEffort(ctx context.Context, entry *auditDomain.Entry) {
	if _, err := c.audit.Record(ctx, entry); err != nil {
		c.logger.Error("failed to record audit entry",
			slog.String("action", string(entry.Action)),
			slog.String("target", entry.Target),
			slog.Any("error", err),
		)
	}
}

// BeginEdit opens a draft on the current document.
func (c *configUseCase) BeginEdit(ctx context.Context) (*configDomain.Draft, error) {
	current := c.current.Load()
	return &configDomain.Draft{
		ID:          uuid.Must(uuid.NewV7()),
		BaseVersion: current.Version,
		Content:     current.Content.Clone(),
		Changes:     []configDomain.Change{},
	}, nil
}

// SetField validates and stores one field in the draft.
func (c *configUseCase) SetField(
	ctx context.Context,
	draft *configDomain.Draft,
	section, key, value string,
) error {
	if draft == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "no draft open")
	}
	spec, ok := c.schema.Lookup(section, key)
	if !ok {
		return &configDomain.ValidationError{Field: configDomain.FieldName(section, key), Reason: "unknown field"}
	}
	parsed, err := spec.Parse(value)
	if err != nil {
		return err
	}

	old, _ := draft.Content.Get(section, key)
	if old == parsed {
		return nil
	}
	draft.Content.Set(section, key, parsed)
	draft.Changes = append(draft.Changes, configDomain.Change{Section: section, Key: key, Old: old, New: parsed})
	return nil
}

// Commit promotes the draft if nothing was committed since it was opened.
func (c *configUseCase) Commit(
	ctx context.Context,
	actorID string,
	draft *configDomain.Draft,
) (*configDomain.Document, error) {
	if draft == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "no draft open")
	}

	c.slot.Lock()
	defer c.slot.Unlock()

	current := c.current.Load()
	if draft.BaseVersion != current.Version {
		return nil, &configDomain.ConflictError{BaseVersion: draft.BaseVersion, CurrentVersion: current.Version}
	}
	if !draft.Dirty() {
		return nil, configDomain.ErrNoChanges
	}
	if err := c.schema.Check(draft.Content); err != nil {
		return nil, err
	}

	doc := c.newVersion(actorID, current.Version, draft.Content.Clone(), configDomain.StatusCommitted, "")
	entry := &auditDomain.Entry{
		ActorID:      actorID,
		Action:       auditDomain.ActionConfigCommit,
		Target:       versionTarget(doc.Version),
		BeforeDigest: current.Digest,
		AfterDigest:  doc.Digest,
		Result:       auditDomain.Succeeded(),
	}
	if err := c.publish(ctx, doc, entry); err != nil {
		c.logger.Error("configuration commit failed",
			slog.String("actor_id", actorID),
			slog.Uint64("base_version", draft.BaseVersion),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.logger.Info("configuration committed",
		slog.String("actor_id", actorID),
		slog.Uint64("version", doc.Version),
		slog.Int("changes", len(draft.Changes)),
	)
	return doc, nil
}

// Current returns the current document.
func (c *configUseCase) Current(ctx context.Context) *configDomain.Document {
	return c.current.Load()
}

// Get returns a version from history.
func (c *configUseCase) Get(ctx context.Context, version uint64) (*configDomain.Document, error) {
	c.barrier.RLock()
	defer c.barrier.RUnlock()

	doc, ok := c.history[version]
	if !ok {
		return nil, configDomain.ErrVersionNotFound
	}
	return doc, nil
}

// History returns all versions, oldest first.
func (c *configUseCase) History(ctx context.Context) ([]*configDomain.Document, error) {
	c.barrier.RLock()
	defer c.barrier.RUnlock()

	docs := make([]*configDomain.Document, 0, len(c.history))
	for _, doc := range c.history {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Version < docs[j].Version })
	return docs, nil
}

// Replace commits restored content as a new version.
func (c *configUseCase) Replace(
	ctx context.Context,
	actorID string,
	content configDomain.Content,
	reason string,
) (*configDomain.Document, error) {
	if err := c.schema.Check(content); err != nil {
		return nil, err
	}

	c.slot.Lock()
	defer c.slot.Unlock()

	current := c.current.Load()
	doc := c.newVersion(actorID, current.Version, content.Clone(), configDomain.StatusRestored, reason)
	entry := &auditDomain.Entry{
		ActorID:      actorID,
		Action:       auditDomain.ActionConfigRestore,
		Target:       versionTarget(doc.Version),
		BeforeDigest: current.Digest,
		AfterDigest:  doc.Digest,
		Result:       auditDomain.Succeeded(),
	}
	if err := c.publish(ctx, doc, entry); err != nil {
		return nil, err
	}

	c.logger.Info("configuration replaced",
		slog.String("actor_id", actorID),
		slog.Uint64("version", doc.Version),
		slog.String("reason", reason),
	)
	return doc, nil
}

// WithReadBarrier holds mutations off while fn copies state.
func (c *configUseCase) WithReadBarrier(ctx context.Context, fn func(doc *configDomain.Document) error) error {
	c.barrier.RLock()
	defer c.barrier.RUnlock()
	return fn(c.current.Load())
}

// Schema returns the field table.
func (c *configUseCase) Schema() configDomain.Schema {
	return c.schema
}

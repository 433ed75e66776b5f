package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// Apply pushes the current document to the managed service.
func (c *configUseCase) Apply(ctx context.Context, actorID string, version uint64) error {
	if c.station == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "no managed service configured")
	}

	c.slot.Lock()
	defer c.slot.Unlock()

	current := c.current.Load()
	if version != 0 && version != current.Version {
		return &configDomain.ConflictError{BaseVersion: version, CurrentVersion: current.Version}
	}

	if applyErr := c.deliver(ctx, actorID, current); applyErr != nil {
		return c.rollback(ctx, actorID, current, applyErr)
	}

	var beforeDigest string
	if previous, ok := c.history[c.applied]; ok {
		beforeDigest = previous.Digest
	}
	entry := &auditDomain.Entry{
		ActorID:      actorID,
		Action:       auditDomain.ActionConfigApply,
		Target:       versionTarget(current.Version),
		BeforeDigest: beforeDigest,
		AfterDigest:  current.Digest,
		Result:       auditDomain.Succeeded(),
	}
	if _, err := c.audit.Record(ctx, entry); err != nil {
		c.redeliverApplied(ctx, actorID)
		return err
	}

	applied := current.WithStatus(configDomain.StatusApplied, "")

	c.barrier.Lock()
	defer c.barrier.Unlock()

	if err := c.repo.SaveDocument(ctx, applied); err != nil {
		return &apperrors.StorageError{Op: "history write", Err: err}
	}
	pointer := &configDomain.Pointer{Version: applied.Version, Digest: applied.Digest, AppliedVersion: applied.Version}
	if err := c.repo.SavePointer(ctx, pointer); err != nil {
		return &apperrors.StorageError{Op: "pointer write", Err: err}
	}
	c.history[applied.Version] = applied
	c.current.Store(applied)
	c.applied = applied.Version

	c.logger.Info("configuration applied",
		slog.String("actor_id", actorID),
		slog.Uint64("version", applied.Version),
	)
	return nil
}

// deliver installs credentials, writes the file, reloads and reads the status back.
func (c *configUseCase) deliver(
	ctx context.Context,
	actorID string,
	doc *configDomain.Document,
) *configDomain.ApplyError {
	if tls, ok := doc.Get("Security", "TLS.Enabled"); ok && tls.Bool() && c.credentials != nil {
		if err := c.credentials.Install(ctx); err != nil {
			return &configDomain.ApplyError{Version: doc.Version, Reason: "credential install failed", Err: err}
		}
	}

	data := configDomain.Render(doc, configDomain.RenderInfo{
		Operator: actorID,
		Hostname: c.hostname,
		At:       c.now(),
	})
	if err := c.station.WriteConfig(ctx, data); err != nil {
		return &configDomain.ApplyError{Version: doc.Version, Reason: "config write failed", Err: err}
	}
	if err := c.station.Reload(ctx); err != nil {
		return &configDomain.ApplyError{Version: doc.Version, Reason: "reload failed", Err: err}
	}
	status, err := c.station.Status(ctx)
	if err != nil {
		return &configDomain.ApplyError{Version: doc.Version, Reason: "status check failed", Err: err}
	}
	if !status.Running {
		reason := status.Detail
		if reason == "" {
			reason = "service not running after reload"
		}
		return &configDomain.ApplyError{Version: doc.Version, Reason: reason}
	}
	return nil
}

// rollback marks the document rejected and moves the pointer back to the last
// applied version, or to the parent when nothing was applied yet.
func (c *configUseCase) rollback(
	ctx context.Context,
	actorID string,
	rejectedDoc *configDomain.Document,
	applyErr *configDomain.ApplyError,
) error {
	c.logger.Warn("service rejected configuration",
		slog.String("actor_id", actorID),
		slog.Uint64("version", rejectedDoc.Version),
		slog.String("reason", applyErr.Reason),
		slog.Any("error", applyErr.Err),
	)

	var errs []error
	errs = append(errs, applyErr)

	if _, err := c.audit.Record(ctx, &auditDomain.Entry{
		ActorID:     actorID,
		Action:      auditDomain.ActionConfigApply,
		Target:      versionTarget(rejectedDoc.Version),
		AfterDigest: rejectedDoc.Digest,
		Result:      auditDomain.Failed("rejected: " + applyErr.Reason),
	}); err != nil {
		errs = append(errs, err)
	}

	if c.applied == rejectedDoc.Version {
		c.applied = 0
	}
	targetVersion := c.applied
	if targetVersion == 0 {
		targetVersion = rejectedDoc.ParentVersion
	}

	c.barrier.Lock()
	rejected := rejectedDoc.WithStatus(configDomain.StatusRejected, applyErr.Reason)
	if err := c.repo.SaveDocument(ctx, rejected); err != nil {
		errs = append(errs, &apperrors.StorageError{Op: "history write", Err: err})
	}
	c.history[rejected.Version] = rejected
	c.current.Store(rejected)

	target, ok := c.history[targetVersion]
	if ok {
		_, auditErr := c.audit.Record(ctx, &auditDomain.Entry{
			ActorID:      actorID,
			Action:       auditDomain.ActionConfigRollback,
			Target:       versionTarget(target.Version),
			BeforeDigest: rejected.Digest,
			AfterDigest:  target.Digest,
			Result:       auditDomain.Succeeded(),
		})
		if auditErr != nil {
			errs = append(errs, auditErr)
			ok = false
		}
	}
	if ok {
		pointer := &configDomain.Pointer{Version: target.Version, Digest: target.Digest, AppliedVersion: c.applied}
		if err := c.repo.SavePointer(ctx, pointer); err != nil {
			errs = append(errs, &apperrors.StorageError{Op: "pointer write", Err: err})
		} else {
			c.current.Store(target)
			applyErr.RolledBackTo = target.Version
		}
	}
	c.barrier.Unlock()

	c.redeliverApplied(ctx, actorID)

	if len(errs) == 1 {
		return applyErr
	}
	return apperrors.Join(errs...)
}

// redeliverApplied puts the last accepted document back on the service.
func (c *configUseCase) redeliverApplied(ctx context.Context, actorID string) {
	previous, ok := c.history[c.applied]
	if !ok {
		return
	}
	data := configDomain.Render(previous, configDomain.RenderInfo{
		Operator: actorID,
		Hostname: c.hostname,
		At:       c.now(),
	})
	if err := c.station.WriteConfig(ctx, data); err != nil {
		c.logger.Error("failed to restore previous configuration", slog.Any("error", err))
		return
	}
	if err := c.station.Reload(ctx); err != nil {
		c.logger.Error("failed to reload previous configuration", slog.Any("error", err))
	}
}

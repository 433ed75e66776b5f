package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	backupUseCase "github.com/allisson/btsguard/internal/backup/usecase"
)

// RunSnapshot takes a manual snapshot of the configuration and keystore.
func RunSnapshot(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	snapshot, err := backups.Snapshot(ctx, actorID)
	if err != nil {
		return fail(err)
	}
	logger.Info("snapshot taken",
		slog.String("snapshot_id", snapshot.ID.String()),
		slog.Uint64("config_version", snapshot.ConfigVersion),
		slog.String("actor_id", actorID),
	)

	return writeOutput(writer, format, snapshot, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Snapshot %s taken (config v%d, %d certificate(s), %d bytes)\n",
			snapshot.ID, snapshot.ConfigVersion, len(snapshot.CertificateIDs), snapshot.Size)
	})
}

// RunRestore restores a snapshot. A pre-restore snapshot is taken first.
func RunRestore(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	id string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := backups.Restore(ctx, actorID, id)
	if err != nil {
		return fail(err)
	}
	logger.Info("snapshot restored",
		slog.String("snapshot_id", id),
		slog.String("pre_restore_id", result.PreRestore.ID.String()),
		slog.Uint64("config_version", result.Document.Version),
		slog.String("actor_id", actorID),
	)

	output := map[string]any{
		"restored":       result.Restored,
		"pre_restore":    result.PreRestore,
		"config_version": result.Document.Version,
	}
	return writeOutput(writer, format, output, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Restored snapshot %s as configuration v%d\n", result.Restored.ID, result.Document.Version)
		_, _ = fmt.Fprintf(w, "Previous state saved as snapshot %s\n", result.PreRestore.ID)
		_, _ = fmt.Fprintln(w, "Run apply to push the restored configuration to the station.")
	})
}

// RunListBackups lists snapshots newest first.
func RunListBackups(
	ctx context.Context,
	backups backupUseCase.BackupUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	list, err := backups.List(ctx)
	if err != nil {
		return fail(err)
	}
	if list == nil {
		list = []*backupDomain.Snapshot{}
	}

	return writeOutput(writer, format, list, func(w io.Writer) {
		if len(list) == 0 {
			_, _ = fmt.Fprintln(w, "No snapshots")
			return
		}
		for _, snapshot := range list {
			_, _ = fmt.Fprintf(w, "%s  %s  %-11s v%-4d %s\n",
				snapshot.ID, snapshot.CreatedAt.Format(time.RFC3339), snapshot.Reason,
				snapshot.ConfigVersion, snapshot.CreatedBy)
		}
	})
}

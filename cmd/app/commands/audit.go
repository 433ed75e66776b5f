package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	auditUseCase "github.com/allisson/btsguard/internal/audit/usecase"
)

type auditEntryView struct {
	Sequence     uint64    `json:"sequence"                yaml:"sequence"`
	Timestamp    time.Time `json:"timestamp"               yaml:"timestamp"`
	ActorID      string    `json:"actor_id"                yaml:"actor_id"`
	Action       string    `json:"action"                  yaml:"action"`
	Target       string    `json:"target,omitempty"        yaml:"target,omitempty"`
	BeforeDigest string    `json:"before_digest,omitempty" yaml:"before_digest,omitempty"`
	AfterDigest  string    `json:"after_digest,omitempty"  yaml:"after_digest,omitempty"`
	Success      bool      `json:"success"                 yaml:"success"`
	Reason       string    `json:"reason,omitempty"        yaml:"reason,omitempty"`
}

// RunAuditLog prints entries with a sequence greater than after. limit keeps only
// the newest entries when positive.
func RunAuditLog(
	ctx context.Context,
	audit auditUseCase.UseCase,
	writer io.Writer,
	after uint64,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	entries, err := audit.EntriesSince(ctx, after)
	if err != nil {
		return fail(err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	views := make([]auditEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, auditEntryView{
			Sequence:     entry.Sequence,
			Timestamp:    entry.Timestamp,
			ActorID:      entry.ActorID,
			Action:       string(entry.Action),
			Target:       entry.Target,
			BeforeDigest: entry.BeforeDigest,
			AfterDigest:  entry.AfterDigest,
			Success:      entry.Result.Success,
			Reason:       entry.Result.Reason,
		})
	}

	return writeOutput(writer, format, views, func(w io.Writer) {
		for _, view := range views {
			result := "ok"
			if !view.Success {
				result = "FAILED " + view.Reason
			}
			_, _ = fmt.Fprintf(w, "%6d %s %-16s %-20s %-40s %s\n",
				view.Sequence, view.Timestamp.Format(time.RFC3339), view.ActorID, view.Action, view.Target, result)
		}
	})
}

// RunVerifyAuditLog re-checks every signature and the sequence. A failed
// verification is returned as an error so the process exits non-zero.
func RunVerifyAuditLog(
	ctx context.Context,
	audit auditUseCase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	report, err := audit.Verify(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify audit log: %w", err)
	}

	output := map[string]any{
		"total_checked":     report.TotalChecked,
		"valid_count":       report.ValidCount,
		"invalid_count":     report.InvalidCount,
		"invalid_sequences": report.InvalidSequences,
		"missing_sequences": report.MissingSequences,
		"last_sequence":     report.LastSequence,
		"passed":            report.Passed(),
	}
	if err := writeOutput(writer, format, output, func(w io.Writer) {
		outputVerifyText(w, report)
	}); err != nil {
		return err
	}

	logger.Info("verification completed",
		slog.Int64("total_checked", report.TotalChecked),
		slog.Int64("valid", report.ValidCount),
		slog.Int64("invalid", report.InvalidCount),
		slog.Int("missing", len(report.MissingSequences)),
	)

	if !report.Passed() {
		return fmt.Errorf(
			"integrity check failed: %d invalid signature(s), %d missing sequence(s)",
			report.InvalidCount, len(report.MissingSequences),
		)
	}
	return nil
}

func outputVerifyText(w io.Writer, report *auditDomain.VerificationReport) {
	_, _ = fmt.Fprintf(w, "Audit Log Integrity Verification\n")
	_, _ = fmt.Fprintf(w, "=================================\n\n")
	_, _ = fmt.Fprintf(w, "Total Checked:  %d\n", report.TotalChecked)
	_, _ = fmt.Fprintf(w, "Valid:          %d\n", report.ValidCount)
	_, _ = fmt.Fprintf(w, "Invalid:        %d\n", report.InvalidCount)
	_, _ = fmt.Fprintf(w, "Last Sequence:  %d\n\n", report.LastSequence)

	switch {
	case !report.Passed():
		if report.InvalidCount > 0 {
			_, _ = fmt.Fprintf(w, "WARNING: %d entry(ies) failed integrity check!\n", report.InvalidCount)
			for _, seq := range report.InvalidSequences {
				_, _ = fmt.Fprintf(w, "  - invalid signature at %d\n", seq)
			}
		}
		for _, seq := range report.MissingSequences {
			_, _ = fmt.Fprintf(w, "  - missing entry %d\n", seq)
		}
		_, _ = fmt.Fprintf(w, "\nStatus: FAILED\n")
	case report.TotalChecked == 0:
		_, _ = fmt.Fprintf(w, "Status: No entries recorded\n")
	default:
		_, _ = fmt.Fprintf(w, "Status: PASSED\n")
	}
}

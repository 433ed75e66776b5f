package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	auditService "github.com/allisson/btsguard/internal/audit/service"
)

type auditUseCase struct {
	repo       Repository
	signer     auditService.Signer
	rootKey    []byte
	maxElapsed time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuditUseCase creates the audit recorder. rootKey feeds the HKDF signing key and
// maxElapsed bounds the retries of a failing append.
func NewAuditUseCase(
	repo Repository,
	signer auditService.Signer,
	rootKey []byte,
	maxElapsed time.Duration,
	logger *slog.Logger,
) UseCase {
	return &auditUseCase{
		repo:       repo,
		signer:     signer,
		rootKey:    rootKey,
		maxElapsed: maxElapsed,
		logger:     logger,
		now:        time.Now,
	}
}

func (a *auditUseCase) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = a.maxElapsed
	return backoff.WithContext(b, ctx)
}

// Record signs and appends the entry with retries.
func (a *auditUseCase) Record(ctx context.Context, entry *auditDomain.Entry) (*auditDomain.Entry, error) {
	if len(a.rootKey) == 0 {
		return nil, &auditDomain.StorageError{Op: "audit append", Err: auditDomain.ErrSigningKeyMissing}
	}

	operation := func() (*auditDomain.Entry, error) {
		return a.repo.Append(ctx, func(seq uint64) (*auditDomain.Entry, error) {
			stored := *entry
			stored.Sequence = seq
			stored.Timestamp = a.now().UTC()
			signature, err := a.signer.Sign(a.rootKey, &stored)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			stored.Signature = signature
			return &stored, nil
		})
	}

	notify := func(err error, wait time.Duration) {
		a.logger.Warn("audit append failed, retrying",
			slog.String("action", string(entry.Action)),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}

	stored, err := backoff.RetryNotifyWithData(operation, a.newBackOff(ctx), notify)
	if err != nil {
		a.logger.Error("audit append exhausted retries",
			slog.String("action", string(entry.Action)),
			slog.String("actor_id", entry.ActorID),
			slog.Any("error", err),
		)
		return nil, &auditDomain.StorageError{Op: "audit append", Err: err}
	}
	return stored, nil
}

// EntriesSince returns the entries after the given sequence.
func (a *auditUseCase) EntriesSince(ctx context.Context, after uint64) ([]*auditDomain.Entry, error) {
	return a.repo.ListSince(ctx, after)
}

// Verify checks all signatures and the contiguity of the sequence.
func (a *auditUseCase) Verify(ctx context.Context) (*auditDomain.VerificationReport, error) {
	entries, err := a.repo.ListSince(ctx, 0)
	if err != nil {
		return nil, err
	}

	report := &auditDomain.VerificationReport{
		InvalidSequences: []uint64{},
		MissingSequences: []uint64{},
	}
	var expected uint64 = 1
	for _, entry := range entries {
		for ; expected < entry.Sequence; expected++ {
			report.MissingSequences = append(report.MissingSequences, expected)
		}
		expected = entry.Sequence + 1

		report.TotalChecked++
		report.LastSequence = entry.Sequence
		if err := a.signer.Verify(a.rootKey, entry); err != nil {
			report.InvalidCount++
			report.InvalidSequences = append(report.InvalidSequences, entry.Sequence)
			continue
		}
		report.ValidCount++
	}
	return report, nil
}

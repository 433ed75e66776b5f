package usecase

import (
	"context"
	"time"

	"github.com/allisson/btsguard/internal/metrics"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

// configUseCaseWithMetrics decorates ConfigUseCase with metrics instrumentation.
// Only mutations are measured.
type configUseCaseWithMetrics struct {
	ConfigUseCase
	metrics metrics.BusinessMetrics
}

// NewConfigUseCaseWithMetrics wraps a ConfigUseCase with metrics recording.
func NewConfigUseCaseWithMetrics(useCase ConfigUseCase, m metrics.BusinessMetrics) ConfigUseCase {
	return &configUseCaseWithMetrics{
		ConfigUseCase: useCase,
		metrics:       m,
	}
}

func (c *configUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, c.metrics, "config", operation, start, err)
}

// Commit records metrics for configuration commits.
func (c *configUseCaseWithMetrics) Commit(
	ctx context.Context,
	actorID string,
	draft *configDomain.Draft,
) (*configDomain.Document, error) {
	start := time.Now()
	doc, err := c.ConfigUseCase.Commit(ctx, actorID, draft)
	c.record(ctx, "commit", start, err)
	return doc, err
}

// Apply records metrics for applying configuration to the service.
func (c *configUseCaseWithMetrics) Apply(ctx context.Context, actorID string, version uint64) error {
	start := time.Now()
	err := c.ConfigUseCase.Apply(ctx, actorID, version)
	c.record(ctx, "apply", start, err)
	return err
}

// Replace records metrics for restored configuration.
func (c *configUseCaseWithMetrics) Replace(
	ctx context.Context,
	actorID string,
	content configDomain.Content,
	reason string,
) (*configDomain.Document, error) {
	start := time.Now()
	doc, err := c.ConfigUseCase.Replace(ctx, actorID, content, reason)
	c.record(ctx, "replace", start, err)
	return doc, err
}

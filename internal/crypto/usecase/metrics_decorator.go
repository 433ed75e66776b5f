package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/metrics"
)

// certificateUseCaseWithMetrics decorates CertificateUseCase with metrics instrumentation.
type certificateUseCaseWithMetrics struct {
	next    CertificateUseCase
	metrics metrics.BusinessMetrics
}

// NewCertificateUseCaseWithMetrics wraps a CertificateUseCase with metrics recording.
func NewCertificateUseCaseWithMetrics(useCase CertificateUseCase, m metrics.BusinessMetrics) CertificateUseCase {
	return &certificateUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *certificateUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, c.metrics, "crypto", operation, start, err)
}

// Generate records metrics for certificate generation.
func (c *certificateUseCaseWithMetrics) Generate(
	ctx context.Context,
	actorID string,
	subject cryptoDomain.Subject,
	validity time.Duration,
) (*cryptoDomain.Certificate, error) {
	start := time.Now()
	cert, err := c.next.Generate(ctx, actorID, subject, validity)
	c.record(ctx, "cert_generate", start, err)
	return cert, err
}

// Rotate records metrics for certificate rotation.
func (c *certificateUseCaseWithMetrics) Rotate(
	ctx context.Context,
	actorID string,
	certID uuid.UUID,
) (*cryptoDomain.Certificate, error) {
	start := time.Now()
	cert, err := c.next.Rotate(ctx, actorID, certID)
	c.record(ctx, "cert_rotate", start, err)
	return cert, err
}

// Expiring records metrics for expiry queries.
func (c *certificateUseCaseWithMetrics) Expiring(
	ctx context.Context,
	within time.Duration,
) ([]*cryptoDomain.Certificate, error) {
	start := time.Now()
	certs, err := c.next.Expiring(ctx, within)
	c.record(ctx, "cert_expiring", start, err)
	return certs, err
}

// Get records metrics for certificate lookups.
func (c *certificateUseCaseWithMetrics) Get(ctx context.Context, certID uuid.UUID) (*cryptoDomain.Certificate, error) {
	start := time.Now()
	cert, err := c.next.Get(ctx, certID)
	c.record(ctx, "cert_get", start, err)
	return cert, err
}

// List records metrics for certificate listing.
func (c *certificateUseCaseWithMetrics) List(ctx context.Context) ([]*cryptoDomain.Certificate, error) {
	start := time.Now()
	certs, err := c.next.List(ctx)
	c.record(ctx, "cert_list", start, err)
	return certs, err
}

// Active is not instrumented; the dashboard polls it on every refresh.
func (c *certificateUseCaseWithMetrics) Active(ctx context.Context) (*cryptoDomain.Certificate, error) {
	return c.next.Active(ctx)
}

// MaterializeKeyPair records metrics for key materialization.
func (c *certificateUseCaseWithMetrics) MaterializeKeyPair(
	ctx context.Context,
	certID uuid.UUID,
	write func(certPEM, keyPEM []byte) error,
) error {
	start := time.Now()
	err := c.next.MaterializeKeyPair(ctx, certID, write)
	c.record(ctx, "key_materialize", start, err)
	return err
}

// ExportState records metrics for keystore export.
func (c *certificateUseCaseWithMetrics) ExportState(ctx context.Context) (*cryptoDomain.State, error) {
	start := time.Now()
	state, err := c.next.ExportState(ctx)
	c.record(ctx, "keystore_export", start, err)
	return state, err
}

// ImportState records metrics for keystore import.
func (c *certificateUseCaseWithMetrics) ImportState(ctx context.Context, state *cryptoDomain.State) error {
	start := time.Now()
	err := c.next.ImportState(ctx, state)
	c.record(ctx, "keystore_import", start, err)
	return err
}

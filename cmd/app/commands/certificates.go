package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/btsguard/internal/crypto/usecase"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

type certificateView struct {
	ID          string     `json:"id"                    yaml:"id"`
	CommonName  string     `json:"common_name"           yaml:"common_name"`
	Serial      string     `json:"serial_number"         yaml:"serial_number"`
	Status      string     `json:"status"                yaml:"status"`
	NotBefore   time.Time  `json:"not_before"            yaml:"not_before"`
	NotAfter    time.Time  `json:"not_after"             yaml:"not_after"`
	Fingerprint string     `json:"fingerprint"           yaml:"fingerprint"`
	Usable      bool       `json:"usable"                yaml:"usable"`
	GraceUntil  *time.Time `json:"grace_until,omitempty" yaml:"grace_until,omitempty"`
}

func newCertificateView(cert *cryptoDomain.Certificate, now time.Time) certificateView {
	return certificateView{
		ID:          cert.ID.String(),
		CommonName:  cert.Subject.CommonName,
		Serial:      cert.SerialNumber,
		Status:      string(cert.Status),
		NotBefore:   cert.NotBefore,
		NotAfter:    cert.NotAfter,
		Fingerprint: cert.Fingerprint,
		Usable:      cert.Usable(now),
		GraceUntil:  cert.GraceUntil,
	}
}

func writeCertificates(writer io.Writer, format string, certs []*cryptoDomain.Certificate, empty string) error {
	now := time.Now()
	views := make([]certificateView, 0, len(certs))
	for _, cert := range certs {
		views = append(views, newCertificateView(cert, now))
	}
	return writeOutput(writer, format, views, func(w io.Writer) {
		if len(views) == 0 {
			_, _ = fmt.Fprintln(w, empty)
			return
		}
		for _, view := range views {
			_, _ = fmt.Fprintf(w, "%s  %-11s %-24s expires %s\n",
				view.ID, view.Status, view.CommonName, view.NotAfter.Format("2006-01-02"))
		}
	})
}

// RunGenerateCert creates a self-signed certificate for the subject.
func RunGenerateCert(
	ctx context.Context,
	certs cryptoUseCase.CertificateUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	subject cryptoDomain.Subject,
	validity time.Duration,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cert, err := certs.Generate(ctx, actorID, subject, validity)
	if err != nil {
		return fail(err)
	}
	logger.Info("certificate generated",
		slog.String("cert_id", cert.ID.String()),
		slog.String("common_name", cert.Subject.CommonName),
		slog.String("actor_id", actorID),
	)

	view := newCertificateView(cert, time.Now())
	return writeOutput(writer, format, view, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Generated certificate %s for %s\n", view.ID, view.CommonName)
		_, _ = fmt.Fprintf(w, "Valid until: %s\n", view.NotAfter.Format(time.RFC3339))
		_, _ = fmt.Fprintf(w, "Fingerprint: %s\n", view.Fingerprint)
	})
}

// RunRotateCert replaces an active certificate.
func RunRotateCert(
	ctx context.Context,
	certs cryptoUseCase.CertificateUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	certID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	id, err := uuid.Parse(certID)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid certificate id %q", certID)
	}

	cert, err := certs.Rotate(ctx, actorID, id)
	if err != nil {
		return fail(err)
	}
	logger.Info("certificate rotated",
		slog.String("old_cert_id", certID),
		slog.String("cert_id", cert.ID.String()),
		slog.String("actor_id", actorID),
	)

	view := newCertificateView(cert, time.Now())
	return writeOutput(writer, format, view, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Rotated %s -> %s\n", certID, view.ID)
		_, _ = fmt.Fprintf(w, "Valid until: %s\n", view.NotAfter.Format(time.RFC3339))
	})
}

// RunListCerts prints every certificate, superseded ones included.
func RunListCerts(
	ctx context.Context,
	certs cryptoUseCase.CertificateUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	list, err := certs.List(ctx)
	if err != nil {
		return fail(err)
	}
	return writeCertificates(writer, format, list, "No certificates")
}

// RunExpiringCerts prints active certificates expiring within the window.
func RunExpiringCerts(
	ctx context.Context,
	certs cryptoUseCase.CertificateUseCase,
	writer io.Writer,
	within time.Duration,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if within <= 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "--days must be positive")
	}

	list, err := certs.Expiring(ctx, within)
	if err != nil {
		return fail(err)
	}
	return writeCertificates(writer, format, list, "No certificates expiring in the window")
}

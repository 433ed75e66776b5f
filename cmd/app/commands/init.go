package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	authUseCase "github.com/allisson/btsguard/internal/auth/usecase"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/btsguard/internal/crypto/usecase"
	apperrors "github.com/allisson/btsguard/internal/errors"
	configUseCase "github.com/allisson/btsguard/internal/stationconfig/usecase"
)

// systemActor is recorded for changes made by init before any operator exists.
const systemActor = "system"

// InitParams holds what init needs besides its stores.
type InitParams struct {
	AdminName string
	Subject   cryptoDomain.Subject
	Validity  time.Duration
}

// RunInit prepares a fresh state directory: the configuration history is
// bootstrapped by loading the store, the first admin operator is created when
// none exists, and a default certificate is generated when none is usable.
// Running it again changes nothing.
func RunInit(
	ctx context.Context,
	store configUseCase.ConfigUseCase,
	auth authUseCase.AuthUseCase,
	certs cryptoUseCase.CertificateUseCase,
	logger *slog.Logger,
	streams IOTuple,
	params InitParams,
) error {
	doc := store.Current(ctx)
	_, _ = fmt.Fprintf(streams.Writer, "Configuration at version %d\n", doc.Version)

	operators, err := auth.ListOperators(ctx)
	if err != nil {
		return fail(err)
	}
	if len(operators) == 0 {
		if params.AdminName == "" {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "--admin is required when no operator exists")
		}
		password, err := readSecret(streams, fmt.Sprintf("New password for %s: ", params.AdminName))
		if err != nil {
			return err
		}
		operator, err := auth.CreateOperator(ctx, systemActor, &authDomain.CreateOperatorInput{
			Name:        params.AdminName,
			Password:    password,
			Permissions: []authDomain.Permission{authDomain.PermissionAdmin},
		})
		if err != nil {
			return fail(err)
		}
		logger.Info("admin operator created", slog.String("operator", operator.Name))
		_, _ = fmt.Fprintf(streams.Writer, "Admin operator %s created\n", operator.Name)
	} else {
		_, _ = fmt.Fprintf(streams.Writer, "%d operator(s) already exist\n", len(operators))
	}

	active, err := certs.Active(ctx)
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(streams.Writer, "Active certificate %s expires %s\n",
			active.ID, active.NotAfter.Format("2006-01-02"))
	case apperrors.Is(err, cryptoDomain.ErrNoActiveCertificate):
		cert, err := certs.Generate(ctx, systemActor, params.Subject, params.Validity)
		if err != nil {
			return fail(err)
		}
		logger.Info("default certificate generated", slog.String("cert_id", cert.ID.String()))
		_, _ = fmt.Fprintf(streams.Writer, "Generated certificate %s for %s\n", cert.ID, cert.Subject.CommonName)
	default:
		return fail(err)
	}

	return nil
}


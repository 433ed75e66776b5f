package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	authUseCase "github.com/allisson/btsguard/internal/auth/usecase"
)

// RunCreateOperator creates an operator whose password is read from the input.
func RunCreateOperator(
	ctx context.Context,
	auth authUseCase.AuthUseCase,
	logger *slog.Logger,
	streams IOTuple,
	actorID string,
	name string,
	permissions string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	parsed, err := parsePermissions(permissions)
	if err != nil {
		return err
	}

	password, err := readSecret(streams, fmt.Sprintf("New password for %s: ", name))
	if err != nil {
		return err
	}

	operator, err := auth.CreateOperator(ctx, actorID, &authDomain.CreateOperatorInput{
		Name:        name,
		Password:    password,
		Permissions: parsed,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info("operator created",
		slog.String("operator", operator.Name),
		slog.String("actor_id", actorID),
	)

	result := map[string]any{
		"id":          operator.ID.String(),
		"name":        operator.Name,
		"permissions": operator.Permissions,
		"created_at":  operator.CreatedAt,
	}
	return writeOutput(streams.Writer, format, result, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Operator %s created (id %s)\n", operator.Name, operator.ID)
		_, _ = fmt.Fprintf(w, "Permissions: %s\n", joinPermissions(operator.Permissions))
	})
}

// RunListOperators prints every operator without credentials.
func RunListOperators(
	ctx context.Context,
	auth authUseCase.AuthUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	operators, err := auth.ListOperators(ctx)
	if err != nil {
		return fail(err)
	}

	type operatorView struct {
		ID          string                  `json:"id"          yaml:"id"`
		Name        string                  `json:"name"        yaml:"name"`
		Permissions []authDomain.Permission `json:"permissions" yaml:"permissions"`
		TOTP        bool                    `json:"totp"        yaml:"totp"`
	}
	views := make([]operatorView, 0, len(operators))
	for _, operator := range operators {
		views = append(views, operatorView{
			ID:          operator.ID.String(),
			Name:        operator.Name,
			Permissions: operator.Permissions,
			TOTP:        operator.TOTPEnabled(),
		})
	}

	return writeOutput(writer, format, views, func(w io.Writer) {
		if len(views) == 0 {
			_, _ = fmt.Fprintln(w, "No operators")
			return
		}
		for _, view := range views {
			totp := ""
			if view.TOTP {
				totp = " (totp)"
			}
			_, _ = fmt.Fprintf(w, "%-20s %s%s\n", view.Name, joinPermissions(view.Permissions), totp)
		}
	})
}

// RunEnrollTOTP attaches a second factor to an operator and prints its secret once.
func RunEnrollTOTP(
	ctx context.Context,
	auth authUseCase.AuthUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actorID string,
	name string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	enrollment, err := auth.EnrollTOTP(ctx, actorID, name)
	if err != nil {
		return fail(err)
	}

	logger.Info("totp enrolled", slog.String("operator", name), slog.String("actor_id", actorID))

	return writeOutput(writer, format, enrollment, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "TOTP enrolled for %s\n\n", enrollment.Operator)
		_, _ = fmt.Fprintf(w, "Secret: %s\n", enrollment.Secret)
		_, _ = fmt.Fprintf(w, "URL:    %s\n\n", enrollment.URL)
		_, _ = fmt.Fprintln(w, "Store the secret in an authenticator app now; it is not shown again.")
	})
}

func joinPermissions(permissions []authDomain.Permission) string {
	names := make([]string, len(permissions))
	for i, permission := range permissions {
		names[i] = string(permission)
	}
	return strings.Join(names, ",")
}

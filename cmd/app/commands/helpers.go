// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/dashboard"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// PromptIO reads from stdin and prompts on stderr so stdout stays parseable.
func PromptIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stderr,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// CloseContainer is closeContainer for the command wiring in main.
func CloseContainer(container *app.Container) {
	closeContainer(container, container.Logger())
}

// Authenticator is the part of the auth use case a command session needs.
type Authenticator interface {
	Authenticate(ctx context.Context, credentials authDomain.Credentials) (*authDomain.Actor, error)
	Authorize(ctx context.Context, actor *authDomain.Actor, action authDomain.Action) error
}

// Login prompts for the operator's password, authenticates and authorizes the
// action. A zero action only authenticates.
func Login(
	ctx context.Context,
	auth Authenticator,
	streams IOTuple,
	operator, totpCode string,
	action authDomain.Action,
) (*authDomain.Actor, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "--operator is required")
	}

	password, err := readSecret(streams, fmt.Sprintf("Password for %s: ", operator))
	if err != nil {
		return nil, err
	}

	actor, err := auth.Authenticate(ctx, authDomain.Credentials{
		Operator: operator,
		Password: password,
		TOTPCode: totpCode,
	})
	if err != nil {
		return nil, fail(err)
	}

	if action != "" {
		if err := auth.Authorize(ctx, actor, action); err != nil {
			return nil, fail(err)
		}
	}
	return actor, nil
}

// fail turns a domain error into the message shown to the operator while keeping
// the chain for errors.Is.
func fail(err error) error {
	return fmt.Errorf("%s: %w", dashboard.Describe(err), err)
}

// readSecret reads one line without echo when the reader is a terminal.
func readSecret(streams IOTuple, prompt string) (string, error) {
	if file, ok := streams.Reader.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(streams.Writer, prompt)
		secret, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(streams.Writer)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
	return readLine(streams.Reader)
}

// readLine reads a single line from a non-interactive reader. It reads byte by
// byte so consecutive prompts can share the reader.
func readLine(r io.Reader) (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		if err == io.EOF {
			if line.Len() == 0 {
				return "", apperrors.Wrap(apperrors.ErrInvalidInput, "no input")
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	return strings.TrimRight(line.String(), "\r"), nil
}

// validateFormat rejects unknown --format values before any work is done.
func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid format %q (valid options: text, json, yaml)", format)
	}
}

// writeOutput encodes v as JSON or YAML, or calls text for the default format.
func writeOutput(writer io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case FormatJSON:
		jsonBytes, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	case FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		text(writer)
	}
	return nil
}

func parsePermissions(list string) ([]authDomain.Permission, error) {
	var permissions []authDomain.Permission
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		permissions = append(permissions, authDomain.Permission(name))
	}
	if len(permissions) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "at least one permission is required")
	}
	return permissions, nil
}

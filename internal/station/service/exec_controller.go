// Package service adapts the managed base-station service: it writes the live
// configuration, runs the reload and status commands, installs TLS credentials
// and watches the live file for out-of-band edits.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/allisson/btsguard/internal/fsutil"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// ControllerParams configures the exec controller.
type ControllerParams struct {
	ConfigPath     string
	ReloadCommand  string
	StatusCommand  string
	CommandTimeout time.Duration
	Logger         *slog.Logger
}

// ExecController writes the live file atomically and shells out to the service
// manager. Commands are split on whitespace and run without a shell.
type ExecController struct {
	configPath string
	reload     []string
	status     []string
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	lastWritten string
}

// SplitCommand splits a command line into program and arguments.
func SplitCommand(line string) ([]string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, stationDomain.ErrEmptyCommand
	}
	return fields, nil
}

// NewExecController validates the command lines and creates the controller.
func NewExecController(params ControllerParams) (*ExecController, error) {
	reload, err := SplitCommand(params.ReloadCommand)
	if err != nil {
		return nil, fmt.Errorf("reload command: %w", err)
	}
	status, err := SplitCommand(params.StatusCommand)
	if err != nil {
		return nil, fmt.Errorf("status command: %w", err)
	}
	return &ExecController{
		configPath: params.ConfigPath,
		reload:     reload,
		status:     status,
		timeout:    params.CommandTimeout,
		logger:     params.Logger,
		now:        time.Now,
	}, nil
}

// ConfigPath returns the live configuration file.
func (e *ExecController) ConfigPath() string {
	return e.configPath
}

// Digest returns the hex SHA-256 used to recognize our own writes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LastWritten returns the digest of the last content written by WriteConfig.
func (e *ExecController) LastWritten() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastWritten
}

// WriteConfig replaces the live file with mode 0640.
func (e *ExecController) WriteConfig(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(e.configPath), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.lastWritten
	e.lastWritten = Digest(data)
	if err := fsutil.AtomicWriteFile(e.configPath, data, 0640); err != nil {
		e.lastWritten = previous
		return fmt.Errorf("write %s: %w", e.configPath, err)
	}

	e.logger.Debug("live configuration written", slog.String("path", e.configPath), slog.Int("bytes", len(data)))
	return nil
}

func (e *ExecController) run(ctx context.Context, argv []string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// #nosec G204 -- argv comes from operator configuration, not from user input
	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if cctx.Err() != nil && ctx.Err() == nil {
		return out.Bytes(), fmt.Errorf("%s timed out after %s", argv[0], e.timeout)
	}
	return out.Bytes(), err
}

// Reload asks the service to re-read its configuration. A non-zero exit is
// ErrCommandFailed carrying the command output.
func (e *ExecController) Reload(ctx context.Context) error {
	out, err := e.run(ctx, e.reload)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s: %s", stationDomain.ErrCommandFailed, strings.Join(e.reload, " "), trim(out))
		}
		return fmt.Errorf("run %s: %w", e.reload[0], err)
	}
	e.logger.Info("service reloaded", slog.String("command", strings.Join(e.reload, " ")))
	return nil
}

// Status runs the status command. Exit 0 is running; any other exit is a
// stopped or failed service, not an error. Output lines of the form
// sessions=N or active_calls=N set ActiveSessions.
func (e *ExecController) Status(ctx context.Context) (*stationDomain.Status, error) {
	out, err := e.run(ctx, e.status)
	status := &stationDomain.Status{
		Running:        err == nil,
		Detail:         trim(out),
		ActiveSessions: parseSessions(out),
		CheckedAt:      e.now().UTC(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", e.status[0], err)
		}
		if status.Detail == "" {
			status.Detail = fmt.Sprintf("status command exited with code %d", exitErr.ExitCode())
		}
	}
	return status, nil
}

func parseSessions(out []byte) int {
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "sessions", "active_calls":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
				return n
			}
		}
	}
	return 0
}

func trim(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

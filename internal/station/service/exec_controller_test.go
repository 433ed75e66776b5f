package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

func newController(t *testing.T, reload, status string) *ExecController {
	t.Helper()
	controller, err := NewExecController(ControllerParams{
		ConfigPath:     filepath.Join(t.TempDir(), "yate", "yate.conf"),
		ReloadCommand:  reload,
		StatusCommand:  status,
		CommandTimeout: 2 * time.Second,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return controller
}

func TestSplitCommand(t *testing.T) {
	argv, err := SplitCommand("  systemctl  reload yate ")
	require.NoError(t, err)
	assert.Equal(t, []string{"systemctl", "reload", "yate"}, argv)

	_, err = SplitCommand("   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewExecController(t *testing.T) {
	_, err := NewExecController(ControllerParams{ReloadCommand: "", StatusCommand: "true"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExecController_WriteConfig(t *testing.T) {
	controller := newController(t, "true", "true")
	data := []byte("[core]\nhttp.enabled=yes\n")

	require.NoError(t, controller.WriteConfig(context.Background(), data))

	got, err := os.ReadFile(controller.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, Digest(data), controller.LastWritten())

	info, err := os.Stat(controller.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestExecController_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, newController(t, "true", "true").Reload(ctx))
	})

	t.Run("Error_NonZeroExit", func(t *testing.T) {
		err := newController(t, "false", "true").Reload(ctx)
		assert.ErrorIs(t, err, apperrors.ErrRejected)
	})

	t.Run("Error_MissingProgram", func(t *testing.T) {
		err := newController(t, "/nonexistent/reload-yate", "true").Reload(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrRejected)
	})
}

func TestExecController_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Running", func(t *testing.T) {
		status, err := newController(t, "true", "true").Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.Running)
		assert.False(t, status.CheckedAt.IsZero())
	})

	t.Run("Success_SessionsParsed", func(t *testing.T) {
		status, err := newController(t, "true", "echo sessions=7").Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.Running)
		assert.Equal(t, 7, status.ActiveSessions)
	})

	t.Run("Success_StoppedIsNotAnError", func(t *testing.T) {
		status, err := newController(t, "true", "false").Status(ctx)
		require.NoError(t, err)
		assert.False(t, status.Running)
		assert.Equal(t, "status command exited with code 1", status.Detail)
	})

	t.Run("Error_Timeout", func(t *testing.T) {
		controller := newController(t, "true", "sleep 5")
		controller.timeout = 50 * time.Millisecond

		_, err := controller.Status(ctx)
		assert.ErrorContains(t, err, "timed out")
	})
}

func TestParseSessions(t *testing.T) {
	assert.Equal(t, 3, parseSessions([]byte("running\nactive_calls=3\n")))
	assert.Equal(t, 0, parseSessions([]byte("sessions=abc")))
	assert.Equal(t, 0, parseSessions(nil))
}

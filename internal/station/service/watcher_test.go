package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

func TestDriftWatcher_HandleEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yate.conf")
	ours := []byte("ours")
	expected := Digest(ours)
	w, err := NewDriftWatcher(path, func() string { return expected }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = w.watcher.Close() }()

	t.Run("Success_OwnWriteIgnored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, ours, 0640))
		_, changed := w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
		assert.False(t, changed)
	})

	t.Run("Success_ForeignWriteReported", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("edited by hand"), 0640))
		drift, changed := w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
		assert.True(t, changed)
		assert.Equal(t, "modified", drift.Op)
		assert.Equal(t, path, drift.Path)
	})

	t.Run("Success_RemovalReported", func(t *testing.T) {
		require.NoError(t, os.Remove(path))
		drift, changed := w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})
		assert.True(t, changed)
		assert.Equal(t, "removed", drift.Op)
	})

	t.Run("Success_OtherFilesIgnored", func(t *testing.T) {
		_, changed := w.handleEvent(fsnotify.Event{Name: path + ".bak", Op: fsnotify.Write})
		assert.False(t, changed)
	})

	t.Run("Success_ChmodIgnored", func(t *testing.T) {
		_, changed := w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
		assert.False(t, changed)
	})
}

func TestDriftWatcher_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yate.conf")
	w, err := NewDriftWatcher(path, func() string { return "" }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	drifts := make(chan stationDomain.Drift, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(d stationDomain.Drift) { drifts <- d })
	}()

	// The watch is registered asynchronously; keep editing until it is seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("manual edit"), 0640)
		select {
		case d := <-drifts:
			return d.Path == path
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

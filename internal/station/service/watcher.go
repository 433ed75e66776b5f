package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// DriftWatcher reports changes to the live configuration file that were not
// made by WriteConfig.
type DriftWatcher struct {
	path     string
	expected func() string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewDriftWatcher watches path. expected returns the digest of the content we
// last wrote; a change leaving the file with that digest is ignored.
func NewDriftWatcher(path string, expected func() string, logger *slog.Logger) (*DriftWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DriftWatcher{
		path:     filepath.Clean(path),
		expected: expected,
		watcher:  watcher,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Watch blocks until ctx ends, calling report for each out-of-band change. The
// parent directory is watched so atomic replacements are seen.
func (w *DriftWatcher) Watch(ctx context.Context, report func(stationDomain.Drift)) error {
	defer func() { _ = w.watcher.Close() }()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Debug("watching live configuration", slog.String("path", w.path))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if drift, changed := w.handleEvent(event); changed {
				w.logger.Warn("live configuration changed outside btsguard",
					slog.String("path", drift.Path),
					slog.String("op", drift.Op),
				)
				report(drift)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("drift watcher error", slog.Any("error", err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *DriftWatcher) handleEvent(event fsnotify.Event) (stationDomain.Drift, bool) {
	if filepath.Clean(event.Name) != w.path {
		return stationDomain.Drift{}, false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return stationDomain.Drift{}, false
	}

	op := "modified"
	data, err := os.ReadFile(w.path)
	switch {
	case os.IsNotExist(err):
		op = "removed"
	case err != nil:
		return stationDomain.Drift{}, false
	case Digest(data) == w.expected():
		return stationDomain.Drift{}, false
	}
	return stationDomain.Drift{Path: w.path, Op: op, DetectedAt: w.now().UTC()}, true
}

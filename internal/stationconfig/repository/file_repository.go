// Package repository stores configuration history as one immutable JSON file per
// version plus a small pointer file naming the current version.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/allisson/btsguard/internal/fsutil"
	configDomain "github.com/allisson/btsguard/internal/stationconfig/domain"
)

const (
	historyDir  = "history"
	pointerFile = "current"
)

// FileRepository implements the configuration store on the local filesystem.
type FileRepository struct {
	dir string
}

// NewFileRepository prepares <dir>/history.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := fsutil.EnsureDir(filepath.Join(dir, historyDir), 0750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) documentPath(version uint64) string {
	return filepath.Join(r.dir, historyDir, strconv.FormatUint(version, 10)+".json")
}

// LoadPointer returns nil without error when no pointer was ever written.
func (r *FileRepository) LoadPointer(ctx context.Context) (*configDomain.Pointer, error) {
	var pointer configDomain.Pointer
	err := fsutil.ReadJSON(filepath.Join(r.dir, pointerFile), &pointer)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", configDomain.ErrHistoryCorrupt, err)
	}
	return &pointer, nil
}

// SavePointer atomically swaps the pointer file.
func (r *FileRepository) SavePointer(ctx context.Context, pointer *configDomain.Pointer) error {
	return fsutil.WriteJSON(filepath.Join(r.dir, pointerFile), pointer, 0640)
}

// SaveDocument writes history/<version>.json atomically.
func (r *FileRepository) SaveDocument(ctx context.Context, doc *configDomain.Document) error {
	return fsutil.WriteJSON(r.documentPath(doc.Version), doc, 0640)
}

// LoadDocument reads one version and checks its digest.
func (r *FileRepository) LoadDocument(ctx context.Context, version uint64) (*configDomain.Document, error) {
	var doc configDomain.Document
	err := fsutil.ReadJSON(r.documentPath(version), &doc)
	if os.IsNotExist(err) {
		return nil, configDomain.ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", configDomain.ErrHistoryCorrupt, err)
	}
	if doc.Version != version || !doc.Verify() {
		return nil, fmt.Errorf("%w: version %d digest mismatch", configDomain.ErrHistoryCorrupt, version)
	}
	return &doc, nil
}

// DeleteDocument removes an uncommitted version. Missing files are ignored.
func (r *FileRepository) DeleteDocument(ctx context.Context, version uint64) error {
	err := os.Remove(r.documentPath(version))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListVersions returns every stored version in ascending order.
func (r *FileRepository) ListVersions(ctx context.Context) ([]uint64, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, historyDir))
	if err != nil {
		return nil, err
	}

	versions := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		version, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

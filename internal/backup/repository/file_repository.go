// Package repository stores backup archives and their index on disk.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	backupDomain "github.com/allisson/btsguard/internal/backup/domain"
	"github.com/allisson/btsguard/internal/fsutil"
)

const indexFile = "index.json"

type backupIndex struct {
	Snapshots []*backupDomain.Snapshot `json:"snapshots"`
}

// FileRepository keeps <id>.tar.zst archives and index.json in a 0750 directory.
// Rewriting the index is the commit point of a snapshot.
type FileRepository struct {
	dir string
}

// NewFileRepository prepares the backup directory.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := fsutil.EnsureDir(dir, 0750); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

// ArchivePath returns where the archive of id lives.
func (r *FileRepository) ArchivePath(id uuid.UUID) string {
	return filepath.Join(r.dir, id.String()+".tar.zst")
}

// LoadIndex returns the snapshots ordered oldest first. A missing index is empty.
func (r *FileRepository) LoadIndex(ctx context.Context) ([]*backupDomain.Snapshot, error) {
	var idx backupIndex
	err := fsutil.ReadJSON(filepath.Join(r.dir, indexFile), &idx)
	if os.IsNotExist(err) {
		return []*backupDomain.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backupDomain.ErrIndexCorrupt, err)
	}
	return idx.Snapshots, nil
}

// SaveIndex atomically replaces the index.
func (r *FileRepository) SaveIndex(ctx context.Context, snapshots []*backupDomain.Snapshot) error {
	sorted := make([]*backupDomain.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return fsutil.WriteJSON(filepath.Join(r.dir, indexFile), backupIndex{Snapshots: sorted}, 0640)
}

// WriteArchive stores the archive atomically with mode 0600.
func (r *FileRepository) WriteArchive(ctx context.Context, id uuid.UUID, data []byte) error {
	return fsutil.AtomicWriteFile(r.ArchivePath(id), data, 0600)
}

// ReadArchive returns the archive bytes; a missing file satisfies os.IsNotExist.
func (r *FileRepository) ReadArchive(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return os.ReadFile(r.ArchivePath(id))
}

// DeleteArchive removes the archive. Missing files are ignored.
func (r *FileRepository) DeleteArchive(ctx context.Context, id uuid.UUID) error {
	err := os.Remove(r.ArchivePath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

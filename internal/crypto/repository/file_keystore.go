// Package repository persists certificate records and sealed private keys on disk.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/fsutil"
)

const (
	indexFile = "index.json"
	keysDir   = "keys"
)

// keystoreIndex is the on-disk list of certificate records. Rewriting it is the
// commit point of every keystore mutation.
type keystoreIndex struct {
	Certificates []*cryptoDomain.Certificate `json:"certificates"`
}

// FileKeystore keeps index.json and keys/<handle>.json under a 0700 directory.
// It is not safe for concurrent mutation; the use case serializes writers.
type FileKeystore struct {
	dir string
}

// NewFileKeystore prepares the keystore directory layout.
func NewFileKeystore(dir string) (*FileKeystore, error) {
	if err := fsutil.EnsureDir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore directory: %w", err)
	}
	if err := fsutil.EnsureDir(filepath.Join(dir, keysDir), 0700); err != nil {
		return nil, fmt.Errorf("create keys directory: %w", err)
	}
	return &FileKeystore{dir: dir}, nil
}

// Dir returns the keystore root directory.
func (k *FileKeystore) Dir() string {
	return k.dir
}

// LoadCertificates reads the index. A missing index is an empty keystore; an
// unreadable one is ErrKeystoreCorrupt.
func (k *FileKeystore) LoadCertificates(ctx context.Context) ([]*cryptoDomain.Certificate, error) {
	var idx keystoreIndex
	err := fsutil.ReadJSON(filepath.Join(k.dir, indexFile), &idx)
	if os.IsNotExist(err) {
		return []*cryptoDomain.Certificate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeystoreCorrupt, err)
	}
	for _, cert := range idx.Certificates {
		if cert == nil || cert.ID == uuid.Nil || cert.KeyHandle == uuid.Nil {
			return nil, fmt.Errorf("%w: incomplete certificate record", cryptoDomain.ErrKeystoreCorrupt)
		}
	}
	return idx.Certificates, nil
}

// SaveCertificates atomically replaces the index, ordered by creation time.
func (k *FileKeystore) SaveCertificates(ctx context.Context, certs []*cryptoDomain.Certificate) error {
	sorted := make([]*cryptoDomain.Certificate, len(certs))
	copy(sorted, certs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return fsutil.WriteJSON(filepath.Join(k.dir, indexFile), keystoreIndex{Certificates: sorted}, 0600)
}

func (k *FileKeystore) keyPath(handle uuid.UUID) string {
	return filepath.Join(k.dir, keysDir, handle.String()+".json")
}

// SaveKey writes a sealed key. Keys are immutable once written.
func (k *FileKeystore) SaveKey(ctx context.Context, key *cryptoDomain.SealedKey) error {
	return fsutil.WriteJSON(k.keyPath(key.Handle), key, 0600)
}

// LoadKey reads a sealed key by handle.
func (k *FileKeystore) LoadKey(ctx context.Context, handle uuid.UUID) (*cryptoDomain.SealedKey, error) {
	var key cryptoDomain.SealedKey
	if err := fsutil.ReadJSON(k.keyPath(handle), &key); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", cryptoDomain.ErrKeystoreCorrupt, handle, err)
	}
	return &key, nil
}

// DeleteKey removes a sealed key that was never committed to the index.
func (k *FileKeystore) DeleteKey(ctx context.Context, handle uuid.UUID) error {
	err := os.Remove(k.keyPath(handle))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

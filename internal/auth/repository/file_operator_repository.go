// Package repository persists operator accounts.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/fsutil"
)

type operatorFile struct {
	Operators []*authDomain.Operator `json:"operators"`
}

// FileOperatorRepository keeps all operators in a single 0600 JSON file that is
// rewritten atomically on every change.
type FileOperatorRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileOperatorRepository creates a repository backed by path. The file is
// created lazily on the first write.
func NewFileOperatorRepository(path string) (*FileOperatorRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create operator directory: %w", err)
	}
	return &FileOperatorRepository{path: path}, nil
}

func (r *FileOperatorRepository) load() ([]*authDomain.Operator, error) {
	var file operatorFile
	err := fsutil.ReadJSON(r.path, &file)
	if os.IsNotExist(err) {
		return []*authDomain.Operator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authDomain.ErrOperatorsCorrupt, err)
	}
	return file.Operators, nil
}

func (r *FileOperatorRepository) save(operators []*authDomain.Operator) error {
	sort.SliceStable(operators, func(i, j int) bool {
		return operators[i].Name < operators[j].Name
	})
	return fsutil.WriteJSON(r.path, operatorFile{Operators: operators}, 0600)
}

// List returns every operator ordered by name.
func (r *FileOperatorRepository) List(ctx context.Context) ([]*authDomain.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// GetByName returns the operator or ErrOperatorNotFound.
func (r *FileOperatorRepository) GetByName(ctx context.Context, name string) (*authDomain.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operators, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, op := range operators {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, authDomain.ErrOperatorNotFound
}

// Create stores a new operator; the name must be unused.
func (r *FileOperatorRepository) Create(ctx context.Context, operator *authDomain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	operators, err := r.load()
	if err != nil {
		return err
	}
	for _, op := range operators {
		if op.Name == operator.Name {
			return authDomain.ErrOperatorExists
		}
	}
	return r.save(append(operators, operator))
}

// Update replaces the operator with the same ID.
func (r *FileOperatorRepository) Update(ctx context.Context, operator *authDomain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	operators, err := r.load()
	if err != nil {
		return err
	}
	for i, op := range operators {
		if op.ID == operator.ID {
			operators[i] = operator
			return r.save(operators)
		}
	}
	return authDomain.ErrOperatorNotFound
}

// Package storage holds rendered certificate blobs. A reference returned by
// Save is durable; issuance links it into the ledger only after Save returns.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists blobs and returns an opaque storage reference.
type Store interface {
	Save(ctx context.Context, name string, blob []byte) (string, error)
	Open(ctx context.Context, ref string) ([]byte, error)
}

// DiskStore keeps blobs on the local filesystem.
type DiskStore struct {
	dir string
}

// NewDiskStore constructs a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the blob under name and syncs it before returning the
// reference.
func (s *DiskStore) Save(_ context.Context, name string, blob []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(blob); err != nil {
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("storage: sync: %w", err)
	}
	return path, nil
}

// Open reads a blob back by its reference.
func (s *DiskStore) Open(_ context.Context, ref string) ([]byte, error) {
	return os.ReadFile(ref)
}

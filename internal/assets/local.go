package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps uploads in a directory on disk.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates basePath if needed and returns a store rooted at it.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}

	return &LocalStore{basePath: abs}, nil
}

// Dir returns the absolute upload directory.
func (s *LocalStore) Dir() string {
	return s.basePath
}

// Delete removes the file behind an upload path. Paths outside the upload
// directory are rejected.
func (s *LocalStore) Delete(_ context.Context, path string) error {
	key, ok := keyFor(path)
	if !ok {
		return fmt.Errorf("not an upload path: %q", path)
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

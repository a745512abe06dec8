// Package filestorage keeps uploaded files on local disk under generated names.
package filestorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound ...
var ErrNotFound = errors.New("file not found")

// Storage ...
type Storage struct {
	dir string
}

// New creates the uploads directory if needed and returns a Storage over it.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	return &Storage{dir: dir}, nil
}

// Store writes data under a generated name, keeping the original extension.
func (s *Storage) Store(data []byte, originalName string) (string, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return name, nil
}

// Resolve maps a stored file name to its filesystem location.
func (s *Storage) Resolve(name string) (string, error) {
	// names never contain separators, anything else is not a stored file
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", ErrNotFound
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	return path, nil
}

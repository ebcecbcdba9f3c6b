package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// LocalStore keeps attachment bytes on the local filesystem under a
// fixed root. Keys are relative paths; traversal outside the root is
// rejected.
type LocalStore struct {
	root string
}

// NewLocalStore builds a disk-backed store rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", apperrors.NewValidationError("invalid storage path", map[string]any{"path": path})
	}
	return filepath.Join(s.root, cleaned), nil
}

// Save writes the reader's contents under path, creating directories as
// needed, and returns the byte count.
func (s *LocalStore) Save(_ context.Context, path string, r io.Reader) (int64, error) {
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(full)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, r)
}

// Open returns a reader over the stored bytes.
func (s *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Exists reports whether the path is present.
func (s *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the stored bytes. Deleting a missing path is not an error.
func (s *LocalStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ Store = (*LocalStore)(nil)

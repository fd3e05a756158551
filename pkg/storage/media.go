package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MediaStore persists uploaded survey media on local disk. References
// handed to callers are paths relative to the base directory; duplicating
// a reference copies the underlying file so clones never share media.
type MediaStore struct {
	baseDir string
}

// NewMediaStore ensures the base directory exists and returns a handle.
func NewMediaStore(baseDir string) (*MediaStore, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &MediaStore{baseDir: baseDir}, nil
}

// Save streams an upload into the store and returns its reference.
func (s *MediaStore) Save(originalName string, r io.Reader) (string, error) {
	ref := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := s.resolve(ref)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	return ref, nil
}

// Duplicate copies the referenced file under a fresh reference.
func (s *MediaStore) Duplicate(ref string) (string, error) {
	src, err := os.Open(s.resolve(ref))
	if err != nil {
		return "", fmt.Errorf("open media %s: %w", ref, err)
	}
	defer src.Close() //nolint:errcheck

	newRef := uuid.NewString() + strings.ToLower(filepath.Ext(ref))
	dst, err := os.Create(s.resolve(newRef))
	if err != nil {
		return "", fmt.Errorf("create media copy: %w", err)
	}
	defer dst.Close() //nolint:errcheck

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(s.resolve(newRef))
		return "", fmt.Errorf("copy media %s: %w", ref, err)
	}
	return newRef, nil
}

// Open returns a read-only handle for the stored file.
func (s *MediaStore) Open(ref string) (*os.File, error) {
	file, err := os.Open(s.resolve(ref))
	if err != nil {
		return nil, fmt.Errorf("open media %s: %w", ref, err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *MediaStore) Delete(ref string) error {
	if err := os.Remove(s.resolve(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media %s: %w", ref, err)
	}
	return nil
}

// resolve keeps references inside the base directory.
func (s *MediaStore) resolve(ref string) string {
	clean := filepath.Clean("/" + ref)
	return filepath.Join(s.baseDir, clean)
}

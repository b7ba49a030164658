package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists validated uploads on disk, content-addressed by SHA-256
// so re-uploads of the same bytes share one file.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes the bytes under a content-addressed path and returns the
// reference to store on the entity (relative path within the media root).
func (s *Store) Save(data []byte, ext string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// two-character prefix keeps directories small
	rel := filepath.Join(hash[:2], hash+ext)
	dir := filepath.Join(s.baseDir, hash[:2])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media subdirectory: %w", err)
	}

	path := filepath.Join(s.baseDir, rel)
	if _, err := os.Stat(path); err == nil {
		return rel, nil // identical content already stored
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return rel, nil
}

// Path resolves a stored reference back to an absolute file path.
func (s *Store) Path(ref string) string {
	return filepath.Join(s.baseDir, ref)
}

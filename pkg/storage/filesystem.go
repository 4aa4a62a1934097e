package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps rendered report files on disk. New files land in a
// year/month bucket under the base directory so cleanup and manual
// inspection stay manageable as exports accumulate.
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, now: time.Now}, nil
}

// Save writes data into the current month's bucket and returns the relative
// path the file can be reopened with.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	rel := s.bucketed(filename)
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export bucket: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return rel, nil
}

// SaveStream copies from r into the current month's bucket.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, error) {
	rel := s.bucketed(filename)
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export bucket: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write export stream: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for a previously saved file.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(relPath string) error {
	path, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files past the TTL and prunes month buckets left
// empty. Returns the relative paths of the deleted files.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := s.now().Add(-ttl)
	deleted := make([]string, 0)
	var emptyDirs []string

	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.baseDir {
				emptyDirs = append(emptyDirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup exports: %w", err)
	}

	// Deepest first so a whole empty year collapses in one pass.
	for i := len(emptyDirs) - 1; i >= 0; i-- {
		_ = os.Remove(emptyDirs[i])
	}
	return deleted, nil
}

// Path exposes the absolute location of a stored file. Empty when relPath
// escapes the base directory.
func (s *LocalStorage) Path(relPath string) string {
	path, err := s.resolve(relPath)
	if err != nil {
		return ""
	}
	return path
}

// bucketed leaves already-bucketed relative paths alone so round trips
// through Save return values stay stable.
func (s *LocalStorage) bucketed(filename string) string {
	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, filepath.Separator) {
		return filename
	}
	return filepath.Join(s.now().UTC().Format("2006/01"), filename)
}

func (s *LocalStorage) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(relPath, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes the export directory", relPath)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

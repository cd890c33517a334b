package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"artifact-cache/internal/common/errors"
)

// tempPrefix marks in-flight writes; such files are not entries.
const tempPrefix = ".artifact-cache-tmp-"

// FileStore keeps one file per entry under <root>/<category>/<name>. File
// modification times are the eviction index.
type FileStore struct {
	category string
	dir      string
}

// NewFileStore creates the category directory if needed. Failure to create
// it is a ConnectionError: the store cannot reach its medium.
func NewFileStore(root, category string) (*FileStore, error) {
	dir := filepath.Join(root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("cannot create cache directory %s", dir), err)
	}
	return &FileStore{category: category, dir: dir}, nil
}

// Dir returns the category directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Read returns the file contents for name
func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError(s.category + "/" + name)
		}
		return nil, errors.InternalError("failed to read cache file", err).WithContext("name", name)
	}
	return data, nil
}

// Write replaces the file for name. The bytes go to a temporary file first,
// get ts as their modification time and are then renamed into place, so
// readers never see a partial file.
func (s *FileStore) Write(ctx context.Context, name string, data []byte, ts time.Time) error {
	if strings.HasPrefix(name, tempPrefix) {
		return errors.ValidationError(fmt.Sprintf("name %q uses a reserved prefix", name))
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return errors.InternalError("failed to create cache file", err).WithContext("name", name)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.InternalError("failed to write cache file", err).WithContext("name", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.InternalError("failed to write cache file", err).WithContext("name", name)
	}
	if err := os.Chtimes(tmpName, ts, ts); err != nil {
		os.Remove(tmpName)
		return errors.InternalError("failed to stamp cache file", err).WithContext("name", name)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return errors.InternalError("failed to commit cache file", err).WithContext("name", name)
	}
	return nil
}

// Remove unlinks the file for name
func (s *FileStore) Remove(ctx context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundError(s.category + "/" + name)
		}
		return errors.InternalError("failed to remove cache file", err).WithContext("name", name)
	}
	return nil
}

// Exists reports whether a file for name is present
func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.InternalError("failed to stat cache file", err).WithContext("name", name)
	}
	return info.Mode().IsRegular(), nil
}

// Count returns the number of entry files in the category directory
func (s *FileStore) Count(ctx context.Context) (int, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.InternalError("failed to list cache directory", err)
	}

	count := 0
	for _, de := range dirEntries {
		if isEntryFile(de.Name(), de.Type()) {
			count++
		}
	}
	return count, nil
}

// Entries lists entry files with their modification times
func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.InternalError("failed to list cache directory", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !isEntryFile(de.Name(), de.Type()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.InternalError("failed to stat cache file", err).WithContext("name", de.Name())
		}
		entries = append(entries, Entry{Name: de.Name(), Timestamp: info.ModTime()})
	}
	return entries, nil
}

func isEntryFile(name string, mode os.FileMode) bool {
	return mode.IsRegular() && !strings.HasPrefix(name, tempPrefix)
}

var _ Store = (*FileStore)(nil)

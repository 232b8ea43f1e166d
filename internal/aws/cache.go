package aws

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache keeps JSON-encoded API results on disk, one file per key.
// Entries older than the TTL are ignored.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir. The directory is created on
// first write.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Get decodes the entry for key into dest. It reports false when the entry
// is missing, older than ttl, or unreadable.
func (fc *FileCache) Get(key string, ttl time.Duration, dest any) bool {
	path := fc.path(key)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > ttl {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// Set stores value under key. The file is replaced atomically so concurrent
// readers never see a partial entry.
func (fc *FileCache) Set(key string, value any) error {
	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}

	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path(key)); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Clear removes every cached entry.
func (fc *FileCache) Clear() error {
	entries, err := os.ReadDir(fc.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(fc.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// path maps key to a file name; separators in the key are flattened.
func (fc *FileCache) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(fc.dir, safe+".json")
}

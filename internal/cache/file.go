package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
)

// FileName is the cache file kept next to the workbooks it serves.
const FileName = "address_cache.json"

// FileStore keeps the cache as one JSON object of address to [lat, lng] with sorted keys.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ForDir returns the store of the cache file inside dir.
func ForDir(dir string) *FileStore {
	return NewFileStore(filepath.Join(dir, FileName))
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing file yields an empty map.
func (s *FileStore) Load(_ context.Context) (map[string]models.Point, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]models.Point{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	entries := map[string]models.Point{}
	if err = json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode cache file %s: %w", s.path, err)
	}

	return entries, nil
}

// Save rewrites the whole file through a temporary file so a crash never leaves it truncated.
func (s *FileStore) Save(_ context.Context, all, _ map[string]models.Point) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".address_cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err = enc.Encode(all); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}

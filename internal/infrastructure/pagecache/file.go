package pagecache

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/purbeurre/backend/internal/domain"
)

// FileCache stores raw source payloads as one JSON file per (entity, kind, suffix).
// Files are only ever added or overwritten; nothing is evicted.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir. The directory is created on first write.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Dir returns the cache directory
func (c *FileCache) Dir() string {
	return c.dir
}

// Path returns the file a payload is stored in.
//
//	list,    "3" -> product_list_3.json
//	list,    ""  -> category_list.json
//	element, "42" -> product_42.json
func (c *FileCache) Path(entity string, kind domain.PageKind, suffix string) string {
	name := entity
	if kind == domain.PageList {
		name += "_list"
	}
	if suffix != "" {
		name += "_" + url.PathEscape(suffix)
	}
	return filepath.Join(c.dir, name+".json")
}

// Read returns the cached payload, or domain.ErrCacheMiss when nothing was written for the key
func (c *FileCache) Read(entity string, kind domain.PageKind, suffix string) ([]byte, error) {
	data, err := os.ReadFile(c.Path(entity, kind, suffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("read cached page: %w", err)
	}
	return data, nil
}

// Write stores payload and returns the file path.
// The payload is written to a temporary file first so a reader never sees a partial page.
func (c *FileCache) Write(entity string, kind domain.PageKind, suffix string, payload []byte) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	path := c.Path(entity, kind, suffix)
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("commit cache file: %w", err)
	}
	return path, nil
}

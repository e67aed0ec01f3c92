// Package recovery persists the sync resume cursor on disk.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the name of the state file inside the state directory
const FileName = "last_page.txt"

// FileStore keeps the next page to fetch as a decimal number in a text file.
// It does no locking: one sync run per state directory.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to dir/last_page.txt
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName)}
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored page, or 1 when nothing has been stored yet
func (s *FileStore) Get(ctx context.Context) (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("read recovery state: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse recovery state %q: %w", text, err)
	}
	if page < 1 {
		return 1, nil
	}
	return page, nil
}

// Set stores page as the next page to fetch
func (s *FileStore) Set(ctx context.Context, page int) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(strconv.Itoa(page)), 0o644); err != nil {
		return fmt.Errorf("write recovery state: %w", err)
	}
	return nil
}

// Reset stores page 1
func (s *FileStore) Reset(ctx context.Context) error {
	return s.Set(ctx, 1)
}

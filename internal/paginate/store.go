package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Store persists cursors between runs.
type Store interface {
	// Load returns the cursor saved under key; ok is false when there is none.
	Load(ctx context.Context, key string) (c Cursor, ok bool, err error)
	Save(ctx context.Context, key string, c Cursor) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps cursors in memory.
type MemoryStore struct {
	mu      sync.Mutex
	cursors map[string]Cursor
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]Cursor)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Cursor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[key]
	return c, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, c Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key)
	return nil
}

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on the
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) Load(_ context.Context, key string) (Cursor, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Cursor{}, false, nil
	}
	if err != nil {
		return Cursor{}, false, fmt.Errorf("failed to read cursor file: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false, fmt.Errorf("failed to parse cursor file: %w", err)
	}
	return c, true, nil
}

func (s *FileStore) Save(_ context.Context, key string, c Cursor) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create cursor directory: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("failed to create cursor file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cursor file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cursor file: %w", err)
	}
	return nil
}

// Package prefs is a small durable key/value store scoped to one plugin
// identifier, standing in for the host platform's user-defaults database.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the preferences file kept inside each domain directory.
const FileName = "preferences.yaml"

// Store reads and writes string values by key.
type Store interface {
	// Get returns the value and whether it was present.
	Get(key string) (string, bool, error)
	// Set replaces the value for key.
	Set(key, value string) error
}

// FileStore persists one domain as a canonical YAML file. Every Set rewrites
// the file through an atomic rename, so concurrent invocations never observe a
// torn file; the last writer wins.
type FileStore struct {
	domain string
	path   string
}

// DefaultDir returns the per-domain directory under the user config dir.
func DefaultDir(domain string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, domain), nil
}

// NewFileStore returns a store for domain rooted at dir. Nothing is created
// until the first Set.
func NewFileStore(dir, domain string) *FileStore {
	return &FileStore{domain: domain, path: filepath.Join(dir, FileName)}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	domain, values, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}
	if domain != "" && domain != s.domain {
		return nil, fmt.Errorf("preferences file %s belongs to %q", s.path, domain)
	}
	return values, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, bool, error) {
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	b, err := Marshal(s.domain, values)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.path, b, 0o644)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Package guest implements the unauthenticated visitor workflow:
// locally persisted unsaved work, the demo catalog, the save-gate upsell
// flow, and one-time migration into the authenticated backend.
package guest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrQuotaExceeded signals that a write would push the storage past its
// quota. Callers recover by trimming old work and retrying once.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is the local persistence boundary: synchronous string
// key/value storage with a finite quota.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set stores value under key. Returns ErrQuotaExceeded (possibly
	// wrapped) when the write would exceed the quota.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// MemoryStorage is an in-memory Storage with an optional byte quota.
// Quota 0 means unlimited. Used in tests and as a throwaway scope.
type MemoryStorage struct {
	mu    sync.Mutex
	data  map[string]string
	quota int
}

// NewMemoryStorage creates a MemoryStorage with the given quota in bytes.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string), quota: quota}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		total := len(key) + len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > m.quota {
			return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileStorage persists each key as a file under a directory, with an
// optional total byte quota across all keys. This is the durable scope
// used by the CLI/session runtime: values survive restarts until the
// directory is cleared.
type FileStorage struct {
	dir   string
	quota int64
}

// NewFileStorage creates a FileStorage rooted at dir, creating it if
// needed. Quota 0 means unlimited.
func NewFileStorage(dir string, quota int64) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{dir: dir, quota: quota}, nil
}

func (f *FileStorage) path(key string) string {
	// Keys are internal identifiers; flatten any separators.
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileStorage) Set(key, value string) error {
	if f.quota > 0 {
		used, err := f.usedExcluding(f.path(key))
		if err != nil {
			return err
		}
		if used+int64(len(value)) > f.quota {
			return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}
	return os.WriteFile(f.path(key), []byte(value), 0o644)
}

func (f *FileStorage) Delete(key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// usedExcluding sums the sizes of all stored values except the one at
// exclude, so overwrites are charged only for their new size.
func (f *FileStorage) usedExcluding(exclude string) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(f.dir, e.Name())
		if p == exclude {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

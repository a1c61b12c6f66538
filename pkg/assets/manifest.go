package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Manifest maps server-relative asset paths to content fingerprints.
// It is safe for concurrent use.
//
//	{
//	  "app/page.js": "8c2f0e1d4b3a6f57",
//	  "app/layout.js": "19a7c3e5d2b40f86"
//	}
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
// Use Load() to create a manifest from a JSON file.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Fingerprint returns the manifest fingerprint of content.
func Fingerprint(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// Load reads a manifest file written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}

	return &Manifest{entries: entries}, nil
}

// Get returns the fingerprint recorded for path.
func (m *Manifest) Get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fp, ok := m.entries[path]
	return fp, ok
}

// Unchanged reports whether path is recorded with the fingerprint of content.
func (m *Manifest) Unchanged(path string, content []byte) bool {
	if m == nil {
		return false
	}
	fp, ok := m.Get(path)
	return ok && fp == Fingerprint(content)
}

// Has returns true if the manifest contains the given path.
func (m *Manifest) Has(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[path]
	return ok
}

// Set adds or updates an entry in the manifest.
func (m *Manifest) Set(path, fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[path] = fingerprint
}

// Record sets path to the fingerprint of content.
func (m *Manifest) Record(path string, content []byte) {
	m.Set(path, Fingerprint(content))
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Paths returns the recorded paths, sorted.
func (m *Manifest) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// All returns a copy of all manifest entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}

// MarshalJSON encodes the manifest as a sorted object.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.All())
}

// Save writes the manifest to path, replacing any previous file atomically.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m.All(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

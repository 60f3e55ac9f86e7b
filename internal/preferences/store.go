// Package preferences persists the handful of user preferences the shell
// keeps between runs as a flat YAML document of string keys and values.
package preferences

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// Store is a synchronous string key-value store. With an empty path it
// lives in memory only.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	values map[string]string
}

// Open loads path, creating an empty store when the file does not exist
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger, values: make(map[string]string)}
	if path == "" {
		return s, nil
	}

	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// NewMemory returns a store that is never written to disk
func NewMemory() *Store {
	s, _ := Open("", nil)
	return s
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", path, err)
	}
	return values, nil
}

// Path returns the backing file, or "" for a memory store
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// GetOr returns the value for key or fallback when unset
func (s *Store) GetOr(key, fallback string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return fallback
}

// Set stores value under key and persists the store
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.values[key]; ok && old == value {
		return nil
	}
	s.values[key] = value
	return s.save()
}

// Delete removes key and persists the store
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.save()
}

// Keys lists the stored keys in order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// save writes the store atomically. Caller holds mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*")
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// Reload rereads the backing file and reports which keys changed
func (s *Store) Reload() ([]string, error) {
	if s.path == "" {
		return nil, nil
	}

	values, err := readFile(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for k, v := range values {
		if old, ok := s.values[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range s.values {
		if _, ok := values[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)

	s.values = values
	if len(changed) > 0 {
		s.logger.Debug("preferences reloaded", zap.Strings("changed", changed))
	}
	return changed, nil
}

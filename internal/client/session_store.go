// Package client is a programmatic admin client for the CMS API: a session
// persisted on disk, an HTTP wrapper, resource APIs and page controllers.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage keys of the persisted session.
const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
)

// KeyValueStore is durable string storage for the session.
type KeyValueStore interface {
	Get(key string) (string, bool)
	Set(values map[string]string) error
	Clear() error
}

// FileSessionStore keeps the session keys in one JSON file.
type FileSessionStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileSessionStore opens path. A missing or unreadable file yields an empty store.
func NewFileSessionStore(path string) *FileSessionStore {
	s := &FileSessionStore{path: path, values: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		// Corrupt content counts as no session; Restore clears it.
		s.values = map[string]string{KeyAuthToken: "", KeyUser: string(raw)}
	}
	return s
}

// DefaultSessionPath returns $HOME/.cmsadmin/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cmsadmin", "session.json"), nil
}

func (s *FileSessionStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

// Set writes all values at once.
func (s *FileSessionStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]string, len(s.values)+len(values))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// Clear removes every key and the backing file.
func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSessionStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Package memory implements an in-memory page snapshot store.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps raw page bodies in memory, keyed by path.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates an empty snapshot store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores body under path and returns a mem:// URI.
func (s *Store) Put(_ context.Context, path string, body []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	buf := make([]byte, len(body))
	copy(buf, body)
	s.mu.Lock()
	s.blobs[path] = buf
	s.mu.Unlock()
	return "mem://" + path, nil
}

// Get returns the stored body, or false when absent.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.blobs[path]
	return body, ok
}

package store

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used when the database cannot be
// opened, and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get unmarshals the blob under key into v.
func (s *MemoryStore) Get(key string, v interface{}) (bool, error) {
	s.mu.RLock()
	value, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(value, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal blob %s: %w", key, err)
	}
	return true, nil
}

// Put marshals v and replaces the blob under key.
func (s *MemoryStore) Put(key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %s: %w", key, err)
	}
	s.mu.Lock()
	s.blobs[key] = value
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

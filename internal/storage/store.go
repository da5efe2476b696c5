// Package storage provides the durable client-side key/value store that
// holds experiment overrides.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/feedlens/internal/model"
)

// ErrClosed is returned by a store used after Close
var ErrClosed = errors.New("storage closed")

// Store is a small synchronous key/value store
type Store interface {
	// Get returns the value for key; found is false when the key is absent
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Open creates the store selected by cfg
func Open(cfg model.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path), nil
	case "badger":
		return OpenBadgerStore(BadgerConfig{Path: cfg.Path, SyncWrites: true})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// MemoryStore keeps values for the lifetime of the process
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get retrieves a value
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores a value
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.values[key] = value
	return nil
}

// Remove deletes a value; removing an absent key is not an error
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.values, key)
	return nil
}

// Close discards all values
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.values = nil
	return nil
}

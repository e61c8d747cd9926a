// Package memory contains an in-memory ledger store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/textmachine/sitemap-indexer/internal/storage"
)

// Store keeps the ledger bytes in memory.
type Store struct {
	mu      sync.RWMutex
	data    []byte
	written bool
}

// New returns an empty memory Store.
func New() *Store {
	return &Store{}
}

// Seed pre-populates the store, as if a previous run had written it.
func Seed(data []byte) *Store {
	return &Store{data: append([]byte(nil), data...), written: true}
}

// Read returns the stored bytes, or storage.ErrNotExist before the first write.
func (s *Store) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.written {
		return nil, storage.ErrNotExist
	}
	return append([]byte(nil), s.data...), nil
}

// Write replaces the stored bytes.
func (s *Store) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.written = true
	return nil
}

// Writes reports whether Write has ever been called.
func (s *Store) Writes() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.written
}

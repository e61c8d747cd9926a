// Package storage defines the interface for the ledger's backing store.
// This abstraction allows the ledger to be independent of a specific storage
// implementation (e.g. a local file, Google Cloud Storage, or memory).
package storage

import (
	"context"
	"errors"
)

// ErrNotExist reports that the backing object has never been written.
// The ledger treats it as an empty set, not a failure.
var ErrNotExist = errors.New("ledger object does not exist")

// Store reads and writes the single ledger object.
type Store interface {
	// Read returns the entire object, or ErrNotExist if it was never written.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the entire object.
	Write(ctx context.Context, data []byte) error
}

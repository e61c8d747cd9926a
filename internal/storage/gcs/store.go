// Package gcs provides a ledger store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gstorage "cloud.google.com/go/storage"

	"github.com/textmachine/sitemap-indexer/internal/storage"
)

// Config captures the parameters required to locate the ledger object.
type Config struct {
	Bucket string
	Object string
}

// Store keeps the ledger in a single GCS object.
type Store struct {
	client *gstorage.Client
	bucket string
	object string
}

// New creates a GCS-backed ledger store.
func New(client *gstorage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Read downloads the ledger object, mapping a missing object to
// storage.ErrNotExist.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return nil, storage.ErrNotExist
		}
		return nil, fmt.Errorf("open ledger object: %w", err)
	}
	defer reader.Close() //nolint:errcheck // read error takes precedence

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read ledger object: %w", err)
	}
	return data, nil
}

// Write replaces the ledger object. GCS object writes are atomic: the new
// generation only becomes visible once the writer closes cleanly.
func (s *Store) Write(ctx context.Context, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write ledger object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write ledger object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close ledger writer: %w", err)
	}
	return nil
}

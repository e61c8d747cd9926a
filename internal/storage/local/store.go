// Package local implements a local filesystem ledger store.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/textmachine/sitemap-indexer/internal/storage"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// Path is the ledger file location.
	Path string `mapstructure:"path" yaml:"path"`
}

// Store keeps the ledger in a single file on the local filesystem.
type Store struct {
	path string
}

// New creates a file-backed ledger store. The parent directory is created if
// it does not exist.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}

	dir := filepath.Dir(cfg.Path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create ledger directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat ledger directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("ledger directory path is not a directory")
	}

	return &Store{path: cfg.Path}, nil
}

// Read returns the ledger file contents, or storage.ErrNotExist if the file
// has never been written.
func (s *Store) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotExist
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	return data, nil
}

// Write atomically replaces the ledger file: the data lands in a temp file in
// the same directory and is renamed over the previous ledger, so a crash
// mid-write never truncates prior progress.
func (s *Store) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck // write error takes precedence
		os.Remove(tmpName)   //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

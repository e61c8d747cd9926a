// Package ledger implements the durable record of URLs already submitted to
// the remote index. URLs are exact-match keys; membership is never removed.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/storage"
)

// Set is an in-memory set of URLs. The zero value is not usable; construct
// with NewSet or Ledger.Load.
type Set map[string]struct{}

// NewSet returns an empty Set.
func NewSet() Set {
	return make(Set)
}

// Contains reports membership by exact string match, no normalization.
func (s Set) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// Add inserts a URL. Adding an existing member is a no-op.
func (s Set) Add(url string) {
	s[url] = struct{}{}
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending lexicographic order.
func (s Set) Sorted() []string {
	urls := make([]string, 0, len(s))
	for url := range s {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Ledger loads and persists a Set through a storage backend. The on-disk
// format is one URL per line, UTF-8, sorted ascending, no header.
type Ledger struct {
	store  storage.Store
	logger *zap.Logger
}

// New constructs a Ledger over the given store.
func New(store storage.Store, logger *zap.Logger) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}, nil
}

// Load reads the persisted set. A backing object that was never written
// yields an empty set, not an error.
func (l *Ledger) Load(ctx context.Context) (Set, error) {
	data, err := l.store.Read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			l.logger.Info("no existing ledger; starting with an empty set")
			return NewSet(), nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	set := NewSet()
	for _, line := range strings.Split(string(data), "\n") {
		url := strings.TrimRight(line, "\r")
		if url == "" {
			continue
		}
		set.Add(url)
	}
	l.logger.Info("ledger loaded", zap.Int("urls", set.Len()))
	return set, nil
}

// Persist overwrites the backing object with every member, one per line,
// sorted ascending for determinism.
func (l *Ledger) Persist(ctx context.Context, set Set) error {
	var b strings.Builder
	for _, url := range set.Sorted() {
		b.WriteString(url)
		b.WriteByte('\n')
	}
	if err := l.store.Write(ctx, []byte(b.String())); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	l.logger.Info("ledger persisted", zap.Int("urls", set.Len()))
	return nil
}

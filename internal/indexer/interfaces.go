package indexer

import (
	"context"
	"time"

	"github.com/textmachine/sitemap-indexer/internal/ledger"
)

// Crawler resolves a root sitemap into a flat, order-preserving URL sequence.
type Crawler interface {
	ExtractURLs(ctx context.Context, root string) ([]string, error)
}

// Ledger loads and persists the durable set of already-submitted URLs.
type Ledger interface {
	Load(ctx context.Context) (ledger.Set, error)
	Persist(ctx context.Context, set ledger.Set) error
}

// Authenticator establishes the session the publisher needs. Failure is
// fatal for the run.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Publisher submits one URL-operation pair to the remote index and
// classifies the result. Implementations own their retry policy; the
// scheduler sees exactly one Outcome per URL.
type Publisher interface {
	Publish(ctx context.Context, url string, op Operation) Outcome
}

// Pacer spaces submissions out to stay under the remote rate ceiling.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// ReportPublisher pushes run summaries to Pub/Sub (or similar).
type ReportPublisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

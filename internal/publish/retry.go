package publish

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/textmachine/sitemap-indexer/internal/indexer"
)

// RetryPolicy implements bounded, jittered exponential backoff for the
// publish call. Only retryable outcomes (connection failures and
// post-cooldown rate limits) are retried; terminal outcomes give up
// immediately.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a policy with the defaults the remote service
// tolerates well: three attempts total.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    8 * time.Second,
	}
}

// MaxAttempts returns the total attempt budget per URL.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt is warranted.
func (p *RetryPolicy) ShouldRetry(kind indexer.OutcomeKind, attempt int) bool {
	if attempt >= p.maxAttempts {
		return false
	}
	return kind == indexer.OutcomeRetryable
}

// Backoff returns the wait duration before the given (1-based) retry.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

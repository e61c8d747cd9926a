// Package publish submits URL notifications to the Google Indexing API and
// classifies every outcome as success, retryable, or terminal.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	indexing "google.golang.org/api/indexing/v3"

	"github.com/textmachine/sitemap-indexer/internal/indexer"
	"github.com/textmachine/sitemap-indexer/internal/metrics"
)

// Remote notification types.
const (
	typeURLUpdated = "URL_UPDATED"
	typeURLDeleted = "URL_DELETED"
)

// ErrNotAuthenticated reports a Publish call before Authenticate. That is a
// programming error in the caller, surfaced as a terminal outcome rather
// than a panic.
var ErrNotAuthenticated = errors.New("not authenticated")

// ServiceFactory builds the authenticated indexing service. The concrete
// implementation lives at the credential edge (internal/auth).
type ServiceFactory interface {
	NewService(ctx context.Context) (*indexing.Service, error)
}

// Config tunes the client's rate-limit and retry behavior.
type Config struct {
	// Cooldown is the fixed wait after a 429 before the one transparent
	// in-call retry. The remote quota resets on a coarse clock, so this is
	// deliberately long.
	Cooldown time.Duration
}

const defaultCooldown = 60 * time.Second

// Client wraps the Indexing API with outcome classification, a transparent
// 429 cooldown retry, and a bounded backoff loop for connection failures.
// It also keeps lifetime success/error counters for the run summary.
// Client is not safe for concurrent use; submission is sequential by design.
type Client struct {
	factory ServiceFactory
	policy  *RetryPolicy
	cfg     Config
	logger  *zap.Logger

	service *indexing.Service

	successCount int
	errorCount   int
}

// NewClient constructs an unauthenticated Client.
func NewClient(factory ServiceFactory, cfg Config, logger *zap.Logger) (*Client, error) {
	if factory == nil {
		return nil, errors.New("service factory is required")
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		factory: factory,
		policy:  NewRetryPolicy(),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Authenticate establishes the session used by every subsequent Publish.
func (c *Client) Authenticate(ctx context.Context) error {
	service, err := c.factory.NewService(ctx)
	if err != nil {
		return fmt.Errorf("build indexing service: %w", err)
	}
	c.service = service
	c.logger.Info("indexing service authenticated")
	return nil
}

// Counts returns the lifetime success and error totals for this instance.
func (c *Client) Counts() (successes, failures int) {
	return c.successCount, c.errorCount
}

// Publish submits one URL-operation pair and returns exactly one outcome,
// retrying internally on retryable failures with exponential backoff (max
// three attempts) and absorbing at most one 429 cooldown per attempt. The
// counters move by exactly one per call.
func (c *Client) Publish(ctx context.Context, url string, op indexer.Operation) indexer.Outcome {
	out := c.publish(ctx, url, op)
	if out.Kind == indexer.OutcomeSuccess {
		c.successCount++
	} else {
		c.errorCount++
	}
	return out
}

func (c *Client) publish(ctx context.Context, url string, op indexer.Operation) indexer.Outcome {
	if c.service == nil {
		return indexer.Terminal(ErrNotAuthenticated)
	}

	var out indexer.Outcome
	for attempt := 0; ; attempt++ {
		out = c.attempt(ctx, url, op)
		if !c.policy.ShouldRetry(out.Kind, attempt+1) || ctx.Err() != nil {
			return out
		}
		delay := c.policy.Backoff(attempt)
		c.logger.Warn("publish failed; backing off",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(out.Err),
		)
		metrics.ObservePublishRetry()
		if !sleep(ctx, delay) {
			return indexer.Retryable(ctx.Err())
		}
	}
}

// attempt performs one externally visible publish call, including the single
// transparent 429 cooldown retry. A bounded loop, never self-invocation.
func (c *Client) attempt(ctx context.Context, url string, op indexer.Operation) indexer.Outcome {
	out, rateLimited := c.notify(ctx, url, op)
	if !rateLimited {
		return out
	}

	c.logger.Warn("rate limited by remote; cooling down",
		zap.String("url", url),
		zap.Duration("cooldown", c.cfg.Cooldown),
	)
	metrics.ObserveCooldown()
	if !sleep(ctx, c.cfg.Cooldown) {
		return indexer.Retryable(ctx.Err())
	}
	out, _ = c.notify(ctx, url, op)
	return out
}

func (c *Client) notify(ctx context.Context, url string, op indexer.Operation) (indexer.Outcome, bool) {
	notificationType := typeURLUpdated
	if op == indexer.OpDelete {
		notificationType = typeURLDeleted
	}

	resp, err := c.service.UrlNotifications.Publish(&indexing.UrlNotification{
		Url:  url,
		Type: notificationType,
	}).Context(ctx).Do()
	if err != nil {
		return classify(err)
	}

	return indexer.Success(responseEcho(resp)), false
}

// classify maps a remote call failure onto the outcome taxonomy. The second
// return value flags a 429, which gets the cooldown treatment before the
// outer retry policy ever sees it.
func classify(err error) (indexer.Outcome, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return indexer.Retryable(err), true
		case gerr.Code >= http.StatusBadRequest:
			// Client and server errors alike: the original gives up on
			// anything >= 400 other than 429.
			return indexer.Terminal(err), false
		default:
			// A remote error without a classifiable status.
			return indexer.Retryable(err), false
		}
	}
	if isConnectionError(err) {
		return indexer.Retryable(err), false
	}
	return indexer.Terminal(err), false
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// responseEcho renders the server response for logging.
func responseEcho(resp *indexing.PublishUrlNotificationResponse) string {
	if resp == nil {
		return ""
	}
	data, err := resp.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// sleep waits for d unless the context finishes first. It reports whether
// the full wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

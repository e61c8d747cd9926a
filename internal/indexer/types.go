// Package indexer defines the core types and interfaces for the batch
// submission engine. It includes the run configuration, per-URL publish
// outcomes, and the Scheduler orchestrator that drives a daily run.
package indexer

import (
	"errors"
	"fmt"
	"time"
)

// Operation selects what a run asks the remote index to do with each URL.
type Operation string

// Supported operations.
const (
	OpRegister Operation = "register"
	OpDelete   Operation = "delete"
)

// ParseOperation converts user input into an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpRegister, OpDelete:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation %q (want %q or %q)", s, OpRegister, OpDelete)
	}
}

// OutcomeKind classifies the result of one externally visible publish call.
type OutcomeKind int

// Outcome kinds. Retryable failures are governed by the publish client's
// backoff policy; terminal failures are logged, counted, and skipped.
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeTerminal
)

// String returns a metric-friendly label for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is the by-value result of publishing one URL. It replaces
// exception-style control flow: the scheduler inspects the kind and never
// sees a panic for a per-URL failure.
type Outcome struct {
	Kind OutcomeKind
	// Response echoes the remote payload on success, for logging only.
	Response string
	// Err carries the failure reason for non-success outcomes.
	Err error
}

// Success builds a successful outcome carrying the server response.
func Success(response string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Response: response}
}

// Retryable builds an outcome for a transient, connection-level failure.
func Retryable(err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Err: err}
}

// Terminal builds an outcome for a failure that must not be retried.
func Terminal(err error) Outcome {
	return Outcome{Kind: OutcomeTerminal, Err: err}
}

// RunConfig is the immutable configuration for a single run.
type RunConfig struct {
	// SitemapURL is the root sitemap (leaf or index) to crawl.
	SitemapURL string
	// Operation is applied to every URL in today's batch.
	Operation Operation
	// DailyLimit caps the number of submission attempts this run.
	DailyLimit int
	// StartOffset skips that many otherwise-eligible URLs before the batch
	// is built; used for manual resumption or partitioning.
	StartOffset int
}

// Validate checks the run configuration invariants.
func (c RunConfig) Validate() error {
	if c.SitemapURL == "" {
		return errors.New("sitemap URL is required")
	}
	if _, err := ParseOperation(string(c.Operation)); err != nil {
		return err
	}
	if c.DailyLimit <= 0 {
		return errors.New("daily limit must be positive")
	}
	if c.StartOffset < 0 {
		return errors.New("start offset must not be negative")
	}
	return nil
}

// Result summarizes one run. It is logged and optionally published, never
// persisted.
type Result struct {
	RunID               string        `json:"run_id"`
	Operation           Operation     `json:"operation"`
	Attempted           int           `json:"attempted"`
	Succeeded           int           `json:"succeeded"`
	Failed              int           `json:"failed"`
	RemainingAfterToday int           `json:"remaining_after_today"`
	EstimatedDays       int           `json:"estimated_days"`
	Interrupted         bool          `json:"interrupted"`
	Duration            time.Duration `json:"duration"`
}

// Stage names a scheduler state. Done is reachable from any state via
// interruption or a fatal error.
type Stage string

// Scheduler stages, in normal run order.
const (
	StageIdle           Stage = "idle"
	StageAuthenticating Stage = "authenticating"
	StageCrawling       Stage = "crawling"
	StageFiltering      Stage = "filtering"
	StageSubmitting     Stage = "submitting"
	StageFinalizing     Stage = "finalizing"
	StageDone           Stage = "done"
)

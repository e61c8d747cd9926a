package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/ledger"
	"github.com/textmachine/sitemap-indexer/internal/metrics"
)

// ErrNoURLs is returned when the crawl produced an empty URL sequence.
// An unreachable sitemap and a genuinely empty one abort identically; the
// crawler's per-node warnings are what tell them apart.
var ErrNoURLs = errors.New("sitemap crawl produced no URLs")

// persistTimeout bounds the detached ledger flush after an interrupted run.
const persistTimeout = 10 * time.Second

// Scheduler drives one sequential submission run: authenticate, crawl,
// filter against the ledger, submit today's slice with pacing, persist.
type Scheduler struct {
	cfg       RunConfig
	auth      Authenticator
	crawler   Crawler
	ledger    Ledger
	publisher Publisher
	pacer     Pacer
	clock     Clock
	idGen     IDGenerator
	logger    *zap.Logger

	stage Stage
}

// NewScheduler constructs a Scheduler and validates its dependencies.
func NewScheduler(
	cfg RunConfig,
	auth Authenticator,
	crawler Crawler,
	ldg Ledger,
	publisher Publisher,
	pacer Pacer,
	clock Clock,
	idGen IDGenerator,
	logger *zap.Logger,
) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	if auth == nil || crawler == nil || ldg == nil || publisher == nil {
		return nil, errors.New("authenticator, crawler, ledger, and publisher are required")
	}
	if pacer == nil {
		return nil, errors.New("pacer is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		auth:      auth,
		crawler:   crawler,
		ledger:    ldg,
		publisher: publisher,
		pacer:     pacer,
		clock:     clock,
		idGen:     idGen,
		logger:    logger,
		stage:     StageIdle,
	}, nil
}

// Stage reports the scheduler's current state.
func (s *Scheduler) Stage() Stage {
	return s.stage
}

// Run executes one full run. The returned error is non-nil only for fatal
// stage failures (authentication, crawl, ledger access); per-URL failures
// are absorbed into the Result counts. An interrupt cancels the submission
// loop but still persists partial progress.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	start := s.clock.Now()
	res := Result{RunID: s.runID(), Operation: s.cfg.Operation}
	log := s.logger.With(zap.String("run_id", res.RunID), zap.String("operation", string(s.cfg.Operation)))

	s.transition(log, StageAuthenticating)
	if err := s.auth.Authenticate(ctx); err != nil {
		s.finishFatal(log, &res, start)
		return res, fmt.Errorf("authenticate: %w", err)
	}

	s.transition(log, StageCrawling)
	crawled, err := s.crawler.ExtractURLs(ctx, s.cfg.SitemapURL)
	if err != nil {
		s.finishFatal(log, &res, start)
		return res, fmt.Errorf("crawl sitemap: %w", err)
	}
	if len(crawled) == 0 {
		log.Error("sitemap crawl returned no URLs; see crawl warnings for whether the source was empty or unreachable",
			zap.String("sitemap", s.cfg.SitemapURL))
		s.finishFatal(log, &res, start)
		return res, ErrNoURLs
	}
	metrics.ObserveCrawl(len(crawled))

	s.transition(log, StageFiltering)
	processed, err := s.ledger.Load(ctx)
	if err != nil {
		s.finishFatal(log, &res, start)
		return res, fmt.Errorf("load ledger: %w", err)
	}
	remaining := FilterRemaining(crawled, processed)
	batch := SliceBatch(remaining, s.cfg.StartOffset, s.cfg.DailyLimit)
	log.Info("work slice computed",
		zap.Int("crawled", len(crawled)),
		zap.Int("already_processed", len(crawled)-len(remaining)),
		zap.Int("remaining", len(remaining)),
		zap.Int("start_offset", s.cfg.StartOffset),
		zap.Int("daily_limit", s.cfg.DailyLimit),
		zap.Int("batch", len(batch)),
	)

	s.transition(log, StageSubmitting)
	for _, url := range batch {
		if err := s.pacer.Wait(ctx); err != nil {
			res.Interrupted = true
			log.Warn("run interrupted; finalizing with partial progress", zap.Error(err))
			break
		}
		out := s.publisher.Publish(ctx, url, s.cfg.Operation)
		res.Attempted++
		metrics.ObserveSubmission(out.Kind.String())
		switch out.Kind {
		case OutcomeSuccess:
			processed.Add(url)
			res.Succeeded++
			log.Debug("url submitted", zap.String("url", url), zap.String("response", out.Response))
		default:
			res.Failed++
			log.Error("url submission failed",
				zap.String("url", url),
				zap.String("kind", out.Kind.String()),
				zap.Error(out.Err),
			)
		}
		if ctx.Err() != nil {
			res.Interrupted = true
			log.Warn("run interrupted; finalizing with partial progress", zap.Error(ctx.Err()))
			break
		}
	}

	s.transition(log, StageFinalizing)
	if err := s.persist(ctx, processed); err != nil {
		s.finishFatal(log, &res, start)
		return res, fmt.Errorf("persist ledger: %w", err)
	}

	res.RemainingAfterToday = len(remaining) - res.Succeeded
	res.EstimatedDays = ceilDiv(res.RemainingAfterToday, s.cfg.DailyLimit)
	res.Duration = s.clock.Now().Sub(start)
	metrics.SetRemaining(res.RemainingAfterToday)
	s.transition(log, StageDone)
	if res.Interrupted {
		metrics.ObserveRun("interrupted")
	} else {
		metrics.ObserveRun("succeeded")
	}
	log.Info("run summary",
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("remaining_after_today", res.RemainingAfterToday),
		zap.Int("estimated_days", res.EstimatedDays),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// persist flushes the processed set. If the run context was canceled the
// flush runs on a short detached context so partial progress is not lost.
func (s *Scheduler) persist(ctx context.Context, set ledger.Set) error {
	if ctx.Err() != nil {
		detached, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		ctx = detached
	}
	return s.ledger.Persist(ctx, set)
}

func (s *Scheduler) transition(log *zap.Logger, next Stage) {
	s.stage = next
	log.Debug("stage transition", zap.String("stage", string(next)))
}

func (s *Scheduler) finishFatal(log *zap.Logger, res *Result, start time.Time) {
	res.Duration = s.clock.Now().Sub(start)
	s.transition(log, StageDone)
	metrics.ObserveRun("fatal")
}

func (s *Scheduler) runID() string {
	if s.idGen == nil {
		return ""
	}
	id, err := s.idGen.NewID()
	if err != nil {
		s.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

// FilterRemaining subtracts already-processed URLs from the crawl sequence,
// preserving crawl order. Repeats within the crawl collapse onto their first
// occurrence so a URL cannot spend quota twice in one run.
func FilterRemaining(crawled []string, processed ledger.Set) []string {
	seen := make(map[string]struct{}, len(crawled))
	out := make([]string, 0, len(crawled))
	for _, url := range crawled {
		if processed.Contains(url) {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}

// SliceBatch drops the first offset elements and caps the rest at limit.
func SliceBatch(remaining []string, offset, limit int) []string {
	if offset >= len(remaining) {
		return nil
	}
	rest := remaining[offset:]
	if limit < len(rest) {
		rest = rest[:limit]
	}
	return rest
}

func ceilDiv(n, d int) int {
	if n <= 0 || d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

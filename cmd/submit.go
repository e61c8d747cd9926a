package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/auth"
	"github.com/textmachine/sitemap-indexer/internal/clock/system"
	"github.com/textmachine/sitemap-indexer/internal/config"
	"github.com/textmachine/sitemap-indexer/internal/id/uuid"
	"github.com/textmachine/sitemap-indexer/internal/indexer"
	"github.com/textmachine/sitemap-indexer/internal/ledger"
	"github.com/textmachine/sitemap-indexer/internal/logging"
	"github.com/textmachine/sitemap-indexer/internal/metrics"
	"github.com/textmachine/sitemap-indexer/internal/ops"
	"github.com/textmachine/sitemap-indexer/internal/publish"
	publisherpubsub "github.com/textmachine/sitemap-indexer/internal/publisher/pubsub"
	"github.com/textmachine/sitemap-indexer/internal/ratelimit"
	"github.com/textmachine/sitemap-indexer/internal/sitemap"
	"github.com/textmachine/sitemap-indexer/internal/storage"
	storagegcs "github.com/textmachine/sitemap-indexer/internal/storage/gcs"
	storagelocal "github.com/textmachine/sitemap-indexer/internal/storage/local"
)

// reportTimeout bounds the best-effort summary publish after the run.
const reportTimeout = 10 * time.Second

// newSubmitCmd creates and configures the 'submit' subcommand, which runs
// one full batch: authenticate, crawl, filter, submit, finalize.
func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Runs one submission batch against the remote index",
		Long: `Crawls the configured sitemap, removes URLs already recorded in the
ledger, and submits up to the daily limit sequentially with pacing. The
ledger is persisted even when the run is interrupted, so repeated runs make
monotonic forward progress.`,

		RunE: runSubmitCommand,
	}
	registerRunFlags(cmd)
	return cmd
}

// registerRunFlags declares the per-run overrides shared by submit and plan.
// Binding to Viper happens at run time (bindRunFlags) so that sibling
// commands never shadow each other's flag values.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("sitemap", "", "root sitemap URL (overrides sitemap.url)")
	cmd.Flags().String("operation", "", "register or delete (overrides submit.operation)")
	cmd.Flags().Int("daily-limit", 0, "max submissions this run (overrides submit.daily_limit)")
	cmd.Flags().Int("start-offset", 0, "eligible URLs to skip first (overrides submit.start_offset)")
	cmd.Flags().String("ledger", "", "ledger file path (overrides ledger.path)")
}

// bindRunFlags binds the executing command's changed flags onto Viper keys.
func bindRunFlags(cmd *cobra.Command) error {
	bindings := map[string]string{
		"sitemap.url":         "sitemap",
		"submit.operation":    "operation",
		"submit.daily_limit":  "daily-limit",
		"submit.start_offset": "start-offset",
		"ledger.path":         "ledger",
	}
	for key, flag := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func runSubmitCommand(cmd *cobra.Command, _ []string) error {
	if err := bindRunFlags(cmd); err != nil {
		return err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Logging.Development {
		if err := logging.InitLogger(true); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	logger := logging.L
	if cfg.Auth.CredentialsFile == "" {
		return errors.New("auth.credentials_file is required for submit")
	}
	metrics.Init()

	// An interrupt cancels the run context; the scheduler finalizes with
	// partial progress before the process exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildLedgerStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sched, client, err := buildScheduler(cfg, store, logger)
	if err != nil {
		return err
	}

	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(cfg.Ops, logger.Named("ops"))
		opsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := opsServer.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("ops server shutdown failed", zap.Error(serr))
			}
		}()
	}

	result, runErr := sched.Run(ctx)

	successes, failures := client.Counts()
	logger.Info("publish client lifetime counters",
		zap.Int("successes", successes),
		zap.Int("failures", failures),
	)

	reportSummary(cfg, result, logger)

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// buildLedgerStore selects the configured ledger backend. The returned close
// function releases the GCS client when that backend is in use.
func buildLedgerStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.Ledger.GCSBucket != "" {
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		store, err := storagegcs.New(client, storagegcs.Config{
			Bucket: cfg.Ledger.GCSBucket,
			Object: cfg.Ledger.GCSObject,
		})
		if err != nil {
			client.Close() //nolint:errcheck // constructor error takes precedence
			return nil, nil, fmt.Errorf("init gcs ledger store: %w", err)
		}
		return store, func() { client.Close() }, nil //nolint:errcheck // best-effort close
	}

	store, err := storagelocal.New(storagelocal.Config{Path: cfg.Ledger.Path})
	if err != nil {
		return nil, nil, fmt.Errorf("init ledger store: %w", err)
	}
	return store, func() {}, nil
}

func buildScheduler(cfg config.Config, store storage.Store, logger *zap.Logger) (*indexer.Scheduler, *publish.Client, error) {
	authenticator, err := auth.New(cfg.Auth, logger.Named("auth"))
	if err != nil {
		return nil, nil, fmt.Errorf("init authenticator: %w", err)
	}
	client, err := publish.NewClient(authenticator, publish.Config{Cooldown: cfg.Submit.Cooldown}, logger.Named("publish"))
	if err != nil {
		return nil, nil, fmt.Errorf("init publish client: %w", err)
	}
	crawler := sitemap.New(sitemap.Config{
		Timeout:   cfg.SitemapTimeout(),
		MaxDepth:  cfg.Sitemap.MaxDepth,
		UserAgent: cfg.Sitemap.UserAgent,
	}, logger.Named("sitemap"))
	book, err := ledger.New(store, logger.Named("ledger"))
	if err != nil {
		return nil, nil, fmt.Errorf("init ledger: %w", err)
	}

	sched, err := indexer.NewScheduler(
		cfg.RunConfig(),
		client,
		crawler,
		book,
		client,
		ratelimit.New(cfg.Submit.PaceInterval),
		system.New(),
		uuid.New(),
		logger.Named("scheduler"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init scheduler: %w", err)
	}
	return sched, client, nil
}

// reportSummary publishes the run result to Pub/Sub when configured. The run
// context may already be canceled, so this uses its own short deadline.
func reportSummary(cfg config.Config, result indexer.Result, logger *zap.Logger) {
	if cfg.Report.Topic == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	client, err := gpubsub.NewClient(ctx, cfg.Report.ProjectID)
	if err != nil {
		logger.Warn("summary publish skipped: pubsub client", zap.Error(err))
		return
	}
	defer client.Close() //nolint:errcheck // best-effort close

	id, err := publisherpubsub.New(client).Publish(ctx, cfg.Report.Topic, result)
	if err != nil {
		logger.Warn("summary publish failed", zap.Error(err))
		return
	}
	logger.Info("run summary published", zap.String("message_id", id), zap.String("topic", cfg.Report.Topic))
}

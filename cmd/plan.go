package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/textmachine/sitemap-indexer/internal/config"
	"github.com/textmachine/sitemap-indexer/internal/indexer"
	"github.com/textmachine/sitemap-indexer/internal/ledger"
	"github.com/textmachine/sitemap-indexer/internal/logging"
	"github.com/textmachine/sitemap-indexer/internal/sitemap"
)

// previewLimit caps how many batch URLs the plan output lists.
const previewLimit = 10

// newPlanCmd creates the 'plan' subcommand: crawl and filter only, no
// authentication and no submissions, so it is always safe to run.
func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Shows what the next submit run would do, without submitting",
		Long: `Crawls the configured sitemap, subtracts the URLs already recorded in
the ledger, and prints today's batch plus the days-to-completion estimate.
The remote index is never contacted and the ledger is never written.`,

		RunE: runPlanCommand,
	}
	registerRunFlags(cmd)
	return cmd
}

func runPlanCommand(cmd *cobra.Command, _ []string) error {
	if err := bindRunFlags(cmd); err != nil {
		return err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.L

	crawler := sitemap.New(sitemap.Config{
		Timeout:   cfg.SitemapTimeout(),
		MaxDepth:  cfg.Sitemap.MaxDepth,
		UserAgent: cfg.Sitemap.UserAgent,
	}, logger.Named("sitemap"))

	crawled, err := crawler.ExtractURLs(cmd.Context(), cfg.Sitemap.URL)
	if err != nil {
		return fmt.Errorf("crawl sitemap: %w", err)
	}
	if len(crawled) == 0 {
		return indexer.ErrNoURLs
	}

	store, closeStore, err := buildLedgerStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	book, err := ledger.New(store, logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	processed, err := book.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	remaining := indexer.FilterRemaining(crawled, processed)
	batch := indexer.SliceBatch(remaining, cfg.Submit.StartOffset, cfg.Submit.DailyLimit)

	cmd.Printf("sitemap URLs:       %d\n", len(crawled))
	cmd.Printf("already processed:  %d\n", len(crawled)-len(remaining))
	cmd.Printf("remaining:          %d\n", len(remaining))
	cmd.Printf("today's batch:      %d (offset %d, limit %d)\n",
		len(batch), cfg.Submit.StartOffset, cfg.Submit.DailyLimit)
	cmd.Printf("days to completion: %d\n", daysToCompletion(len(remaining), cfg.Submit.DailyLimit))

	if len(batch) > 0 {
		cmd.Println("\nbatch preview:")
		for i, url := range batch {
			if i == previewLimit {
				cmd.Printf("  ... and %d more\n", len(batch)-previewLimit)
				break
			}
			cmd.Printf("  %d. %s\n", i+1, url)
		}
	}
	return nil
}

func daysToCompletion(remaining, dailyLimit int) int {
	if remaining <= 0 || dailyLimit <= 0 {
		return 0
	}
	return (remaining + dailyLimit - 1) / dailyLimit
}

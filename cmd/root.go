// Package cmd defines and implements the CLI commands for the indexer
// executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/logging"
	pkgconfig "github.com/textmachine/sitemap-indexer/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Submits sitemap URLs to the Google Indexing API at a bounded daily rate.",
		Long: `indexer crawls a sitemap (including nested sitemap indexes), subtracts the
URLs already confirmed in its ledger, and submits today's slice to the
Google Indexing API sequentially with pacing and retries. Interrupting a run
persists partial progress, so the next run resumes instead of re-submitting.`,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newPlanCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	pkgconfig.InitConfig()
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start; commands rebuild it in
	// development mode after configuration is loaded.
	if err := logging.InitLogger(false); err != nil {
		panic(err)
	}

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

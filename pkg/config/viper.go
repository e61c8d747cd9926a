// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file, environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")              // Current working directory
	viper.AddConfigPath("/etc/indexer/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.indexer") // User-specific configuration

	// --- Set Defaults ---
	const defaultUA = "sitemap-indexer/1.0 (+https://github.com/textmachine/sitemap-indexer)"
	viper.SetDefault("sitemap.timeout_seconds", 30)
	viper.SetDefault("sitemap.max_depth", 8)
	viper.SetDefault("sitemap.user_agent", defaultUA)

	viper.SetDefault("submit.operation", "register")
	viper.SetDefault("submit.daily_limit", 200)
	viper.SetDefault("submit.start_offset", 0)
	viper.SetDefault("submit.pace_interval", "1s")
	viper.SetDefault("submit.cooldown", "60s")

	viper.SetDefault("ledger.path", "data/submitted-urls.txt")

	viper.SetDefault("ops.enabled", false)
	viper.SetDefault("ops.port", 9090)

	viper.SetDefault("logging.development", false)

	// --- Environment Variables ---
	viper.SetEnvPrefix("INDEXER") // e.g. INDEXER_SUBMIT_DAILY_LIMIT=500
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not fatal: defaults plus environment variables may be enough.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

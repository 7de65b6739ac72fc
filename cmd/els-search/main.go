// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the els-search CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/els-search/internal/logging"
	"github.com/pdiddy/els-search/internal/secrets"
	"github.com/pdiddy/els-search/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds one plain-text file per credential.
const secretsDir = ".secrets/"

var (
	// cfg is the resolved configuration, filled before any subcommand runs.
	cfg = types.DefaultConfig()

	// logger writes to stderr so stdout carries only results.
	logger = zap.NewNop()

	closeLog = func() {}
)

// rootCmd is the base command for the els-search CLI.
var rootCmd = &cobra.Command{
	Use:   "els-search",
	Short: "Query the Elsevier search APIs from the command line",
	Long: `els-search runs queries against the Elsevier search API indexes
(scopus, sciencedirect, ...), pages through the results and writes them as
a table, CSV, JSON, YAML or CSL bibliography.

Searches can be saved to a local SQLite history and re-exported later, and
a YAML query file can run many searches at once.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}

		log, closer, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		logger, closeLog = log, closer

		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		s.Apply(&cfg.API)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./els-search.yaml or ~/.config/els-search/els-search.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("els-search")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "els-search"))
		}
	}

	setDefaults(types.DefaultConfig())

	viper.SetEnvPrefix("ELS_SEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
		}
	}
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal (e.g. ELS_SEARCH_API_API_KEY for api.api_key).
func setDefaults(d types.Config) {
	viper.SetDefault("api.timeout", d.API.Timeout)
	viper.SetDefault("api.user_agent", d.API.UserAgent)
	viper.SetDefault("api.base_url", d.API.BaseURL)
	viper.SetDefault("api.api_key", d.API.APIKey)
	viper.SetDefault("api.insttoken", d.API.InstToken)
	viper.SetDefault("api.max_retries", d.API.MaxRetries)
	viper.SetDefault("api.cache_size", d.API.CacheSize)

	viper.SetDefault("search.index", d.Search.Index)
	viper.SetDefault("search.view", d.Search.View)
	viper.SetDefault("search.count", d.Search.Count)
	viper.SetDefault("search.get_all", d.Search.GetAll)
	viper.SetDefault("search.use_cursor", d.Search.UseCursor)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("log.file", d.Log.File)
	viper.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", d.Log.MaxBackups)
	viper.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	viper.SetDefault("log.compress", d.Log.Compress)

	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("batch.workers", d.Batch.Workers)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		closeLog()
		os.Exit(1)
	}
}

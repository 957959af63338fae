// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the results-sync CLI, which pushes
// exam result records from JSON files to the results API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/results-sync/internal/secrets"
	"github.com/pdiddy/results-sync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE from the log.* settings.
var logger = zap.NewNop()

// loadedSecrets holds key files read from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the results-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "results-sync",
	Short: "Synchronize exam result records to the results API",
	Long: `results-sync reads JSON files of exam result records, normalizes each
record, and creates or updates it on the remote results API.

Records are identified by roll number and semester. Existing records are
updated, new ones are inserted, and records missing identity fields or a
GPA for a passed result are skipped with a diagnostic.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		logger = l

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", zap.Int("count", len(s)))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./results-sync.yaml or ~/.config/results-sync/config.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential key files")
	pf.String("base-url", types.DefaultBaseURL, "results API endpoint")
	pf.Duration("timeout", defaultTimeout, "HTTP request timeout (0 disables it)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log encoding: console or json")

	bindFlag("api.base_url", "base-url")
	bindFlag("api.timeout", "timeout")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := setupViper(cfgFile); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupViper points viper at cfgFile, or at results-sync.yaml in the
// working directory or ~/.config/results-sync, enables RESULTS_SYNC_*
// environment overrides, and reads the config file. The returned error
// is viper's read error; a missing file is not fatal.
func setupViper(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("results-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "results-sync"))
		}
	}

	viper.SetEnvPrefix("RESULTS_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	return viper.ReadInConfig()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/results-sync/internal/batch"
	"github.com/pdiddy/results-sync/internal/dispatch"
	"github.com/pdiddy/results-sync/internal/pipeline"
	"github.com/pdiddy/results-sync/internal/report"
	"github.com/pdiddy/results-sync/internal/resultsapi"
	"github.com/pdiddy/results-sync/internal/secrets"
	"github.com/pdiddy/results-sync/pkg/types"
)

const defaultTimeout = 60 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Insert or update result records from a JSON file or directory",
	Long: `Sync loads result records from a JSON file, or from every .json file
directly inside a directory, and writes each record to the results API.

A record that already exists (same roll number and semester) is updated;
otherwise it is inserted. When no path is given you are prompted for one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Int("workers", types.DefaultWorkers, "records processed concurrently (values below 1 use the default)")
	syncCmd.Flags().Bool("insert-only", false, "skip the existence check and insert every record")
	syncCmd.Flags().String("extension", types.DefaultExtension, "data file extension for directory scans")
	syncCmd.Flags().String("token", "", "bearer token for the results API (default: .secrets/results-api-token)")
	syncCmd.Flags().String("report", "", "write a run report to this path (.json, else YAML)")
	syncCmd.Flags().Bool("json", false, "print the run report as JSON instead of the text summary")
	syncCmd.Flags().Bool("no-progress", false, "disable the progress counter on stderr")

	for key, flag := range map[string]string{
		"workers":     "workers",
		"insert_only": "insert-only",
		"extension":   "extension",
	} {
		if err := viper.BindPFlag(key, syncCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(syncCmd)
}

// loadSyncConfig merges defaults, the config file, RESULTS_SYNC_* variables
// and flags into a SyncConfig. Workers below 1 are kept as given and fall
// back to the default through EffectiveWorkers.
func loadSyncConfig() (types.SyncConfig, error) {
	viper.SetDefault("api.base_url", types.DefaultBaseURL)
	viper.SetDefault("api.timeout", defaultTimeout)
	viper.SetDefault("api.user_agent", "results-sync/"+version)
	viper.SetDefault("api.token", "")
	viper.SetDefault("workers", types.DefaultWorkers)
	viper.SetDefault("insert_only", false)
	viper.SetDefault("extension", types.DefaultExtension)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	var cfg types.SyncConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.API.BaseURL == "" {
		return cfg, errors.New("api.base_url must be set")
	}
	return cfg, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadSyncConfig()
	if err != nil {
		return err
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cfg.API.Token
	}
	cfg.API.Token = secrets.Resolve(loadedSecrets, secrets.TokenKey, token)

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		path, err = promptPath(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	var progress *progressPrinter
	if !noProgress {
		progress = newProgressPrinter(cmd.ErrOrStderr())
	}

	summary, runErr := syncPath(cmd.Context(), cfg, path, progress, logger)

	r := report.Build(summary, cfg, time.Now())
	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := report.WriteFile(reportPath, r); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("report written", zap.String("path", reportPath))
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := report.WriteJSON(out, r); err != nil {
			return err
		}
	} else {
		report.WriteText(out, r)
	}

	return exitError(runErr, r.Totals)
}

// syncPath wires the API client, dispatcher, pipeline and batch driver for
// one run over path.
func syncPath(ctx context.Context, cfg types.SyncConfig, path string, progress *progressPrinter, log *zap.Logger) (types.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := resultsapi.New(cfg.API, &http.Client{Timeout: cfg.API.Timeout})
	if err != nil {
		return types.RunSummary{}, err
	}

	d := dispatch.New(client,
		dispatch.InsertOnly(cfg.InsertOnly),
		dispatch.WithLogger(log))

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.EffectiveWorkers()),
		pipeline.WithLogger(log),
	}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(progress.Update))
	}
	p := pipeline.New(d, opts...)

	driver := batch.New(p, cfg.Extension, log)
	if progress != nil {
		driver.OnFile = progress.StartFile
	}

	log.Info("starting sync",
		zap.String("path", path),
		zap.String("base_url", cfg.API.BaseURL),
		zap.Int("workers", p.Workers()),
		zap.Bool("insert_only", cfg.InsertOnly))

	return driver.Run(ctx, path)
}

// promptPath asks for the input path on w and reads one line from r.
func promptPath(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter the path to the data file or folder: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading path: %w", err)
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", errors.New("no input path given")
	}
	return path, nil
}

// exitError decides the command result: any input that could not be
// processed or any record whose write failed fails the run. Skipped
// records alone do not.
func exitError(runErr error, totals report.Counts) error {
	switch {
	case runErr != nil && totals.Failed > 0:
		return fmt.Errorf("%w; %d record(s) failed", runErr, totals.Failed)
	case runErr != nil:
		return runErr
	case totals.Failed > 0:
		return fmt.Errorf("%d record(s) failed to sync", totals.Failed)
	}
	return nil
}


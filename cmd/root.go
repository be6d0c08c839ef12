// Package cmd wires the CLI.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
	"github.com/IreneBurresi/awsome-ai-news/internal/config"
	"github.com/IreneBurresi/awsome-ai-news/internal/pipeline"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagCacheDir string
	flagDryRun   bool
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "ainews",
	Short: "AI news aggregation pipeline",
	Long: `ainews ingests AI news feeds, deduplicates articles against a
date-sharded cache, clusters them into stories, and merges duplicate
stories across days.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "override cache directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "fetch and report without touching the cache")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ainews %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the CLI.
func Execute() {
	// Optional .env, matching local development setups.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo is called by main with build-time values.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagCacheDir != "" {
		cfg.CacheDir = flagCacheDir
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	p.DryRun = flagDryRun

	result, err := p.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return fmt.Errorf("another ainews instance is running (or release the stale lock in %s)", cfg.ResolvedCacheDir())
		}
		return err
	}

	printResult(result)
	return nil
}

func printResult(r *pipeline.Result) {
	fmt.Printf("feeds: %d ok, %d failed\n", r.Ingest.FeedsFetched, r.Ingest.FeedsFailed)
	fmt.Printf("articles: %d ingested, %d unique (%.0f%% duplicates)\n",
		r.Dedup.InputArticles, r.Dedup.UniqueArticles, r.Dedup.DeduplicationRate*100)
	fmt.Printf("news: %d clusters today, %d after cross-day merge (%d merged)\n",
		r.Clusters, r.Merge.NewsAfterDedup, r.Merge.NewsMerged)
	if r.Prepare.CacheCleaned > 0 {
		fmt.Printf("cache: %d expired shards removed\n", r.Prepare.CacheCleaned)
	}
	for _, e := range collectErrors(r) {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
}

func collectErrors(r *pipeline.Result) []string {
	var out []string
	out = append(out, r.Prepare.Errors...)
	out = append(out, r.Ingest.Errors...)
	out = append(out, r.Merge.Errors...)
	return out
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IreneBurresi/awsome-ai-news/internal/cache"
	"github.com/IreneBurresi/awsome-ai-news/internal/news"
)

var flagNoBackup bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache shards",
	Long: `Delete shards older than their category's retention window.

A full cache backup is taken first unless --no-backup is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := cache.NewStore(cfg.ResolvedCacheDir(), logger)
		if err != nil {
			return err
		}

		lock, err := cache.AcquireLock(store.Root(), logger)
		if err != nil {
			return err
		}
		defer lock.Release()

		if !flagNoBackup {
			if path, err := store.Backup(); err != nil {
				fmt.Printf("warning: backup failed: %v\n", err)
			} else {
				fmt.Printf("backup: %s\n", path)
			}
		}

		stats := store.Cleanup([]cache.Category{cfg.ArticleCategory(), cfg.NewsCategory()})
		fmt.Printf("removed %d expired shards\n", stats.FilesRemoved)
		for _, e := range stats.Errors {
			fmt.Printf("warning: %s\n", e)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := cache.NewStore(cfg.ResolvedCacheDir(), nil)
		if err != nil {
			return err
		}

		fmt.Printf("cache: %s\n", store.Root())

		articleCat := cfg.ArticleCategory()
		articles, loadStats, err := cache.LoadSince[news.Article](store, articleCat, veryOld())
		if err != nil {
			return err
		}
		printCategory(articleCat.Name, len(articles), loadStats)

		newsCat := cfg.NewsCategory()
		clusters, loadStats, err := cache.LoadSince[news.Cluster](store, newsCat, veryOld())
		if err != nil {
			return err
		}
		printCategory(newsCat.Name, len(clusters), loadStats)
		return nil
	},
}

func printCategory(name string, items int, stats cache.LoadStats) {
	fmt.Printf("  %-10s %4d entries in %d shards", name, items, stats.FilesLoaded)
	if stats.FilesCorrupted > 0 {
		fmt.Printf(" (%d corrupted)", stats.FilesCorrupted)
	}
	fmt.Println()
}

// veryOld is a cutoff that includes every shard on disk.
func veryOld() time.Time {
	return time.Now().AddDate(-10, 0, 0)
}

func init() {
	cleanupCmd.Flags().BoolVar(&flagNoBackup, "no-backup", false, "skip the pre-cleanup backup")
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IreneBurresi/awsome-ai-news/internal/pipeline"
)

var flagCronSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Keep the process running and execute the pipeline on a cron
expression (default: daily at 06:00). A run that finds the cache lock
held is skipped and retried at the next tick.`,
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

		c := cron.New()
		_, err = c.AddFunc(flagCronSpec, func() {
			p, err := pipeline.New(cfg, logger)
			if err != nil {
				logger.Error("pipeline init failed", zap.Error(err))
				return
			}
			result, err := p.Run(cmd.Context())
			if err != nil {
				logger.Error("scheduled run failed", zap.Error(err))
				return
			}
			logger.Info("scheduled run finished",
				zap.Int("unique_articles", result.Dedup.UniqueArticles),
				zap.Int("news", result.Merge.NewsAfterDedup))
		})
		if err != nil {
			return fmt.Errorf("invalid cron spec %q: %w", flagCronSpec, err)
		}

		c.Start()
		defer c.Stop()
		fmt.Printf("scheduler running (%s), ctrl-c to stop\n", flagCronSpec)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&flagCronSpec, "cron", "0 6 * * *", "cron expression")
}

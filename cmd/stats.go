package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print vector index statistics",
	Run: func(_ *cobra.Command, _ []string) {
		withServices(func(_ context.Context, svc *services, logger *zap.Logger) error {
			pretty, _ := json.MarshalIndent(svc.pipeline.Stats(), "", "  ")
			logger.Info(string(pretty))
			return nil
		})
	},
}

var clearIndexCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Remove every document from the vector index",
	Run: func(_ *cobra.Command, _ []string) {
		withServices(func(ctx context.Context, svc *services, _ *zap.Logger) error {
			return svc.pipeline.ClearIndex(ctx)
		})
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop every cached search result",
	Run: func(_ *cobra.Command, _ []string) {
		withServices(func(ctx context.Context, svc *services, _ *zap.Logger) error {
			return svc.pipeline.ClearCache(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, clearIndexCmd, clearCacheCmd)
}

func withServices(fn func(ctx context.Context, svc *services, logger *zap.Logger) error) {
	ctx := context.Background()

	logger, config := setup()
	defer logger.Sync()

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("starting services", zap.Error(err))
	}
	defer svc.Close()

	if err := fn(ctx, svc, logger); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

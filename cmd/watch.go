package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the cache and index warm for the queries under watch.queries",
	Run: func(_ *cobra.Command, _ []string) {
		runWatch()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	defer logger.Sync()

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("starting services", zap.Error(err))
	}
	defer svc.Close()

	s, err := scheduler.New(svc.pipeline, config.Watch.Queries, config.Watch.Interval, logger)
	if err != nil {
		logger.Fatal("creating scheduler", zap.Error(err), zap.String("hint", "list searches under watch.queries"))
	}

	if err := s.Start(ctx); err != nil {
		logger.Fatal("starting scheduler", zap.Error(err))
	}

	<-ctx.Done()
	s.Stop()
	logger.Info("exiting", zap.String("reason", "got signal"))
}

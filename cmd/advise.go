package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/advisor"
	"github.com/spigell/jobrag/internal/pipeline"
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Assess a resume against a target role and suggest next steps",
	Run: func(cmd *cobra.Command, _ []string) {
		runAdvise(cmd)
	},
}

func init() {
	rootCmd.AddCommand(adviseCmd)

	adviseCmd.Flags().StringP("resume", "r", "", "path to a plain text resume")
	adviseCmd.Flags().String("current-role", "", "current role, e.g. \"Junior Developer\"")
	adviseCmd.Flags().String("target-role", "", "role to grow into")
	adviseCmd.Flags().StringP("query", "q", "", "also match live postings for this query and use them as context")
	adviseCmd.Flags().StringP("location", "l", "", "job location for --query")

	adviseCmd.MarkFlagRequired("resume")
}

func runAdvise(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup()
	defer logger.Sync()

	resume, err := readResume(cmd)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("starting services", zap.Error(err))
	}
	defer svc.Close()

	flags := cmd.Flags()
	currentRole, _ := flags.GetString("current-role")
	targetRole, _ := flags.GetString("target-role")
	query, _ := flags.GetString("query")
	location, _ := flags.GetString("location")

	req := advisor.Request{
		ResumeText:  resume,
		CurrentRole: currentRole,
		TargetRole:  targetRole,
	}

	if query != "" {
		result, err := svc.pipeline.FetchAndMatch(ctx, pipeline.Request{
			ResumeText:  resume,
			JobQuery:    query,
			Location:    location,
			UseCache:    true,
			Constraints: config.Filter.Constraints,
		})
		if err != nil {
			logger.Fatal("matching jobs", zap.Error(err))
		}
		req.Matches = result.Matches
		if req.TargetRole == "" {
			req.TargetRole = query
		}
		logger.Info("using live matches as context", zap.Int("matches", len(req.Matches)))
	}

	advice, err := svc.advisor.Advise(ctx, req)
	if err != nil {
		logger.Fatal("career advice", zap.Error(err))
	}

	logAdvice(logger, advice)
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/advisor"
	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/pipeline"
	"github.com/spigell/jobrag/internal/skills"
)

const (
	PromptShowMatch       = "Show a match"
	PromptReportByCompany = "Report by company"
	PromptJobsToFile      = "Dump fetched jobs to file"
	PromptCareerAdvice    = "Career advice"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowMatch, PromptReportByCompany, PromptJobsToFile, PromptCareerAdvice, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Fetch live postings and rank them against a resume",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "path to a plain text resume")
	matchCmd.Flags().StringP("query", "q", "", "job search query")
	matchCmd.Flags().StringP("location", "l", "", "job location (default from source.location)")
	matchCmd.Flags().IntP("num-jobs", "n", 0, "postings to fetch (default from source.num-jobs)")
	matchCmd.Flags().IntP("top-k", "k", 0, "matches to return (default from source.top-k)")
	matchCmd.Flags().Bool("no-cache", false, "always fetch fresh postings")
	matchCmd.Flags().Float64("min-score", 0, "drop matches scoring below this value")
	matchCmd.Flags().String("experience", "", "keep only entry, mid or senior postings")
	matchCmd.Flags().Int("within-days", 0, "keep only postings published within this many days")
	matchCmd.Flags().Bool("exclude-remote", false, "drop remote postings")
	matchCmd.Flags().BoolP("yes", "y", false, "print the matches and exit without the interactive menu")

	matchCmd.MarkFlagRequired("resume")
	matchCmd.MarkFlagRequired("query")

	viper.BindPFlag("filter.constraints.min-match-score", matchCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("filter.constraints.experience-level", matchCmd.Flags().Lookup("experience"))
	viper.BindPFlag("filter.constraints.posted-within-days", matchCmd.Flags().Lookup("within-days"))
	viper.BindPFlag("filter.constraints.exclude-remote", matchCmd.Flags().Lookup("exclude-remote"))
}

func runMatch(cmd *cobra.Command) {
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
	query, _ := flags.GetString("query")
	location, _ := flags.GetString("location")
	numJobs, _ := flags.GetInt("num-jobs")
	topK, _ := flags.GetInt("top-k")
	noCache, _ := flags.GetBool("no-cache")

	result, err := svc.pipeline.FetchAndMatch(ctx, pipeline.Request{
		ResumeText:  resume,
		JobQuery:    query,
		Location:    location,
		NumJobs:     numJobs,
		TopK:        topK,
		UseCache:    !noCache,
		Constraints: config.Filter.Constraints,
	})
	if err != nil {
		logger.Fatal("matching jobs", zap.Error(err))
	}

	for _, w := range result.Warnings {
		logger.Warn("degraded result", zap.String("warning", w))
	}

	if result.ErrorMessage != "" {
		logger.Info("exiting", zap.String("reason", result.ErrorMessage))
		return
	}

	logMatches(logger, result)

	if len(result.Matches) == 0 {
		logger.Info("exiting", zap.String("reason", "no matches left after filters"))
		return
	}

	if yes, _ := flags.GetBool("yes"); yes {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, svc, logger, resume, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, svc *services, logger *zap.Logger, resume string, result *pipeline.Result) error {
	switch action {
	case PromptShowMatch:
		return showMatches(logger, svc.extractor, resume, result)
	case PromptReportByCompany:
		jobs := job.FromSlice(result.Jobs)
		pretty, _ := json.MarshalIndent(jobs.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
		return nil
	case PromptJobsToFile:
		filename, err := job.FromSlice(result.Jobs).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump jobs to file: %w", err)
		}
		logger.Info("dumping jobs to file", zap.String("filename", filename))
		return nil
	case PromptCareerAdvice:
		advice, err := svc.advisor.Advise(ctx, advisor.Request{
			ResumeText: resume,
			TargetRole: result.Query,
			Matches:    result.Matches,
		})
		if err != nil {
			return fmt.Errorf("career advice: %w", err)
		}
		logAdvice(logger, advice)
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showMatches(logger *zap.Logger, extractor *skills.Extractor, resume string, result *pipeline.Result) error {
	jobs := job.FromSlice(result.Jobs)
	profile := extractor.ExtractDetailed(resume)

	for {
		items := make([]string, 0, len(result.Matches)+1)
		for _, m := range result.Matches {
			items = append(items, fmt.Sprintf("%s %5.1f%% %s / %s", m.JobID, m.MatchScore, m.Title, m.Company))
		}

		matchPrompt := promptui.Select{
			Label: "Choose a match and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		idx, selected, err := matchPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		m := result.Matches[idx]
		fields := []zap.Field{
			zap.String("job_id", m.JobID),
			zap.String("title", m.Title),
			zap.String("company", m.Company),
			zap.String("location", m.Location),
			zap.String("salary", m.SalaryRange),
			zap.Strings("matched_skills", m.MatchedSkills),
			zap.Strings("missing_skills", m.MissingSkills),
			zap.String("recommendation", m.Recommendation.Advice()),
			zap.String("apply_link", m.ApplyLink),
		}

		if j := jobs.FindByID(m.JobID); j != nil {
			cmp := skills.Compare(profile, extractor.ExtractDetailed(j.Description))
			fields = append(fields,
				zap.String("experience", j.ExperienceRequired),
				zap.String("posted", j.PostedAt),
				zap.Float64("proficiency_match", cmp.Overall),
				zap.Any("skill_gaps", cmp.Gaps),
			)
		}

		logger.Info(m.Explanation, fields...)
	}
}

func logMatches(logger *zap.Logger, result *pipeline.Result) {
	logger.Info("matching finished",
		zap.Int("fetched", result.JobsFetched),
		zap.Int("matches", result.TotalMatches),
		zap.Bool("cache_used", result.CacheUsed),
	)

	for i, m := range result.Matches {
		logger.Info(fmt.Sprintf("#%d %s at %s", i+1, m.Title, m.Company),
			zap.Float64("match_score", m.MatchScore),
			zap.Float64("skill_score", m.SkillScore),
			zap.Float64("semantic_score", m.SemanticScore),
			zap.Stringer("recommendation", m.Recommendation),
			zap.String("apply_link", m.ApplyLink),
		)
	}
}

func logAdvice(logger *zap.Logger, advice *advisor.Advice) {
	pretty, _ := json.MarshalIndent(advice, "", "  ")
	logger.Info(string(pretty), zap.Bool("degraded", advice.Degraded))
}

// setup builds the logger and decodes the config. Both are required by
// every command that talks to providers.
func setup() (*zap.Logger, *Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Info("starting the jobrag", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return l, config
}

// redacted returns a copy of config safe to log.
func redacted(config *Config) Config {
	c := *config
	c.Source.SerpAPI.APIKey = mask(c.Source.SerpAPI.APIKey)
	c.LLM.Claude.APIKey = mask(c.LLM.Claude.APIKey)
	c.LLM.Gemini.APIKey = mask(c.LLM.Gemini.APIKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func readResume(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("resume")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("resume %s is empty", path)
	}
	return text, nil
}

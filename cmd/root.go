package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/jobrag/internal/ai/claude"
	"github.com/spigell/jobrag/internal/ai/gemini"
	"github.com/spigell/jobrag/internal/explain"
	"github.com/spigell/jobrag/internal/filtering"
	"github.com/spigell/jobrag/internal/headhunter"
	"github.com/spigell/jobrag/internal/jobcache"
	"github.com/spigell/jobrag/internal/jobsource/serpapi"
	"github.com/spigell/jobrag/internal/matching"
	"github.com/spigell/jobrag/internal/pipeline"
	"github.com/spigell/jobrag/internal/scheduler"
	"github.com/spigell/jobrag/internal/skills"
	"github.com/spigell/jobrag/internal/vectorindex"
)

const (
	app       = "jobrag"
	envPrefix = "JOBRAG"
)

type Config struct {
	Source SourceConfig       `mapstructure:"source"`
	Cache  jobcache.Config    `mapstructure:"cache"`
	Index  vectorindex.Config `mapstructure:"index"`
	LLM    LLMConfig          `mapstructure:"llm"`
	Match  MatchConfig        `mapstructure:"match"`
	Filter FilterConfig       `mapstructure:"filter"`
	Skills SkillsConfig       `mapstructure:"skills"`
	Watch  WatchConfig        `mapstructure:"watch"`
}

type SourceConfig struct {
	// Provider is "serpapi" or "headhunter".
	Provider   string            `mapstructure:"provider"`
	Location   string            `mapstructure:"location"`
	NumJobs    int               `mapstructure:"num-jobs"`
	TopK       int               `mapstructure:"top-k"`
	SerpAPI    serpapi.Config    `mapstructure:"serpapi"`
	HeadHunter headhunter.Config `mapstructure:"headhunter"`
}

type LLMConfig struct {
	// Provider is "anthropic", "gemini" or "none". Empty picks the first
	// provider with a configured key.
	Provider string        `mapstructure:"provider"`
	Claude   claude.Config `mapstructure:"claude"`
	Gemini   gemini.Config `mapstructure:"gemini"`
}

type MatchConfig struct {
	Weights    matching.Weights    `mapstructure:"weights"`
	Thresholds matching.Thresholds `mapstructure:"thresholds"`
	Explain    explain.Options     `mapstructure:"explain"`
}

type FilterConfig struct {
	Constraints filtering.Constraints `mapstructure:"constraints"`
	Quality     filtering.Weights     `mapstructure:"quality"`
	Disabled    []string              `mapstructure:"disabled"`
}

type SkillsConfig struct {
	Sensitivity string            `mapstructure:"sensitivity"`
	Aliases     map[string]string `mapstructure:"aliases"`
	Limit       int               `mapstructure:"limit"`
}

type WatchConfig struct {
	Interval time.Duration     `mapstructure:"interval"`
	Queries  []scheduler.Query `mapstructure:"queries"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobrag fetches live job postings and ranks them against a resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobrag.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env is normal; only a broken one is reported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindings := map[string][]string{
		"source.serpapi.api-key":       {"SERPAPI_KEY", "SEARCHAPI_KEY"},
		"source.headhunter.token-file": {"HH_TOKEN_FILE"},
		"llm.claude.api-key":           {"ANTHROPIC_API_KEY"},
		"llm.gemini.api-key":           {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			log.Fatalf("binding %s environment variables: %v", key, err)
		}
	}

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and environment are enough.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// setDefaults registers every tunable so environment overrides reach
// viper.Unmarshal and partial config sections keep the remaining defaults.
func setDefaults() {
	defaults := map[string]any{
		"source.provider":    serpapi.Name,
		"source.location":    pipeline.DefaultLocation,
		"source.num-jobs":    pipeline.DefaultNumJobs,
		"source.top-k":       pipeline.DefaultTopK,
		"cache.backend":      jobcache.BackendMemory,
		"cache.ttl":          jobcache.DefaultTTL,
		"cache.path":         "",
		"cache.redis.url":    "",
		"index.path":         "",
		"index.embedder":     "",
		"index.timeout":      20 * time.Second,
		"llm.provider":       "",
		"llm.claude.model":   "",
		"llm.gemini.model":   "",
		"skills.sensitivity": string(skills.SensitivityStandard),
		"skills.limit":       10,
		"watch.interval":     scheduler.DefaultInterval,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	setStructDefaults("match.weights", matching.DefaultWeights())
	setStructDefaults("match.thresholds", matching.DefaultThresholds())
	setStructDefaults("match.explain", explain.DefaultOptions())
	setStructDefaults("filter.quality", filtering.DefaultWeights())
	setStructDefaults("filter.constraints", filtering.Constraints{})
}

func setStructDefaults(prefix string, v any) {
	var fields map[string]any
	if err := mapstructure.Decode(v, &fields); err != nil {
		log.Fatalf("registering %s defaults: %v", prefix, err)
	}
	for key, value := range fields {
		viper.SetDefault(prefix+"."+key, value)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}

package headhunter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/jobsource"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/secrets"
	"github.com/spigell/jobrag/internal/skills"
)

const (
	Name = "headhunter"

	apiURL    = "https://api.hh.ru"
	userAgent = "spigell/jobrag (spigelly@gmail.com)"
	// Max value for search per page.
	perPage = 100
	// MaxResults bounds one fetch to two full pages.
	MaxResults = 2 * perPage

	defaultRPS = 5
)

// Config is the headhunter section of the application config.
type Config struct {
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
	// Areas maps lower-case location names to hh.ru area ids.
	Areas        map[string]int `mapstructure:"areas"`
	Search       SearchParams   `mapstructure:"search"`
	FetchDetails bool           `mapstructure:"fetch-details"`
	RPS          float64        `mapstructure:"rps"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	limiter    *rate.Limiter
	normalizer *job.Normalizer
	areas      map[string]int
	defaults   SearchParams
	details    bool
	now        func() time.Time

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New builds a client. The token is optional: public vacancy search works
// anonymously, an OAuth token only raises rate limits.
func New(cfg *Config, extractor *skills.Extractor, log *zap.Logger) *Client {
	if cfg == nil {
		cfg = &Config{}
	}

	token := ""
	if strings.TrimSpace(cfg.TokenFile) != "" {
		t, err := secrets.Load(secrets.Source{Name: "headhunter token", File: cfg.TokenFile})
		if err != nil {
			logger.OrNop(log).Warn("continuing without headhunter token", zap.Error(err))
		}
		token = t
	}

	areas := make(map[string]int, len(cfg.Areas))
	for name, id := range cfg.Areas {
		areas[strings.ToLower(strings.TrimSpace(name))] = id
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgent
	}

	return &Client{
		token:      token,
		logger:     logger.WithFields(log, zap.String(logger.FieldSource, Name)),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		normalizer: &job.Normalizer{Source: Name, Extractor: extractor},
		areas:      areas,
		defaults:   cfg.Search,
		details:    cfg.FetchDetails,
		now:        time.Now,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: ua,
		APIURL:    apiURL,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) MaxLimit() int { return MaxResults }

// Fetch searches vacancies by text. The location is resolved through the
// configured area table; unknown locations search all areas.
func (c *Client) Fetch(ctx context.Context, query, location string, limit int) ([]job.Job, error) {
	limit = jobsource.ClampLimit(limit, MaxResults)

	params := c.defaults
	params.Text = query
	if id, ok := c.areas[strings.ToLower(strings.TrimSpace(location))]; ok {
		params.Areas = []int{id}
	} else if location != "" {
		c.logger.Debug("location has no configured area, searching everywhere", zap.String(logger.FieldLocation, location))
	}

	vacancies, err := c.search(ctx, &params, limit)
	if err != nil {
		return nil, &jobsource.FetchError{Provider: Name, StatusCode: statusOf(err), Err: err}
	}

	jobs := make([]job.Job, 0, vacancies.Len())
	for _, v := range vacancies.Items {
		if c.details {
			if full, err := c.GetVacancy(ctx, v.ID); err == nil {
				v = full
			} else {
				c.logger.Debug("fetching detailed vacancy failed", zap.String("vacancy_id", v.ID), zap.Error(err))
			}
		}

		j, err := c.normalizer.Normalize(v.toRaw(c.now()))
		if err != nil {
			c.logger.Warn("skipping malformed vacancy", zap.String("vacancy_id", v.ID), zap.Error(err))
			continue
		}
		jobs = append(jobs, j)
	}

	c.logger.Info("fetched jobs", zap.String(logger.FieldQuery, query), zap.Int("count", len(jobs)))
	return jobs, nil
}

package serpapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/jobsource"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/secrets"
	"github.com/spigell/jobrag/internal/skills"
)

const (
	Name = "serpapi"

	apiURL     = "https://serpapi.com"
	searchPath = "/search.json"
	engine     = "google_jobs"
	userAgent  = "spigell/jobrag"

	// MaxResults is the provider cap per search.
	MaxResults = 50

	defaultTimeout = 15 * time.Second
	defaultRPS     = 1
	maxPages       = 10

	noResultsMarker = "hasn't returned any results"
)

// Config is the serpapi section of the application config.
type Config struct {
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	BaseURL    string        `mapstructure:"base-url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RPS        float64       `mapstructure:"rps"`
	Language   string        `mapstructure:"language"`
}

// Client queries the Google Jobs engine of SerpAPI.
type Client struct {
	apiKey     string
	logger     *zap.Logger
	limiter    *rate.Limiter
	normalizer *job.Normalizer
	language   string

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(cfg *Config, extractor *skills.Extractor, log *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "serpapi api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   []string{"SERPAPI_KEY", "SEARCHAPI_KEY"},
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = apiURL
	}

	return &Client{
		apiKey:     key,
		logger:     logger.WithFields(log, zap.String(logger.FieldSource, Name)),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		normalizer: &job.Normalizer{Source: Name, Extractor: extractor},
		language:   cfg.Language,
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		APIURL:     base,
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) MaxLimit() int { return MaxResults }

// Fetch collects up to limit postings, following pagination tokens.
func (c *Client) Fetch(ctx context.Context, query, location string, limit int) ([]job.Job, error) {
	limit = jobsource.ClampLimit(limit, MaxResults)

	var (
		jobs  []job.Job
		token string
	)

	for page := 0; page < maxPages && len(jobs) < limit; page++ {
		resp, err := c.search(ctx, query, location, limit-len(jobs), token)
		if err != nil {
			if len(jobs) > 0 {
				c.logger.Warn("stopping pagination early", zap.Int("page", page), zap.Error(err))
				break
			}
			return nil, err
		}

		c.logger.Debug("got response from serpapi",
			zap.Int("page", page),
			zap.Int("records", len(resp.JobsResults)),
		)

		for idx, record := range resp.JobsResults {
			j, err := c.transform(record)
			if err != nil {
				c.logger.Warn("skipping malformed job record", zap.Int("page", page), zap.Int("index", idx), zap.Error(err))
				continue
			}
			jobs = append(jobs, j)
		}

		token = resp.Pagination.NextPageToken
		if token == "" || len(resp.JobsResults) == 0 {
			break
		}
	}

	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	c.logger.Info("fetched jobs", zap.String(logger.FieldQuery, query), zap.String(logger.FieldLocation, location), zap.Int("count", len(jobs)))
	return jobs, nil
}

type searchResponse struct {
	Error       string `json:"error"`
	JobsResults []any  `json:"jobs_results"`
	Pagination  struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

func (c *Client) search(ctx context.Context, query, location string, num int, token string) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fetchError(0, err)
	}

	q := url.Values{}
	q.Set("engine", engine)
	q.Set("q", query)
	if location = strings.TrimSpace(location); location != "" {
		q.Set("location", location)
	}
	if c.language != "" {
		q.Set("hl", c.language)
	}
	q.Set("num", fmt.Sprint(num))
	if token != "" {
		q.Set("next_page_token", token)
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+searchPath, nil)
	if err != nil {
		return nil, c.fetchError(0, err)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	c.logger.Debug("make request", zap.String("query", query), zap.String("location", location), zap.Bool("paged", token != ""))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.fetchError(0, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, c.fetchError(resp.StatusCode, err)
		}
		defer gz.Close()
		body = gz
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, c.fetchError(resp.StatusCode, fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(data))))
	}

	var out searchResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, c.fetchError(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	if out.Error != "" {
		if strings.Contains(out.Error, noResultsMarker) {
			return &searchResponse{}, nil
		}
		return nil, c.fetchError(resp.StatusCode, errors.New(out.Error))
	}

	return &out, nil
}

func (c *Client) fetchError(status int, err error) error {
	return &jobsource.FetchError{Provider: Name, StatusCode: status, Err: err}
}

type rawJob struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Via         string `json:"via"`
	Description string `json:"description"`
	ShareLink   string `json:"share_link"`
	ApplyLink   string `json:"apply_link"`
	Extensions  struct {
		EmploymentType string `json:"employment_type"`
		ScheduleType   string `json:"schedule_type"`
		Salary         string `json:"salary"`
		PostedAt       string `json:"posted_at"`
	} `json:"detected_extensions"`
	ApplyOptions []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"apply_options"`
}

func (c *Client) transform(record any) (job.Job, error) {
	var raw rawJob
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return job.Job{}, err
	}
	if err := decoder.Decode(record); err != nil {
		return job.Job{}, fmt.Errorf("decode record: %w", err)
	}

	link := raw.ShareLink
	if link == "" {
		link = raw.ApplyLink
	}
	if link == "" && len(raw.ApplyOptions) > 0 {
		link = raw.ApplyOptions[0].Link
	}

	employment := raw.Extensions.EmploymentType
	if employment == "" {
		employment = raw.Extensions.ScheduleType
	}

	return c.normalizer.Normalize(job.Raw{
		ID:             raw.JobID,
		Title:          raw.Title,
		Company:        raw.CompanyName,
		Location:       raw.Location,
		Description:    raw.Description,
		EmploymentType: employment,
		SalaryRange:    raw.Extensions.Salary,
		ApplyLink:      link,
		PostedAt:       raw.Extensions.PostedAt,
	})
}

package filtering

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/utils"
)

var (
	redFlags = []string{
		"work from home",
		"earn money fast",
		"no experience needed",
		"make $$$ from home",
		"commission only",
		"pyramid",
		"multi-level marketing",
		"mlm",
	}

	qualityIndicators = []string{
		"competitive salary",
		"benefits",
		"401k",
		"health insurance",
		"remote option",
		"hybrid",
		"career growth",
		"training provided",
	}
)

// Weights holds the tunable heuristics of quality scoring and ranking.
type Weights struct {
	Base                    float64 `mapstructure:"base"`
	RedFlagPenalty          float64 `mapstructure:"red-flag-penalty"`
	IndicatorBonus          float64 `mapstructure:"indicator-bonus"`
	LongDescriptionChars    int     `mapstructure:"long-description-chars"`
	LongDescriptionBonus    float64 `mapstructure:"long-description-bonus"`
	ShortDescriptionChars   int     `mapstructure:"short-description-chars"`
	ShortDescriptionPenalty float64 `mapstructure:"short-description-penalty"`
	CompanyBonus            float64 `mapstructure:"company-bonus"`
	ApplyLinkBonus          float64 `mapstructure:"apply-link-bonus"`
	MinQuality              float64 `mapstructure:"min-quality"`
	RankMatch               float64 `mapstructure:"rank-match"`
	RankQuality             float64 `mapstructure:"rank-quality"`
}

func DefaultWeights() Weights {
	return Weights{
		Base:                    5,
		RedFlagPenalty:          2,
		IndicatorBonus:          0.5,
		LongDescriptionChars:    500,
		LongDescriptionBonus:    1,
		ShortDescriptionChars:   100,
		ShortDescriptionPenalty: 1,
		CompanyBonus:            0.5,
		ApplyLinkBonus:          0.5,
		MinQuality:              3,
		RankMatch:               0.7,
		RankQuality:             30,
	}
}

func (w Weights) orDefault() Weights {
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

func (w Weights) rankKey(c *Candidate) float64 {
	return c.MatchScore*w.RankMatch + c.Quality*w.RankQuality
}

// QualityScore rates how trustworthy and informative a posting looks, in [0, 10].
func QualityScore(j job.Job, w Weights) float64 {
	w = w.orDefault()
	text := strings.ToLower(j.Title + " " + j.Description)

	score := w.Base
	for _, flag := range redFlags {
		if strings.Contains(text, flag) {
			score -= w.RedFlagPenalty
		}
	}
	for _, indicator := range qualityIndicators {
		if strings.Contains(text, indicator) {
			score += w.IndicatorBonus
		}
	}

	length := len([]rune(j.Description))
	if j.Description == job.DefaultDescription {
		length = 0
	}
	switch {
	case length > w.LongDescriptionChars:
		score += w.LongDescriptionBonus
	case length < w.ShortDescriptionChars:
		score -= w.ShortDescriptionPenalty
	}

	if legitimateCompany(j.Company) {
		score += w.CompanyBonus
	}
	if strings.TrimSpace(j.ApplyLink) != "" {
		score += w.ApplyLinkBonus
	}

	return utils.Clamp(score, 0, 10)
}

func legitimateCompany(name string) bool {
	name = strings.TrimSpace(name)
	if name == job.DefaultCompany || len([]rune(name)) <= 3 {
		return false
	}
	return !strings.ContainsFunc(name, unicode.IsDigit)
}

type qualityFilter struct {
	disabled bool
	reason   string
	min      float64
}

// NewQuality creates a filter that drops postings below the minimum quality score.
func NewQuality() Filter {
	return &qualityFilter{}
}

func (f *qualityFilter) Name() string { return "quality" }

func (f *qualityFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *qualityFilter) IsEnabled() bool { return !f.disabled }

func (f *qualityFilter) Validate(*Constraints) error { return nil }

func (f *qualityFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	f.min = deps.Weights.orDefault().MinQuality

	excluded := b.Keep(func(c *Candidate) bool { return c.Quality >= f.min })
	if len(excluded) > 0 {
		logger.OrNop(deps.Logger).Info("excluding low quality jobs",
			zap.Strings("excluded_jobs", excluded),
			zap.Float64("min_quality", f.min),
			zap.Int("jobs_left", b.Len()),
		)
	}

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *qualityFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_quality": fmt.Sprintf("%.1f", f.min)},
	}
}

package filtering

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
)

const (
	LevelEntry  = "entry"
	LevelMid    = "mid"
	LevelSenior = "senior"
)

var (
	experiencePatterns = map[string]*regexp.Regexp{
		LevelEntry:  regexp.MustCompile(`(?i)\b(entry.?level|junior|0-2\s*years?|fresh|graduate)\b`),
		LevelMid:    regexp.MustCompile(`(?i)\b(mid.?level|intermediate|2-5\s*years?|3-5\s*years?)\b`),
		LevelSenior: regexp.MustCompile(`(?i)\b(senior|lead|5\+?\s*years?|7\+?\s*years?|expert)\b`),
	}

	agePattern    = regexp.MustCompile(`(?i)(\d+)\+?\s*(day|week|month)s?\s+ago`)
	salaryPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([kK])?`)

	remoteKeywords = []string{"remote", "work from home", "wfh", "anywhere"}
)

// ExperienceLevel classifies a posting as entry, senior or mid.
func ExperienceLevel(j job.Job) string {
	text := j.Title + " " + j.Description
	switch {
	case experiencePatterns[LevelEntry].MatchString(text):
		return LevelEntry
	case experiencePatterns[LevelSenior].MatchString(text):
		return LevelSenior
	default:
		return LevelMid
	}
}

// IsRemote reports whether the location or description advertises remote work.
func IsRemote(j job.Job) bool {
	text := strings.ToLower(j.Location + " " + j.Description)
	for _, keyword := range remoteKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// AgeDays parses relative dates such as "3 days ago". ok is false for
// unparseable and hour-based values.
func AgeDays(postedAt string) (days int, ok bool) {
	m := agePattern.FindStringSubmatch(postedAt)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "week":
		return n * 7, true
	case "month":
		return n * 30, true
	default:
		return n, true
	}
}

// SalaryFloor returns the first amount in a salary string, expanding a "K" suffix.
func SalaryFloor(salary string) (float64, bool) {
	m := salaryPattern.FindStringSubmatch(strings.ReplaceAll(salary, ",", ""))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		v *= 1000
	}
	return v, true
}

func logExcluded(deps Deps, msg string, excluded []string, b *Batch, fields ...zap.Field) {
	if len(excluded) == 0 {
		return
	}
	fields = append(fields, zap.Strings("excluded_jobs", excluded), zap.Int("jobs_left", b.Len()))
	logger.OrNop(deps.Logger).Info(msg, fields...)
}

type minMatchScoreFilter struct {
	disabled bool
	reason   string
	min      float64
}

// NewMinMatchScore creates a filter that drops scored candidates below the
// threshold. Candidates without a score pass.
func NewMinMatchScore() Filter {
	return &minMatchScoreFilter{}
}

func (f *minMatchScoreFilter) Name() string { return "min_match_score" }

func (f *minMatchScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minMatchScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minMatchScoreFilter) Validate(c *Constraints) error {
	f.min = 0
	if c == nil {
		return nil
	}
	if c.MinMatchScore < 0 || c.MinMatchScore > 100 {
		return fmt.Errorf("min match score %.2f is outside [0, 100]", c.MinMatchScore)
	}
	f.min = c.MinMatchScore
	return nil
}

func (f *minMatchScoreFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	if f.min <= 0 {
		return Step{Initial: initial, Left: initial}, nil
	}

	excluded := b.Keep(func(c *Candidate) bool { return !c.HasScore || c.MatchScore >= f.min })
	logExcluded(deps, "excluding jobs below min match score", excluded, b, zap.Float64("min_match_score", f.min))

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *minMatchScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_match_score": fmt.Sprintf("%.2f", f.min)},
	}
}

type experienceLevelFilter struct {
	disabled bool
	reason   string
	level    string
}

// NewExperienceLevel creates a filter that keeps postings mentioning the requested level.
func NewExperienceLevel() Filter {
	return &experienceLevelFilter{}
}

func (f *experienceLevelFilter) Name() string { return "experience_level" }

func (f *experienceLevelFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *experienceLevelFilter) IsEnabled() bool { return !f.disabled }

func (f *experienceLevelFilter) Validate(c *Constraints) error {
	f.level = ""
	if c != nil {
		f.level = strings.ToLower(strings.TrimSpace(c.ExperienceLevel))
	}
	return nil
}

func (f *experienceLevelFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	pattern, ok := experiencePatterns[f.level]
	if f.level == "" || !ok {
		if f.level != "" {
			logger.OrNop(deps.Logger).Debug("unknown experience level, keeping every job", zap.String("level", f.level))
		}
		return Step{Initial: initial, Left: initial}, nil
	}

	excluded := b.Keep(func(c *Candidate) bool {
		return pattern.MatchString(c.Job.Title + " " + c.Job.Description)
	})
	logExcluded(deps, "excluding jobs by experience level", excluded, b, zap.String("level", f.level))

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *experienceLevelFilter) Status() Status {
	details := map[string]string{}
	if f.level != "" {
		details["level"] = f.level
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type recencyFilter struct {
	disabled bool
	reason   string
	days     int
}

// NewRecency creates a filter that drops postings older than the requested number of days.
func NewRecency() Filter {
	return &recencyFilter{}
}

func (f *recencyFilter) Name() string { return "recency" }

func (f *recencyFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *recencyFilter) IsEnabled() bool { return !f.disabled }

func (f *recencyFilter) Validate(c *Constraints) error {
	f.days = 0
	if c == nil {
		return nil
	}
	if c.PostedWithinDays < 0 {
		return errors.New("posted within days must not be negative")
	}
	f.days = c.PostedWithinDays
	return nil
}

func (f *recencyFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	if f.days == 0 {
		return Step{Initial: initial, Left: initial}, nil
	}

	excluded := b.Keep(func(c *Candidate) bool {
		age, ok := AgeDays(c.Job.PostedAt)
		return !ok || age <= f.days
	})
	logExcluded(deps, "excluding stale jobs", excluded, b, zap.Int("posted_within_days", f.days))

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *recencyFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"posted_within_days": strconv.Itoa(f.days)},
	}
}

type remoteFilter struct {
	disabled bool
	reason   string
	exclude  bool
}

// NewRemote creates a filter that drops remote postings when asked to.
func NewRemote() Filter {
	return &remoteFilter{}
}

func (f *remoteFilter) Name() string { return "remote" }

func (f *remoteFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *remoteFilter) IsEnabled() bool { return !f.disabled }

func (f *remoteFilter) Validate(c *Constraints) error {
	f.exclude = c != nil && c.ExcludeRemote
	return nil
}

func (f *remoteFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	if !f.exclude {
		return Step{Initial: initial, Left: initial}, nil
	}

	excluded := b.Keep(func(c *Candidate) bool { return !IsRemote(c.Job) })
	logExcluded(deps, "excluding remote jobs", excluded, b)

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *remoteFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"exclude_remote": strconv.FormatBool(f.exclude)},
	}
}

type salaryFilter struct {
	disabled bool
	reason   string
	min, max float64
}

// NewSalary creates a filter that bounds the advertised salary. Postings
// without a parseable amount pass.
func NewSalary() Filter {
	return &salaryFilter{}
}

func (f *salaryFilter) Name() string { return "salary" }

func (f *salaryFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *salaryFilter) IsEnabled() bool { return !f.disabled }

func (f *salaryFilter) Validate(c *Constraints) error {
	f.min, f.max = 0, 0
	if c == nil {
		return nil
	}
	if c.MinSalary < 0 || c.MaxSalary < 0 {
		return errors.New("salary bounds must not be negative")
	}
	if c.MaxSalary > 0 && c.MinSalary > c.MaxSalary {
		return fmt.Errorf("min salary %.0f exceeds max salary %.0f", c.MinSalary, c.MaxSalary)
	}
	f.min, f.max = c.MinSalary, c.MaxSalary
	return nil
}

func (f *salaryFilter) Apply(_ context.Context, deps Deps, b *Batch) (Step, error) {
	initial := b.Len()
	if f.min == 0 && f.max == 0 {
		return Step{Initial: initial, Left: initial}, nil
	}

	excluded := b.Keep(func(c *Candidate) bool {
		amount, ok := SalaryFloor(c.Job.SalaryRange)
		if !ok {
			return true
		}
		if f.min > 0 && amount < f.min {
			return false
		}
		return f.max == 0 || amount <= f.max
	})
	logExcluded(deps, "excluding jobs by salary", excluded, b,
		zap.Float64("min_salary", f.min),
		zap.Float64("max_salary", f.max),
	)

	return Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *salaryFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"min_salary": fmt.Sprintf("%.0f", f.min),
			"max_salary": fmt.Sprintf("%.0f", f.max),
		},
	}
}

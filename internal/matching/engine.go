package matching

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/explain"
	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/skills"
	"github.com/spigell/jobrag/internal/utils"
)

// Weights fuse the skill and semantic scores.
type Weights struct {
	Skill    float64 `mapstructure:"skill"`
	Semantic float64 `mapstructure:"semantic"`
}

func DefaultWeights() Weights {
	return Weights{Skill: 0.6, Semantic: 0.4}
}

// Retrieved is a job handed over by retrieval. HasSemantic is false when
// retrieval fell back to unranked order.
type Retrieved struct {
	Job           job.Job
	SemanticScore float64
	HasSemantic   bool
}

type Match struct {
	JobID          string         `json:"job_id"`
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Location       string         `json:"location"`
	EmploymentType string         `json:"employment_type"`
	SalaryRange    string         `json:"salary_range"`
	ApplyLink      string         `json:"apply_link"`
	MatchScore     float64        `json:"match_score"`
	SkillScore     float64        `json:"skill_score"`
	SemanticScore  float64        `json:"semantic_score"`
	MatchedSkills  []string       `json:"matched_skills"`
	MissingSkills  []string       `json:"missing_skills"`
	Explanation    string         `json:"explanation"`
	Recommendation Recommendation `json:"recommendation"`
}

type explainer interface {
	Explain(ctx context.Context, resumeText string, j job.Job, matched, missing []string, score float64) (string, error)
}

type Engine struct {
	extractor  *skills.Extractor
	explainer  explainer
	weights    Weights
	thresholds Thresholds
	logger     *zap.Logger
}

func New(extractor *skills.Extractor, explainer explainer, w Weights, t Thresholds, log *zap.Logger) *Engine {
	if extractor == nil {
		extractor = skills.New()
	}
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if t == (Thresholds{}) {
		t = DefaultThresholds()
	}
	return &Engine{
		extractor:  extractor,
		explainer:  explainer,
		weights:    w,
		thresholds: t,
		logger:     logger.OrNop(log),
	}
}

// SkillScore is the share of the job's skills found in the resume, in
// percent. Jobs listing no skills score zero.
func SkillScore(resumeSkills, jobSkills []string) float64 {
	if len(jobSkills) == 0 {
		return 0
	}
	matched, _ := Partition(resumeSkills, jobSkills)
	return round2(100 * float64(len(matched)) / float64(len(jobSkills)))
}

// Partition splits job skills into those present in the resume and those
// missing from it, ignoring case and keeping the job's order and spelling.
func Partition(resumeSkills, jobSkills []string) (matched, missing []string) {
	have := make(map[string]struct{}, len(resumeSkills))
	for _, s := range resumeSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	matched = []string{}
	missing = []string{}
	for _, s := range jobSkills {
		if _, ok := have[strings.ToLower(strings.TrimSpace(s))]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return matched, missing
}

// FinalScore fuses both scores and rounds to two decimals within [0, 100].
func (w Weights) FinalScore(skill, semantic float64) float64 {
	return round2(utils.Clamp(w.Skill*skill+w.Semantic*semantic, 0, 100))
}

// Match scores and explains every retrieved job. Results are sorted by match
// score; equal scores keep retrieval order. No job is ever dropped.
func (e *Engine) Match(ctx context.Context, resumeText string, retrieved []Retrieved) []Match {
	resumeSkills := e.extractor.Extract(resumeText)
	e.logger.Debug("resume skills", zap.Strings("skills", resumeSkills))

	matches := make([]Match, 0, len(retrieved))
	for _, r := range retrieved {
		j := r.Job
		matched, missing := Partition(resumeSkills, j.SkillsRequired)

		skillScore := SkillScore(resumeSkills, j.SkillsRequired)
		semantic := 0.0
		if r.HasSemantic {
			semantic = round2(utils.Clamp(r.SemanticScore, 0, 100))
		}
		score := e.weights.FinalScore(skillScore, semantic)

		explanation, err := e.explain(ctx, resumeText, j, matched, missing, score)
		if err != nil {
			var genErr *explain.GenerationError
			if !errors.As(err, &genErr) {
				e.logger.Warn("explanation failed", zap.String(logger.FieldJobID, j.ID), zap.Error(err))
			}
		}

		matches = append(matches, Match{
			JobID:          j.ID,
			Title:          j.Title,
			Company:        j.Company,
			Location:       j.Location,
			EmploymentType: j.EmploymentType,
			SalaryRange:    j.SalaryRange,
			ApplyLink:      j.ApplyLink,
			MatchScore:     score,
			SkillScore:     skillScore,
			SemanticScore:  semantic,
			MatchedSkills:  matched,
			MissingSkills:  missing,
			Explanation:    explanation,
			Recommendation: e.thresholds.Recommend(score),
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].MatchScore > matches[b].MatchScore
	})

	return matches
}

func (e *Engine) explain(ctx context.Context, resumeText string, j job.Job, matched, missing []string, score float64) (string, error) {
	if e.explainer == nil {
		return explain.Fallback(matched, missing, score), nil
	}

	text, err := e.explainer.Explain(ctx, resumeText, j, matched, missing, score)
	if strings.TrimSpace(text) == "" {
		text = explain.Fallback(matched, missing, score)
	}
	return text, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package matching

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/explain"
	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/skills"
)

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string, string) (string, error) {
	return "", context.DeadlineExceeded
}

func (failingGenerator) Model() string { return "failing" }

type countingExplainer struct {
	calls int
	fail  map[string]bool
}

func (c *countingExplainer) Explain(_ context.Context, _ string, j job.Job, matched, missing []string, score float64) (string, error) {
	c.calls++
	if c.fail[j.ID] {
		return explain.Fallback(matched, missing, score), &explain.GenerationError{Err: errors.New("boom")}
	}
	return "generated for " + j.ID, nil
}

func TestSkillScoreScenario(t *testing.T) {
	resume := skills.New().Extract("5 years Python, AWS, Docker")
	jobSkills := []string{"Python", "AWS", "Kubernetes"}

	matched, missing := Partition(resume, jobSkills)
	assert.Equal(t, []string{"Python", "AWS"}, matched)
	assert.Equal(t, []string{"Kubernetes"}, missing)
	assert.Equal(t, 66.67, SkillScore(resume, jobSkills))
}

func TestSkillScoreWithoutJobSkillsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, SkillScore([]string{"Go"}, nil))
	assert.Equal(t, 0.0, SkillScore(nil, []string{}))
}

func TestPartitionIgnoresCase(t *testing.T) {
	matched, missing := Partition([]string{"python", "DOCKER"}, []string{"Python", "Docker", "Go"})
	assert.Equal(t, []string{"Python", "Docker"}, matched)
	assert.Equal(t, []string{"Go"}, missing)
}

func TestFinalScoreBounds(t *testing.T) {
	w := DefaultWeights()
	for skill := 0.0; skill <= 100; skill += 12.5 {
		for semantic := 0.0; semantic <= 100; semantic += 12.5 {
			got := w.FinalScore(skill, semantic)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
	assert.Equal(t, 100.0, w.FinalScore(100, 100))
	assert.Equal(t, 66.67, w.FinalScore(66.67, 66.67))
	assert.Equal(t, 100.0, Weights{Skill: 1, Semantic: 1}.FinalScore(100, 100))
}

func TestRecommendIsMonotonic(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, NotRecommended, th.Recommend(44.99))
	assert.Equal(t, Consider, th.Recommend(45))
	assert.Equal(t, Recommended, th.Recommend(60))
	assert.Equal(t, HighlyRecommended, th.Recommend(75))

	prev := th.Recommend(0)
	for score := 0.0; score <= 100; score += 0.25 {
		got := th.Recommend(score)
		assert.GreaterOrEqual(t, int(got), int(prev), "score %.2f", score)
		prev = got
	}
}

func TestRecommendationText(t *testing.T) {
	data, err := json.Marshal(map[string]Recommendation{"r": HighlyRecommended})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":"HighlyRecommended"}`, string(data))

	var r Recommendation
	require.NoError(t, r.UnmarshalText([]byte("Consider")))
	assert.Equal(t, Consider, r)
	assert.Error(t, r.UnmarshalText([]byte("Maybe")))

	assert.Equal(t, "Strong fit, apply immediately", HighlyRecommended.Advice())
	assert.Equal(t, "Significant skill gaps", NotRecommended.Advice())
}

func TestMatchSortsAndKeepsEveryJob(t *testing.T) {
	explainer := &countingExplainer{fail: map[string]bool{"b": true}}
	engine := New(skills.New(), explainer, Weights{}, Thresholds{}, zap.NewNop())

	retrieved := []Retrieved{
		{Job: job.Job{ID: "a", Title: "Ops", SkillsRequired: []string{"Kubernetes"}}, SemanticScore: 50, HasSemantic: true},
		{Job: job.Job{ID: "b", Title: "Backend", SkillsRequired: []string{"Python", "AWS", "Kubernetes"}}, SemanticScore: 80, HasSemantic: true},
		{Job: job.Job{ID: "c", Title: "Data", SkillsRequired: []string{"Python"}}, SemanticScore: 20, HasSemantic: false},
		{Job: job.Job{ID: "d", Title: "Twin", SkillsRequired: []string{"Python"}}, SemanticScore: 0, HasSemantic: false},
	}

	matches := engine.Match(context.Background(), "5 years Python, AWS, Docker", retrieved)
	require.Len(t, matches, 4)
	assert.Equal(t, 4, explainer.calls)

	// b: 0.6*66.67 + 0.4*80 = 72.0; c and d: 60; a: 20
	assert.Equal(t, []string{"b", "c", "d", "a"}, []string{matches[0].JobID, matches[1].JobID, matches[2].JobID, matches[3].JobID})
	assert.Equal(t, 72.0, matches[0].MatchScore)
	assert.Equal(t, Recommended, matches[0].Recommendation)
	assert.Contains(t, matches[0].Explanation, "Missing 1 required skills: Kubernetes")

	assert.Equal(t, 60.0, matches[1].MatchScore)
	assert.Equal(t, 0.0, matches[1].SemanticScore)
	assert.Equal(t, "generated for c", matches[1].Explanation)

	assert.Equal(t, NotRecommended, matches[3].Recommendation)
	assert.Equal(t, []string{}, matches[3].MatchedSkills)
}

func TestMatchFallsBackWhenGeneratorTimesOut(t *testing.T) {
	engine := New(nil, explain.New(failingGenerator{}, explain.Options{}, nil), Weights{}, Thresholds{}, nil)

	matches := engine.Match(context.Background(), "5 years Python, AWS, Docker", []Retrieved{
		{Job: job.Job{ID: "x", SkillsRequired: []string{"Python", "AWS", "Kubernetes"}}, SemanticScore: 50, HasSemantic: true},
	})

	require.Len(t, matches, 1)
	assert.NotEmpty(t, matches[0].Explanation)
	assert.Contains(t, matches[0].Explanation, "You have 2 required skills")
	assert.Contains(t, matches[0].Explanation, "Missing 1 required skills")
}

func TestMatchWithoutExplainer(t *testing.T) {
	engine := New(nil, nil, Weights{}, Thresholds{}, nil)

	matches := engine.Match(context.Background(), "Go developer", []Retrieved{{Job: job.Job{ID: "x"}}})
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].MatchScore)
	assert.Equal(t, "Weak match based on skill analysis.", matches[0].Explanation)
}

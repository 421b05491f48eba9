package explain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubGenerator) Model() string { return "stub-model" }

func sampleJob() job.Job {
	return job.Job{
		ID:          "j1",
		Title:       "Platform Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: strings.Repeat("Operate Kubernetes clusters. ", 100),
	}
}

func TestExplainUsesGenerator(t *testing.T) {
	stub := &stubGenerator{response: "You match on Python and AWS. Kubernetes is missing. Apply after a short course. Good luck. Extra sentence."}
	e := New(stub, Options{}, zap.NewNop())

	resume := strings.Repeat("r", 5000)
	text, err := e.Explain(context.Background(), resume, sampleJob(), []string{"Python", "AWS"}, []string{"Kubernetes"}, 66.67)
	require.NoError(t, err)

	assert.Equal(t, "You match on Python and AWS. Kubernetes is missing. Apply after a short course. Good luck.", text)
	assert.NotEmpty(t, stub.lastSystem)
	assert.Contains(t, stub.lastPrompt, "Title: Platform Engineer")
	assert.Contains(t, stub.lastPrompt, "Matched required skills: Python, AWS")
	assert.Contains(t, stub.lastPrompt, "Missing required skills: Kubernetes")
	assert.Contains(t, stub.lastPrompt, "Match score: 66.7%")
	assert.NotContains(t, stub.lastPrompt, strings.Repeat("r", 1501))
	assert.Contains(t, stub.lastPrompt, strings.Repeat("r", 1500))
	assert.Less(t, len(stub.lastPrompt), 1500+1000+1000)
}

func TestExplainFallsBackOnTimeout(t *testing.T) {
	stub := &stubGenerator{err: context.DeadlineExceeded}
	e := New(stub, Options{}, nil)

	text, err := e.Explain(context.Background(), "resume", sampleJob(), []string{"Python", "AWS"}, []string{"Kubernetes"}, 66.67)
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "stub-model", genErr.Model)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.NotEmpty(t, text)
	assert.Contains(t, text, "You have 2 required skills")
	assert.Contains(t, text, "Missing 1 required skills")
}

func TestExplainRejectsBlankReply(t *testing.T) {
	e := New(&stubGenerator{response: "   \n "}, Options{}, nil)

	text, err := e.Explain(context.Background(), "resume", sampleJob(), nil, []string{"Go"}, 10)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(text, "Weak match"))
}

func TestExplainWithoutGenerator(t *testing.T) {
	e := New(nil, Options{}, nil)

	text, err := e.Explain(context.Background(), "resume", sampleJob(), []string{"Go"}, nil, 80)
	require.NoError(t, err)
	assert.Equal(t, Fallback([]string{"Go"}, nil, 80), text)
}

func TestFallback(t *testing.T) {
	cases := []struct {
		name    string
		matched []string
		missing []string
		score   float64
		want    string
	}{
		{
			name:    "strong",
			matched: []string{"Go", "Docker", "AWS", "Kafka"},
			score:   82,
			want:    "Strong match based on skill analysis. You have 4 required skills: Go, Docker, AWS. Consider applying and highlighting your matching skills.",
		},
		{
			name:    "moderate with gaps",
			matched: []string{"Python"},
			missing: []string{"Spark"},
			score:   55,
			want:    "Moderate match based on skill analysis. You have 1 required skills: Python. Missing 1 required skills: Spark. Consider upskilling in missing areas before applying.",
		},
		{
			name:  "weak without skills",
			score: 12,
			want:  "Weak match based on skill analysis.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fallback(tc.matched, tc.missing, tc.score)
			assert.Equal(t, tc.want, got)
			assert.NotContains(t, strings.ToLower(got), "llm")
		})
	}
}

func TestBound(t *testing.T) {
	assert.Equal(t, "One. Two.", Bound("One.   Two.\nThree.", 2, 0))
	assert.Equal(t, "Uses Node.js daily. Done.", Bound("Uses Node.js daily. Done.", 2, 0))
	assert.Equal(t, "", Bound("  ", 4, 800))

	long := strings.Repeat("word ", 300)
	assert.LessOrEqual(t, len([]rune(Bound(long, 4, 800))), 800)
}

func TestSkillListCaps(t *testing.T) {
	assert.Equal(t, "None", skillList(nil, 3))
	assert.Equal(t, "a, b (+2 more)", skillList([]string{"a", "b", "c", "d"}, 2))
}

package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, []string) ([][]float32, error) { return nil, f.err }
func (f failingEmbedder) Model() string                                      { return "failing" }

func testJobs() []job.Job {
	return []job.Job{
		{
			ID: "go", Title: "Go Backend Engineer", Company: "Acme", Location: "Berlin",
			Description:    "Build Go microservices running on Kubernetes and PostgreSQL.",
			SkillsRequired: []string{"Go", "Kubernetes", "PostgreSQL"},
		},
		{
			ID: "chef", Title: "Pastry Chef", Company: "Bakery", Location: "Paris",
			Description: "Bake bread, croissants and seasonal desserts every morning.",
		},
		{
			ID: "py", Title: "Python Data Engineer", Company: "Initech", Location: "Remote",
			Description:    "Own Python pipelines with Airflow and Spark.",
			SkillsRequired: []string{"Python", "Airflow", "Spark"},
		},
	}
}

func openMemory(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(&Config{}, NewHashEmbedder(0), zap.NewNop())
	require.NoError(t, err)
	return idx
}

func TestAddAndSearch(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	n, err := idx.Add(ctx, testJobs())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := idx.Search(ctx, "Go engineer building Kubernetes microservices", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "go", hits[0].Job.ID)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, hits[0].Job.SkillsRequired)

	for i, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()
	jobs := testJobs()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := idx.Add(ctx, jobs); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			hits, err := idx.Search(ctx, "Go engineer", 3)
			if err != nil {
				errs <- err
				return
			}
			for _, h := range hits {
				if h.Job.ID == "" || h.Job.Title == "" {
					errs <- errors.New("partially written document")
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, len(jobs), idx.Stats().TotalJobs)
}

func TestSearchExactDocumentScoresHundred(t *testing.T) {
	idx := openMemory(t)
	jobs := testJobs()

	_, err := idx.Add(context.Background(), jobs)
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), DocumentText(jobs[1], DefaultMaxDescriptionChars), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chef", hits[0].Job.ID)
	assert.InDelta(t, 100, hits[0].Score, 1e-3)
}

func TestReindexReplacesMetadata(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	_, err := idx.Add(ctx, testJobs())
	require.NoError(t, err)

	changed := testJobs()[0]
	changed.Title = "Senior Go Platform Engineer"
	_, err = idx.Add(ctx, []job.Job{changed})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Stats().TotalJobs)

	hits, err := idx.Search(ctx, "Go platform engineer", 1, Within([]string{"go"}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Senior Go Platform Engineer", hits[0].Job.Title)
}

func TestAddCollapsesDuplicatesToLast(t *testing.T) {
	idx := openMemory(t)

	first := testJobs()[0]
	second := first
	second.Title = "Renamed"

	n, err := idx.Add(context.Background(), []job.Job{first, testJobs()[1], second})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := idx.Search(context.Background(), "anything", 5, Within([]string{"go"}))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Renamed", hits[0].Job.Title)
}

func TestSearchBounds(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	hits, err := idx.Search(ctx, "go", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Add(ctx, testJobs())
	require.NoError(t, err)

	hits, err = idx.Search(ctx, "go", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, "go", 10, Within([]string{"chef", "py", "missing"}))
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestEmbeddingFailureLeavesIndexUnchanged(t *testing.T) {
	idx, err := Open(&Config{}, failingEmbedder{err: errors.New("quota")}, nil)
	require.NoError(t, err)

	_, err = idx.Add(context.Background(), testJobs())
	require.Error(t, err)

	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "embed", ie.Op)
	assert.Equal(t, 0, idx.Stats().TotalJobs)

	_, err = idx.Search(context.Background(), "go", 3)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "search", ie.Op)
}

func TestCancelledAddLeavesIndexUnchanged(t *testing.T) {
	idx := openMemory(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Add(ctx, testJobs())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, idx.Stats().TotalJobs)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := Open(&Config{Path: dir}, NewHashEmbedder(128), nil)
	require.NoError(t, err)
	_, err = idx.Add(ctx, testJobs())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = Open(&Config{Path: dir}, NewHashEmbedder(128), nil)
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, "hash-128", stats.Model)
	assert.Equal(t, dir, stats.PersistLocation)

	hits, err := idx.Search(ctx, "python airflow pipelines", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "py", hits[0].Job.ID)

	require.NoError(t, idx.Clear(ctx))
	assert.Equal(t, 0, idx.Stats().TotalJobs)
	require.NoError(t, idx.Close())

	idx, err = Open(&Config{Path: dir}, NewHashEmbedder(128), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Stats().TotalJobs)
	require.NoError(t, idx.Close())
}

func TestOpenDropsDocumentsFromOtherModel(t *testing.T) {
	dir := t.TempDir()

	idx, err := Open(&Config{Path: dir}, NewHashEmbedder(128), nil)
	require.NoError(t, err)
	_, err = idx.Add(context.Background(), testJobs())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = Open(&Config{Path: dir}, NewHashEmbedder(64), nil)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 0, idx.Stats().TotalJobs)
}

func TestMemoryStats(t *testing.T) {
	idx := openMemory(t)

	stats := idx.Stats()
	assert.Equal(t, memoryLocation, stats.PersistLocation)
	assert.Equal(t, "hash-512", stats.Model)
}

func TestDocumentTextTruncatesDescription(t *testing.T) {
	j := testJobs()[0]
	j.ExperienceRequired = "5+ years"

	text := DocumentText(j, 10)
	assert.Contains(t, text, "Skills: Go, Kubernetes, PostgreSQL")
	assert.Contains(t, text, "Experience: 5+ years")
	assert.Contains(t, text, "Build Go m")
	assert.NotContains(t, text, "microservices")
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	e := NewHashEmbedder(32)

	a, err := e.Embed(context.Background(), []string{"Go and Kubernetes", ""})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"Go and Kubernetes", ""})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, dot(a[0], a[0]), 1e-5)
	assert.Equal(t, 0.0, dot(a[1], a[1]))
}

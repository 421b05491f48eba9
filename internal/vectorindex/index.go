package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/skills"
	"github.com/spigell/jobrag/internal/utils"
)

const (
	DefaultMaxDescriptionChars = 500
	DefaultMaxQueryChars       = 2000
	DefaultTimeout             = 20 * time.Second

	memoryLocation = "memory"
)

// Config is the index section of the application config.
type Config struct {
	// Path enables on-disk persistence. Empty keeps the index in memory.
	Path                string        `mapstructure:"path"`
	MaxDescriptionChars int           `mapstructure:"max-description-chars"`
	MaxQueryChars       int           `mapstructure:"max-query-chars"`
	Timeout             time.Duration `mapstructure:"timeout"`
	// Embedder selects "gemini" or "hash". Empty picks gemini when a key is
	// configured and hash otherwise.
	Embedder       string `mapstructure:"embedder"`
	HashDimensions int    `mapstructure:"hash-dimensions"`
}

// IndexError reports an embedding or storage failure.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

type Hit struct {
	Job   job.Job
	Score float64
}

type Stats struct {
	TotalJobs       int    `json:"total_jobs"`
	Model           string `json:"model"`
	PersistLocation string `json:"persist_location"`
}

type document struct {
	Key       string
	Job       job.Job
	Vector    []float32
	Model     string
	IndexedAt time.Time
}

// Index keeps one vector per job id. Searches share a read lock, writes are serialized.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*document

	store    *badgerhold.Store
	path     string
	embedder Embedder

	maxDescription int
	maxQuery       int
	timeout        time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func Open(cfg *Config, embedder Embedder, log *zap.Logger) (*Index, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	idx := &Index{
		docs:           make(map[string]*document),
		path:           strings.TrimSpace(cfg.Path),
		embedder:       embedder,
		maxDescription: orDefault(cfg.MaxDescriptionChars, DefaultMaxDescriptionChars),
		maxQuery:       orDefault(cfg.MaxQueryChars, DefaultMaxQueryChars),
		timeout:        cfg.Timeout,
		now:            time.Now,
		logger:         logger.WithFields(log, zap.String(logger.FieldModel, embedder.Model())),
	}
	if idx.timeout <= 0 {
		idx.timeout = DefaultTimeout
	}

	if idx.path == "" {
		return idx, nil
	}

	if err := os.MkdirAll(idx.path, 0o755); err != nil {
		return nil, &IndexError{Op: "open", Err: err}
	}

	options := badgerhold.DefaultOptions
	options.Dir = idx.path
	options.ValueDir = idx.path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, &IndexError{Op: "open", Err: err}
	}
	idx.store = store

	if err := idx.load(); err != nil {
		store.Close()
		return nil, err
	}

	return idx, nil
}

// load mirrors persisted documents into memory. Documents embedded by a
// different model are not comparable and get dropped.
func (idx *Index) load() error {
	var docs []document
	if err := idx.store.Find(&docs, nil); err != nil {
		return &IndexError{Op: "load", Err: err}
	}

	model := idx.embedder.Model()
	var stale []string
	for i := range docs {
		d := docs[i]
		if d.Model != model {
			stale = append(stale, d.Key)
			continue
		}
		idx.docs[d.Key] = &d
	}

	if len(stale) > 0 {
		err := idx.store.Badger().Update(func(tx *badger.Txn) error {
			for _, key := range stale {
				if err := idx.store.TxDelete(tx, key, &document{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return &IndexError{Op: "load", Err: err}
		}
		idx.logger.Info("dropped documents from another embedding model", zap.Int("count", len(stale)))
	}

	idx.logger.Info("loaded vector index", zap.String("path", idx.path), zap.Int("documents", len(idx.docs)))
	return nil
}

// DocumentText builds the embeddable text of a job. The description is cut
// to maxDescription runes.
func DocumentText(j job.Job, maxDescription int) string {
	parts := []string{j.Title, j.Company, j.Location}
	if len(j.SkillsRequired) > 0 {
		parts = append(parts, "Skills: "+strings.Join(j.SkillsRequired, ", "))
	}
	if j.ExperienceRequired != "" && j.ExperienceRequired != skills.ExperienceNotSpecified {
		parts = append(parts, "Experience: "+j.ExperienceRequired)
	}
	parts = append(parts, utils.Excerpt(j.Description, maxDescription))

	return strings.Join(parts, "\n")
}

// Add embeds and upserts jobs by id. Either the whole batch becomes visible
// or none of it does. Repeated ids within a batch resolve to the last one.
func (idx *Index) Add(ctx context.Context, jobs []job.Job) (int, error) {
	batch := dedupe(jobs)
	if len(batch) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(batch))
	for _, j := range batch {
		texts = append(texts, DocumentText(j, idx.maxDescription))
	}

	embedCtx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	vectors, err := idx.embedder.Embed(embedCtx, texts)
	if err != nil {
		return 0, &IndexError{Op: "embed", Err: err}
	}
	if len(vectors) != len(batch) {
		return 0, &IndexError{Op: "embed", Err: fmt.Errorf("expected %d vectors, got %d", len(batch), len(vectors))}
	}

	model := idx.embedder.Model()
	now := idx.now().UTC()
	docs := make([]*document, 0, len(batch))
	for i, j := range batch {
		v := append([]float32(nil), vectors[i]...)
		normalize(v)
		docs = append(docs, &document{Key: j.ID, Job: j, Vector: v, Model: model, IndexedAt: now})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, &IndexError{Op: "add", Err: err}
	}

	if idx.store != nil {
		err := idx.store.Badger().Update(func(tx *badger.Txn) error {
			for _, d := range docs {
				if err := idx.store.TxUpsert(tx, d.Key, d); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, &IndexError{Op: "persist", Err: err}
		}
	}

	for _, d := range docs {
		idx.docs[d.Key] = d
	}

	idx.logger.Debug("indexed jobs", zap.Int("count", len(docs)), zap.Int("total", len(idx.docs)))
	return len(docs), nil
}

func dedupe(jobs []job.Job) []job.Job {
	pos := make(map[string]int, len(jobs))
	out := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.ID == "" {
			continue
		}
		if i, ok := pos[j.ID]; ok {
			out[i] = j
			continue
		}
		pos[j.ID] = len(out)
		out = append(out, j)
	}
	return out
}

type SearchOption func(*searchOptions)

type searchOptions struct {
	within map[string]struct{}
}

// Within restricts a search to the given job ids.
func Within(ids []string) SearchOption {
	return func(o *searchOptions) {
		o.within = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			o.within[id] = struct{}{}
		}
	}
}

// Search returns up to topK jobs closest to text. Scores are cosine
// similarity scaled to [0, 100]; ties are broken by job id.
func (idx *Index) Search(ctx context.Context, text string, topK int, opts ...SearchOption) ([]Hit, error) {
	if topK < 1 {
		topK = 1
	}

	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	query, err := idx.embedQuery(ctx, utils.Excerpt(text, idx.maxQuery))
	if err != nil {
		return nil, &IndexError{Op: "search", Err: err}
	}

	idx.mu.RLock()
	hits := make([]Hit, 0, len(idx.docs))
	for id, d := range idx.docs {
		if o.within != nil {
			if _, ok := o.within[id]; !ok {
				continue
			}
		}
		hits = append(hits, Hit{Job: d.Job, Score: similarity(query, d.Vector)})
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Job.ID < hits[j].Job.ID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (idx *Index) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	var (
		v   []float32
		err error
	)
	if q, ok := idx.embedder.(QueryEmbedder); ok {
		v, err = q.EmbedQuery(ctx, text)
	} else {
		var vectors [][]float32
		vectors, err = idx.embedder.Embed(ctx, []string{text})
		if err == nil {
			if len(vectors) != 1 {
				return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
			}
			v = vectors[0]
		}
	}
	if err != nil {
		return nil, err
	}

	v = append([]float32(nil), v...)
	normalize(v)
	return v, nil
}

// similarity maps cosine distance d to 100*(1-d), clamped to [0, 100].
func similarity(a, b []float32) float64 {
	return utils.Clamp(100*dot(a, b), 0, 100)
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	location := idx.path
	if location == "" {
		location = memoryLocation
	}
	return Stats{
		TotalJobs:       len(idx.docs),
		Model:           idx.embedder.Model(),
		PersistLocation: location,
	}
}

// Clear drops every indexed document.
func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.store != nil {
		if err := idx.store.DeleteMatching(&document{}, badgerhold.Where("Key").Ne("")); err != nil {
			return &IndexError{Op: "clear", Err: err}
		}
	}

	idx.docs = make(map[string]*document)
	idx.logger.Info("vector index cleared")
	return nil
}

func (idx *Index) Close() error {
	if idx.store == nil {
		return nil
	}
	return idx.store.Close()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

package explain

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/ai"
	"github.com/spigell/jobrag/internal/job"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const systemPrompt = "You are an expert career advisor. You give concise, evidence-based assessments of how well a candidate fits a job posting."

var sentenceEnd = regexp.MustCompile(`[.!?](\s+|$)`)

// GenerationError reports a failed or unusable model reply.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("generate explanation: %v", e.Err)
	}
	return fmt.Sprintf("generate explanation with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Options bound the prompt inputs and the explanation.
type Options struct {
	ResumeChars      int `mapstructure:"resume-chars"`
	DescriptionChars int `mapstructure:"description-chars"`
	MaxSkills        int `mapstructure:"max-skills"`
	MaxSentences     int `mapstructure:"max-sentences"`
	MaxChars         int `mapstructure:"max-chars"`
}

func DefaultOptions() Options {
	return Options{
		ResumeChars:      1500,
		DescriptionChars: 1000,
		MaxSkills:        10,
		MaxSentences:     4,
		MaxChars:         800,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ResumeChars <= 0 {
		o.ResumeChars = d.ResumeChars
	}
	if o.DescriptionChars <= 0 {
		o.DescriptionChars = d.DescriptionChars
	}
	if o.MaxSkills <= 0 {
		o.MaxSkills = d.MaxSkills
	}
	if o.MaxSentences <= 0 {
		o.MaxSentences = d.MaxSentences
	}
	if o.MaxChars <= 0 {
		o.MaxChars = d.MaxChars
	}
	return o
}

// Explainer writes a short fit explanation for one job. A nil generator
// means every explanation comes from Fallback.
type Explainer struct {
	generator ai.Generator
	opts      Options
	logger    *zap.Logger
}

func New(generator ai.Generator, opts Options, log *zap.Logger) *Explainer {
	return &Explainer{
		generator: generator,
		opts:      opts.withDefaults(),
		logger:    logger.OrNop(log),
	}
}

// Explain returns the model explanation. When generation fails the fallback
// text is returned together with a *GenerationError.
func (e *Explainer) Explain(ctx context.Context, resumeText string, j job.Job, matched, missing []string, score float64) (string, error) {
	if e == nil || e.generator == nil {
		return Fallback(matched, missing, score), nil
	}

	prompt := e.Prompt(resumeText, j, matched, missing, score)

	raw, err := e.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		e.logger.Warn("explanation generation failed", zap.String(logger.FieldJobID, j.ID), zap.Error(err))
		return Fallback(matched, missing, score), &GenerationError{Model: e.generator.Model(), Err: err}
	}

	text := Bound(raw, e.opts.MaxSentences, e.opts.MaxChars)
	if text == "" {
		return Fallback(matched, missing, score), &GenerationError{Model: e.generator.Model(), Err: fmt.Errorf("empty explanation")}
	}

	return text, nil
}

// Prompt renders the bounded prompt for one job.
func (e *Explainer) Prompt(resumeText string, j job.Job, matched, missing []string, score float64) string {
	o := e.opts
	r := strings.NewReplacer(
		"{{TITLE}}", j.Title,
		"{{COMPANY}}", j.Company,
		"{{LOCATION}}", j.Location,
		"{{DESCRIPTION}}", utils.Excerpt(j.Description, o.DescriptionChars),
		"{{RESUME}}", utils.Excerpt(resumeText, o.ResumeChars),
		"{{SCORE}}", strconv.FormatFloat(score, 'f', 1, 64)+"%",
		"{{MATCHED}}", skillList(matched, o.MaxSkills),
		"{{MISSING}}", skillList(missing, o.MaxSkills),
		"{{SENTENCES}}", strconv.Itoa(o.MaxSentences),
	)
	return r.Replace(promptTemplate)
}

func skillList(skills []string, limit int) string {
	if len(skills) == 0 {
		return "None"
	}
	if len(skills) > limit {
		return strings.Join(skills[:limit], ", ") + fmt.Sprintf(" (+%d more)", len(skills)-limit)
	}
	return strings.Join(skills, ", ")
}

// Bound keeps at most maxSentences sentences and maxChars runes of text,
// collapsing whitespace.
func Bound(text string, maxSentences, maxChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	if maxSentences > 0 {
		ends := sentenceEnd.FindAllStringIndex(text, -1)
		if len(ends) > maxSentences {
			text = strings.TrimSpace(text[:ends[maxSentences-1][0]+1])
		}
	}

	if maxChars > 0 && len([]rune(text)) > maxChars {
		cut := string([]rune(text)[:maxChars])
		if i := strings.LastIndexAny(cut, ".!?"); i > len(cut)/2 {
			cut = cut[:i+1]
		}
		text = strings.TrimSpace(cut)
	}

	return text
}

// Fallback describes the fit from the skill analysis alone. It is never empty.
func Fallback(matched, missing []string, score float64) string {
	var b strings.Builder

	switch {
	case score >= 70:
		b.WriteString("Strong match")
	case score >= 50:
		b.WriteString("Moderate match")
	default:
		b.WriteString("Weak match")
	}
	b.WriteString(" based on skill analysis.")

	if len(matched) > 0 {
		fmt.Fprintf(&b, " You have %d required skills: %s.", len(matched), strings.Join(first(matched, 3), ", "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Missing %d required skills: %s.", len(missing), strings.Join(first(missing, 3), ", "))
	}

	switch {
	case score >= 60:
		b.WriteString(" Consider applying and highlighting your matching skills.")
	case len(missing) > 0:
		b.WriteString(" Consider upskilling in missing areas before applying.")
	}

	return b.String()
}

func first(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

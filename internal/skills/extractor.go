package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sensitivity controls whether ambiguous short terms ("go", "ai", "r") count as mentions.
type Sensitivity string

const (
	SensitivityStandard Sensitivity = "standard"
	SensitivityStrict   Sensitivity = "strict"
)

const defaultRequiredLimit = 10

type term struct {
	text  string
	skill int
}

// Extractor maps free text to canonical skill names. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	skills []Skill
	terms  []term
	limit  int
}

type Option func(*options)

type options struct {
	vocabulary  []Skill
	aliases     map[string]string
	sensitivity Sensitivity
	limit       int
}

// WithVocabulary replaces the default vocabulary.
func WithVocabulary(v []Skill) Option {
	return func(o *options) { o.vocabulary = v }
}

// WithAliases adds surface forms for existing canonical names, keyed by alias.
// Aliases that point at unknown skills are ignored.
func WithAliases(aliases map[string]string) Option {
	return func(o *options) { o.aliases = aliases }
}

func WithSensitivity(s Sensitivity) Option {
	return func(o *options) { o.sensitivity = s }
}

// WithLimit caps the number of skills ExtractRequired returns.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

func New(opts ...Option) *Extractor {
	o := &options{
		vocabulary:  DefaultVocabulary,
		sensitivity: SensitivityStandard,
		limit:       defaultRequiredLimit,
	}
	for _, opt := range opts {
		opt(o)
	}

	e := &Extractor{
		skills: o.vocabulary,
		limit:  o.limit,
	}

	byName := make(map[string]int, len(o.vocabulary))
	for i, s := range o.vocabulary {
		byName[strings.ToLower(s.Name)] = i
		for _, t := range s.Terms {
			e.terms = append(e.terms, term{text: strings.ToLower(t), skill: i})
		}
		if o.sensitivity != SensitivityStrict {
			for _, t := range s.Ambiguous {
				e.terms = append(e.terms, term{text: strings.ToLower(t), skill: i})
			}
		}
	}

	for alias, canonical := range o.aliases {
		idx, ok := byName[strings.ToLower(strings.TrimSpace(canonical))]
		alias = strings.ToLower(strings.TrimSpace(alias))
		if !ok || alias == "" {
			continue
		}
		e.terms = append(e.terms, term{text: alias, skill: idx})
	}

	// Longer terms first so "machine learning" is tried before "ml".
	sort.SliceStable(e.terms, func(i, j int) bool {
		return len(e.terms[i].text) > len(e.terms[j].text)
	})

	return e
}

// Extract returns the canonical names of every skill mentioned in text,
// in vocabulary order and without duplicates.
func (e *Extractor) Extract(text string) []string {
	found := e.mentions(text)

	result := make([]string, 0, len(found))
	for i, s := range e.skills {
		if _, ok := found[i]; ok {
			result = append(result, s.Name)
		}
	}
	return result
}

// ExtractRequired is Extract capped at the configured limit. It is used to
// derive the skills a job posting asks for.
func (e *Extractor) ExtractRequired(description string) []string {
	found := e.Extract(description)
	if e.limit > 0 && len(found) > e.limit {
		found = found[:e.limit]
	}
	return found
}

// mentions returns skill index -> byte offset of the first mention in the
// lower-cased text. Longer terms claim their span first, so "js" inside
// "node.js" does not count as a separate mention.
func (e *Extractor) mentions(text string) map[int]int {
	lower := strings.ToLower(text)
	found := make(map[int]int)
	var claimed []span

	for _, t := range e.terms {
		for _, start := range indexWords(lower, t.text) {
			s := span{start, start + len(t.text)}
			if s.overlapsAny(claimed) {
				continue
			}
			claimed = append(claimed, s)
			if prev, ok := found[t.skill]; !ok || start < prev {
				found[t.skill] = start
			}
		}
	}
	return found
}

type span struct{ start, end int }

func (s span) overlapsAny(others []span) bool {
	for _, o := range others {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

// indexWords finds every occurrence of needle in haystack that is not glued
// to neighbouring letters or digits. Punctuation inside the needle ("c++",
// "ci/cd", "node.js") is matched literally.
func indexWords(haystack, needle string) []int {
	if needle == "" {
		return nil
	}

	var positions []int
	offset := 0
	for offset < len(haystack) {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(needle)

		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end, needle) {
			positions = append(positions, start)
		}
		offset = start + 1
	}
	return positions
}

func boundaryBefore(s string, start int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:start])
	return !isWordRune(r)
}

func boundaryAfter(s string, end int, needle string) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	if isWordRune(r) {
		return false
	}
	// "c" must not match the head of "c++" or "c#".
	last := needle[len(needle)-1]
	if isWordByte(last) && (r == '+' || r == '#') {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

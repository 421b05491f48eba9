package skills

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type Proficiency string

const (
	ProficiencyNone         Proficiency = "none"
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyProficient   Proficiency = "proficient"
	ProficiencyExpert       Proficiency = "expert"
)

const contextWindow = 50

// Checked in this order; the first level with a keyword in the context wins.
var proficiencyKeywords = []struct {
	level    Proficiency
	keywords []string
}{
	{ProficiencyExpert, []string{"expert", "advanced", "senior", "lead", "architect", "mastery"}},
	{ProficiencyProficient, []string{"proficient", "strong", "skilled", "experienced"}},
	{ProficiencyIntermediate, []string{"intermediate", "working knowledge", "familiar with"}},
	{ProficiencyBeginner, []string{"basic", "beginner", "learning", "exposure to"}},
}

var yearsPattern = regexp.MustCompile(`(\d+)\+?\s*(?:-\s*\d+\s*)?years?`)

func (p Proficiency) rank() int {
	switch p {
	case ProficiencyBeginner:
		return 1
	case ProficiencyProficient:
		return 3
	case ProficiencyExpert:
		return 4
	case ProficiencyNone:
		return 0
	default:
		return 2
	}
}

// Detail is a skill mention with the proficiency and years implied by the
// text around it.
type Detail struct {
	Skill       string      `json:"skill"`
	Category    Category    `json:"category"`
	Proficiency Proficiency `json:"proficiency"`
	Years       int         `json:"years_experience"`
	Context     string      `json:"context"`
}

// ExtractDetailed returns one Detail per skill found in text, in vocabulary order.
func (e *Extractor) ExtractDetailed(text string) []Detail {
	lower := strings.ToLower(text)
	found := e.mentions(text)

	details := make([]Detail, 0, len(found))
	for i, s := range e.skills {
		pos, ok := found[i]
		if !ok {
			continue
		}
		ctx := window(lower, pos, contextWindow)
		details = append(details, Detail{
			Skill:       s.Name,
			Category:    s.Category,
			Proficiency: detectProficiency(ctx),
			Years:       detectYears(ctx),
			Context:     strings.TrimSpace(ctx),
		})
	}
	return details
}

func window(s string, pos, n int) string {
	start := pos - n
	if start < 0 {
		start = 0
	}
	end := pos + n
	if end > len(s) {
		end = len(s)
	}
	// Avoid cutting a multi-byte rune.
	for start > 0 && !isRuneStart(s[start]) {
		start--
	}
	for end < len(s) && !isRuneStart(s[end]) {
		end++
	}
	return s[start:end]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func detectProficiency(ctx string) Proficiency {
	for _, p := range proficiencyKeywords {
		for _, kw := range p.keywords {
			if strings.Contains(ctx, kw) {
				return p.level
			}
		}
	}
	return ProficiencyIntermediate
}

func detectYears(ctx string) int {
	m := yearsPattern.FindStringSubmatch(ctx)
	if m == nil {
		return 0
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return years
}

type MatchStatus string

const (
	StatusQualified  MatchStatus = "qualified"
	StatusCloseMatch MatchStatus = "close_match"
)

type GapSeverity string

const (
	SeverityModerate GapSeverity = "moderate"
	SeverityCritical GapSeverity = "critical"
)

type SkillMatch struct {
	Skill         string      `json:"skill"`
	ResumeLevel   Proficiency `json:"resume_level"`
	RequiredLevel Proficiency `json:"required_level"`
	Status        MatchStatus `json:"status"`
}

type SkillGap struct {
	Skill         string      `json:"skill"`
	ResumeLevel   Proficiency `json:"resume_level"`
	RequiredLevel Proficiency `json:"required_level"`
	Severity      GapSeverity `json:"gap_severity"`
}

type Comparison struct {
	Matched []SkillMatch `json:"matched_skills"`
	Gaps    []SkillGap   `json:"skill_gaps"`
	Bonus   []Detail     `json:"bonus_skills"`
	Overall float64      `json:"overall_match"`
}

// Compare grades resume skills against job skills. A resume one level below
// the requirement is a close match; further below is a moderate gap; absent
// is critical. Overall is matched / (matched + gaps) * 100.
func Compare(resume, job []Detail) Comparison {
	resumeBySkill := make(map[string]Detail, len(resume))
	for _, d := range resume {
		resumeBySkill[d.Skill] = d
	}
	jobSkills := make(map[string]struct{}, len(job))

	var cmp Comparison
	for _, req := range job {
		jobSkills[req.Skill] = struct{}{}

		have, ok := resumeBySkill[req.Skill]
		if !ok {
			cmp.Gaps = append(cmp.Gaps, SkillGap{
				Skill:         req.Skill,
				ResumeLevel:   ProficiencyNone,
				RequiredLevel: req.Proficiency,
				Severity:      SeverityCritical,
			})
			continue
		}

		switch diff := have.Proficiency.rank() - req.Proficiency.rank(); {
		case diff >= 0:
			cmp.Matched = append(cmp.Matched, SkillMatch{req.Skill, have.Proficiency, req.Proficiency, StatusQualified})
		case diff == -1:
			cmp.Matched = append(cmp.Matched, SkillMatch{req.Skill, have.Proficiency, req.Proficiency, StatusCloseMatch})
		default:
			cmp.Gaps = append(cmp.Gaps, SkillGap{req.Skill, have.Proficiency, req.Proficiency, SeverityModerate})
		}
	}

	for _, d := range resume {
		if _, ok := jobSkills[d.Skill]; !ok {
			cmp.Bonus = append(cmp.Bonus, d)
		}
	}

	if total := len(cmp.Matched) + len(cmp.Gaps); total > 0 {
		cmp.Overall = float64(len(cmp.Matched)) / float64(total) * 100
	}

	sort.SliceStable(cmp.Gaps, func(i, j int) bool {
		return cmp.Gaps[i].Severity == SeverityCritical && cmp.Gaps[j].Severity != SeverityCritical
	})

	return cmp
}

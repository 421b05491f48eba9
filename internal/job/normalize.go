package job

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/spigell/jobrag/internal/skills"
)

// ErrEmptyRecord is returned for raw records with neither a title nor a description.
var ErrEmptyRecord = errors.New("record has no title and no description")

// Raw is a provider record reduced to plain fields before normalization.
type Raw struct {
	ID             string
	Title          string
	Company        string
	Location       string
	Description    string
	EmploymentType string
	SalaryRange    string
	ApplyLink      string
	PostedAt       string
	// SkillsHint carries skills the provider lists explicitly. They are
	// merged ahead of skills found in the description.
	SkillsHint []string
}

// Normalizer turns Raw records into Jobs with one shared skill extractor.
type Normalizer struct {
	Source    string
	Extractor *skills.Extractor
	// Limit caps SkillsRequired. Zero means the extractor's limit only.
	Limit int
	Now   func() time.Time
}

func (n *Normalizer) Normalize(raw Raw) (Job, error) {
	title := strings.TrimSpace(raw.Title)
	description := PlainText(raw.Description)
	if title == "" && description == "" {
		return Job{}, ErrEmptyRecord
	}

	j := Job{
		Title:          orDefault(title, DefaultTitle),
		Company:        orDefault(raw.Company, DefaultCompany),
		Location:       orDefault(raw.Location, DefaultLocation),
		Description:    orDefault(description, DefaultDescription),
		EmploymentType: orDefault(raw.EmploymentType, DefaultEmploymentType),
		SalaryRange:    orDefault(raw.SalaryRange, DefaultSalary),
		ApplyLink:      strings.TrimSpace(raw.ApplyLink),
		PostedAt:       orDefault(raw.PostedAt, DefaultPostedAt),
		Source:         n.Source,
	}

	j.ID = strings.TrimSpace(raw.ID)
	if j.ID == "" {
		j.ID = ID(j.Title, j.Company, j.Location)
	}

	extractor := n.Extractor
	if extractor == nil {
		extractor = skills.New()
	}
	j.SkillsRequired = mergeSkills(raw.SkillsHint, extractor.ExtractRequired(description), n.Limit)
	j.ExperienceRequired = skills.ExtractExperience(description)

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	j.FetchedAt = now().UTC()

	return j, nil
}

// PlainText strips markup from provider descriptions and collapses whitespace.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		// Block elements would otherwise glue words together.
		replacer := strings.NewReplacer("<br>", "\n<br>", "<br/>", "\n<br/>", "<br />", "\n<br />", "</p>", "</p>\n", "</li>", "</li>\n")
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(replacer.Replace(s))); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func mergeSkills(hint, extracted []string, limit int) []string {
	seen := make(map[string]struct{}, len(hint)+len(extracted))
	out := make([]string, 0, len(hint)+len(extracted))
	for _, list := range [][]string{hint, extracted} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

package headhunter

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/jobrag/internal/job"
)

const publishedLayout = "2006-01-02T15:04:05-0700"

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Salary struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
	} `json:"salary,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Employment   struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employment,omitempty"`
	Description string `json:"description,omitempty"`
	KeySkills   []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Snipet struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

// toRaw maps a vacancy onto the provider-neutral record. Search results only
// carry snippets, so they stand in for the description when it is absent.
func (va *Vacancy) toRaw(now time.Time) job.Raw {
	description := va.Description
	if strings.TrimSpace(description) == "" {
		description = strings.TrimSpace(va.Snipet.Requirement + "\n" + va.Snipet.Responsibility)
	}

	location := va.Area.Name
	if va.Schedule.ID == "remote" {
		location = strings.TrimSpace(location + " (remote)")
	}

	hints := make([]string, 0, len(va.KeySkills))
	for _, s := range va.KeySkills {
		hints = append(hints, s.Name)
	}

	return job.Raw{
		ID:             va.ID,
		Title:          va.Name,
		Company:        va.Employer.Name,
		Location:       location,
		Description:    description,
		EmploymentType: va.Employment.Name,
		SalaryRange:    va.salaryRange(),
		ApplyLink:      va.AlternateURL,
		PostedAt:       relativeAge(va.PublishedAt, now),
		SkillsHint:     hints,
	}
}

func (va *Vacancy) salaryRange() string {
	s := va.Salary
	switch {
	case s.From > 0 && s.To > 0:
		return strings.TrimSpace(fmt.Sprintf("%d-%d %s", s.From, s.To, s.Currency))
	case s.From > 0:
		return strings.TrimSpace(fmt.Sprintf("from %d %s", s.From, s.Currency))
	case s.To > 0:
		return strings.TrimSpace(fmt.Sprintf("up to %d %s", s.To, s.Currency))
	default:
		return ""
	}
}

// relativeAge renders a publication timestamp the way search providers
// phrase it ("3 days ago") so recency filtering treats every source alike.
func relativeAge(published string, now time.Time) string {
	t, err := time.Parse(publishedLayout, published)
	if err != nil {
		return ""
	}

	age := now.Sub(t)
	switch {
	case age < time.Hour:
		return "just now"
	case age < 24*time.Hour:
		return plural(int(age.Hours()), "hour")
	case age < 7*24*time.Hour:
		return plural(int(age.Hours()/24), "day")
	case age < 30*24*time.Hour:
		return plural(int(age.Hours()/(24*7)), "week")
	default:
		return plural(int(age.Hours()/(24*30)), "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

package job

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTitle          = "Unknown Title"
	DefaultCompany        = "Unknown Company"
	DefaultLocation       = "Unknown Location"
	DefaultDescription    = "No description available"
	DefaultEmploymentType = "Full-time"
	DefaultSalary         = "Not specified"
	DefaultPostedAt       = "Recently"
)

// idNamespace scopes name-based job ids.
var idNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e3a-9c41-2d7f0b8e6a15")

// Job is the normalized posting shared by every source, cache, index and matcher.
type Job struct {
	ID                 string    `json:"job_id"`
	Title              string    `json:"title"`
	Company            string    `json:"company"`
	Location           string    `json:"location"`
	Description        string    `json:"description"`
	SkillsRequired     []string  `json:"skills_required"`
	ExperienceRequired string    `json:"experience_required"`
	EmploymentType     string    `json:"employment_type"`
	SalaryRange        string    `json:"salary_range"`
	ApplyLink          string    `json:"apply_link"`
	PostedAt           string    `json:"posted_at"`
	Source             string    `json:"source"`
	FetchedAt          time.Time `json:"fetched_at"`
}

// ID derives a stable identifier from the title, company and location.
// Case and surrounding whitespace do not affect the result.
func ID(title, company, location string) string {
	key := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(company)),
		strings.ToLower(strings.TrimSpace(location)),
	}, "\x1f")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

type Jobs struct {
	Items []*Job
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, item := range j.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, item := range j.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// FromSlice wraps jobs without copying the structs.
func FromSlice(items []Job) *Jobs {
	out := &Jobs{Items: make([]*Job, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, &items[i])
	}
	return out
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups a short summary of every job under its company.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range j.Items {
		key := fmt.Sprintf("%s (%s)", item.Company, item.Source)
		report[key] = append(report[key], map[string]string{
			"title":      item.Title,
			"location":   item.Location,
			"salary":     item.SalaryRange,
			"experience": item.ExperienceRequired,
			"skills":     strings.Join(item.SkillsRequired, ", "),
			"apply_link": item.ApplyLink,
		})
	}
	return report
}

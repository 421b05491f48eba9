package skills

import (
	"regexp"
	"strings"
)

const (
	ExperienceNotSpecified = "Not specified"
	ExperienceEntry        = "0-2 years"
	ExperienceSenior       = "5+ years"
)

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\+?\s*(?:to|-)\s*(\d+)?\s*years?`),
	regexp.MustCompile(`(\d+)\+\s*years?`),
	regexp.MustCompile(`minimum\s+(\d+)\s*years?`),
	regexp.MustCompile(`at least\s+(\d+)\s*years?`),
}

// ExtractExperience derives a short experience requirement from a job
// description, e.g. "3+ years". Descriptions without a year count fall back
// to seniority keywords.
func ExtractExperience(description string) string {
	lower := strings.ToLower(description)

	for _, re := range experiencePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1] + "+ years"
		}
	}

	if strings.Contains(lower, "entry level") || strings.Contains(lower, "junior") {
		return ExperienceEntry
	}
	if strings.Contains(lower, "senior") {
		return ExperienceSenior
	}

	return ExperienceNotSpecified
}

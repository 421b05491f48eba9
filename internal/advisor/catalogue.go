package advisor

import (
	"net/url"
	"strings"
	"unicode"
)

type Resource struct {
	Skill      string `json:"skill"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	Duration   string `json:"duration"`
	Difficulty string `json:"difficulty"`
}

type Stage struct {
	Role             string   `json:"role"`
	Timeline         string   `json:"timeline"`
	KeySkills        []string `json:"key_skills_needed"`
	Responsibilities []string `json:"typical_responsibilities"`
}

// catalogue is checked in order; the first key contained in the skill wins.
var catalogue = []struct {
	key      string
	resource Resource
}{
	{"python", Resource{Title: "Python for Everybody", Type: "Course", URL: "https://www.coursera.org/specializations/python", Duration: "4 months", Difficulty: "Beginner"}},
	{"javascript", Resource{Title: "JavaScript - The Complete Guide", Type: "Course", URL: "https://www.udemy.com/course/javascript-the-complete-guide-2020-beginner-advanced/", Duration: "50 hours", Difficulty: "Intermediate"}},
	{"java", Resource{Title: "Java Programming Masterclass", Type: "Course", URL: "https://www.udemy.com/course/java-the-complete-java-developer-course/", Duration: "80 hours", Difficulty: "Beginner"}},
	{"machine learning", Resource{Title: "Machine Learning by Andrew Ng", Type: "Course", URL: "https://www.coursera.org/learn/machine-learning", Duration: "11 weeks", Difficulty: "Intermediate"}},
	{"docker", Resource{Title: "Docker for Developers", Type: "Course", URL: "https://www.udemy.com/course/docker-kubernetes/", Duration: "6 hours", Difficulty: "Beginner"}},
	{"kubernetes", Resource{Title: "Docker and Kubernetes: The Complete Guide", Type: "Course", URL: "https://www.udemy.com/course/docker-and-kubernetes-the-complete-guide/", Duration: "22 hours", Difficulty: "Intermediate"}},
	{"react", Resource{Title: "React - The Complete Guide", Type: "Course", URL: "https://www.udemy.com/course/react-the-complete-guide/", Duration: "40 hours", Difficulty: "Intermediate"}},
	{"system design", Resource{Title: "System Design Interview Course", Type: "Course", URL: "https://www.educative.io/courses/grokking-the-system-design-interview", Duration: "8 weeks", Difficulty: "Advanced"}},
	{"cloud", Resource{Title: "AWS Certified Solutions Architect", Type: "Course", URL: "https://www.udemy.com/course/aws-certified-solutions-architect-associate/", Duration: "25 hours", Difficulty: "Intermediate"}},
}

// ResourceFor returns a course for skill, or a generic search when the
// catalogue has nothing closer.
func ResourceFor(skill string) Resource {
	lower := strings.ToLower(strings.TrimSpace(skill))
	for _, entry := range catalogue {
		if strings.Contains(lower, entry.key) {
			r := entry.resource
			r.Skill = skill
			return r
		}
	}

	return Resource{
		Skill:      skill,
		Title:      "Learn " + titleCase(skill),
		Type:       "Course",
		URL:        "https://www.coursera.org/search?query=" + url.QueryEscape(lower),
		Duration:   "Varies",
		Difficulty: "Intermediate",
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var (
	juniorTrack = []Stage{
		{
			Role:             "Junior Developer",
			Timeline:         "Current - 2 years",
			KeySkills:        []string{"Basic programming", "Version control", "Testing"},
			Responsibilities: []string{"Write code under supervision", "Fix bugs", "Learn best practices"},
		},
		{
			Role:             "Mid-level Developer",
			Timeline:         "2-4 years",
			KeySkills:        []string{"System design basics", "Code review", "Mentoring"},
			Responsibilities: []string{"Own features end-to-end", "Code reviews", "Technical decisions"},
		},
		{
			Role:             "Senior Developer",
			Timeline:         "5+ years",
			KeySkills:        []string{"Architecture", "Leadership", "Cross-team collaboration"},
			Responsibilities: []string{"Design systems", "Mentor team", "Strategic planning"},
		},
	}

	defaultTrack = []Stage{
		{
			Role:             "Entry Level",
			Timeline:         "0-2 years",
			KeySkills:        []string{"Core technical skills", "Communication", "Problem-solving"},
			Responsibilities: []string{"Learn and contribute", "Complete assigned tasks", "Build foundation"},
		},
		{
			Role:             "Intermediate Level",
			Timeline:         "2-5 years",
			KeySkills:        []string{"Advanced technical skills", "Project ownership", "Collaboration"},
			Responsibilities: []string{"Lead small projects", "Mentor juniors", "Drive initiatives"},
		},
		{
			Role:             "Senior Level",
			Timeline:         "5+ years",
			KeySkills:        []string{"Expertise", "Strategy", "Leadership"},
			Responsibilities: []string{"Define architecture", "Guide team direction", "Business impact"},
		},
	}
)

// Progression picks the junior track when the current role says so.
func Progression(currentRole string) []Stage {
	track := defaultTrack
	if strings.Contains(strings.ToLower(currentRole), "junior") {
		track = juniorTrack
	}
	out := make([]Stage, len(track))
	copy(out, track)
	return out
}

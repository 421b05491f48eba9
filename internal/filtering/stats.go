package filtering

import (
	"github.com/spigell/jobrag/internal/job"
)

// Summary describes a job list the way a user would scan it before filtering.
type Summary struct {
	Total            int            `json:"total"`
	ExperienceLevels map[string]int `json:"experience_levels"`
	Remote           int            `json:"remote"`
	Quality          QualityBuckets `json:"quality"`
}

type QualityBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Stats summarizes experience levels, remote share and quality distribution.
func Stats(jobs []job.Job, w Weights) Summary {
	s := Summary{
		Total:            len(jobs),
		ExperienceLevels: map[string]int{LevelEntry: 0, LevelMid: 0, LevelSenior: 0},
	}

	for _, j := range jobs {
		s.ExperienceLevels[ExperienceLevel(j)]++
		if IsRemote(j) {
			s.Remote++
		}

		switch q := QualityScore(j, w); {
		case q >= 7:
			s.Quality.High++
		case q >= 5:
			s.Quality.Medium++
		default:
			s.Quality.Low++
		}
	}

	return s
}

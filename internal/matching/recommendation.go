package matching

import (
	"fmt"
)

type Recommendation int

const (
	NotRecommended Recommendation = iota
	Consider
	Recommended
	HighlyRecommended
)

var recommendationNames = map[Recommendation]string{
	NotRecommended:    "NotRecommended",
	Consider:          "Consider",
	Recommended:       "Recommended",
	HighlyRecommended: "HighlyRecommended",
}

var recommendationAdvice = map[Recommendation]string{
	NotRecommended:    "Significant skill gaps",
	Consider:          "Requires upskilling in key areas",
	Recommended:       "Good fit with minor gaps",
	HighlyRecommended: "Strong fit, apply immediately",
}

func (r Recommendation) String() string {
	if name, ok := recommendationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Recommendation(%d)", int(r))
}

// Advice is the human readable guidance for the label.
func (r Recommendation) Advice() string {
	return recommendationAdvice[r]
}

func (r Recommendation) MarshalText() ([]byte, error) {
	if _, ok := recommendationNames[r]; !ok {
		return nil, fmt.Errorf("unknown recommendation %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Recommendation) UnmarshalText(text []byte) error {
	for value, name := range recommendationNames {
		if name == string(text) {
			*r = value
			return nil
		}
	}
	return fmt.Errorf("unknown recommendation %q", string(text))
}

// Thresholds are inclusive lower bounds of the recommendation labels.
type Thresholds struct {
	HighlyRecommended float64 `mapstructure:"highly-recommended"`
	Recommended       float64 `mapstructure:"recommended"`
	Consider          float64 `mapstructure:"consider"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{HighlyRecommended: 75, Recommended: 60, Consider: 45}
}

// Recommend maps a match score to its label.
func (t Thresholds) Recommend(score float64) Recommendation {
	switch {
	case score >= t.HighlyRecommended:
		return HighlyRecommended
	case score >= t.Recommended:
		return Recommended
	case score >= t.Consider:
		return Consider
	default:
		return NotRecommended
	}
}

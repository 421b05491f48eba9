package advisor

import (
	"regexp"
	"strings"

	"github.com/spigell/jobrag/internal/ai"
)

const (
	defaultAssessment = "Ready to advance your career with focused skill development."
	defaultInsights   = "Strong market demand for technical roles. Focus on building practical skills."
)

var (
	defaultActions = []string{
		"Build 2-3 portfolio projects",
		"Practice coding daily",
		"Network with professionals",
		"Apply to 5-10 relevant positions weekly",
	}

	listMarker      = regexp.MustCompile(`^([-•*]|\d+[.)])\s*`)
	numberedHeading = regexp.MustCompile(`^\d\.`)
)

type section int

const (
	sectionNone section = iota
	sectionAssessment
	sectionSkills
	sectionMarket
	sectionActions
)

// parseAdvice reads a JSON reply and falls back to the markdown layout
// models tend to produce when they ignore the requested format.
func parseAdvice(raw string, current []string) *Advice {
	var (
		assessment, insights string
		gaps, actions        []string
	)

	if data, err := ai.DecodeObject(raw); err == nil {
		assessment = ai.CoerceString(data["assessment"])
		insights = ai.CoerceString(data["market_insights"])
		gaps = gapNames(data["skill_gaps"])
		actions = ai.CoerceStrings(data["action_plan"])
	} else {
		assessment, gaps, insights, actions = parseSections(raw)
	}

	advice := &Advice{
		Assessment:     orDefault(assessment, defaultAssessment),
		MarketInsights: orDefault(insights, defaultInsights),
	}

	for _, name := range gaps {
		if len(advice.SkillGaps) == maxSkillGaps {
			break
		}
		advice.SkillGaps = append(advice.SkillGaps, newGap(name, current))
	}
	if len(advice.SkillGaps) == 0 {
		advice.SkillGaps = []SkillGap{{Skill: "Advanced programming", Importance: "Critical", CurrentLevel: "Beginner", TargetLevel: "Intermediate"}}
	}

	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	advice.ActionPlan = actions
	if len(advice.ActionPlan) == 0 {
		advice.ActionPlan = append([]string(nil), defaultActions...)
	}

	return advice
}

// gapNames accepts either plain strings or objects with a "skill" key.
func gapNames(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return ai.CoerceStrings(v)
	}
	var out []string
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			item = obj["skill"]
		}
		if s := skillName(ai.CoerceString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func newGap(name string, current []string) SkillGap {
	level := "None"
	lower := strings.ToLower(name)
	for _, s := range current {
		if strings.Contains(lower, strings.ToLower(s)) {
			level = "Beginner"
			break
		}
	}
	return SkillGap{Skill: name, Importance: "Critical", CurrentLevel: level, TargetLevel: "Intermediate"}
}

// skillName keeps the part before an explanation ("Docker: containers").
func skillName(s string) string {
	if i := strings.IndexAny(s, ":–"); i > 0 {
		s = s[:i]
	}
	if i := strings.Index(s, " - "); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(s, "*"))
}

func parseSections(raw string) (assessment string, gaps []string, insights string, actions []string) {
	var (
		current        section
		assess, market []string
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if s, ok := heading(line); ok {
			current = s
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") {
			continue
		}

		item := listMarker.MatchString(line)
		text := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))

		switch current {
		case sectionAssessment:
			if !item && len(text) > 10 {
				assess = append(assess, text)
			}
		case sectionMarket:
			if !item && len(text) > 10 {
				market = append(market, text)
			}
		case sectionSkills:
			if item && text != "" && len(text) < 150 {
				if name := skillName(text); name != "" {
					gaps = append(gaps, name)
				}
			}
		case sectionActions:
			if item && len(text) > 5 {
				actions = append(actions, strings.Trim(text, "*"))
			}
		}
	}

	return strings.Join(assess, " "), gaps, strings.Join(market, " "), actions
}

func heading(line string) (section, bool) {
	lower := strings.ToLower(line)
	isHeading := strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") || numberedHeading.MatchString(line)
	if !isHeading && len(line) > 40 {
		return sectionNone, false
	}

	switch {
	case strings.Contains(lower, "current assessment"):
		return sectionAssessment, true
	case strings.Contains(lower, "skill gap"), strings.Contains(lower, "critical skill"):
		return sectionSkills, true
	case strings.Contains(lower, "market insight"):
		return sectionMarket, true
	case strings.Contains(lower, "action plan"):
		return sectionActions, true
	}
	return sectionNone, false
}

package advisor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrag/internal/ai"
	"github.com/spigell/jobrag/internal/logger"
	"github.com/spigell/jobrag/internal/matching"
	"github.com/spigell/jobrag/internal/skills"
	"github.com/spigell/jobrag/internal/utils"
)

const (
	resumeExcerptChars = 1500
	maxSkillGaps       = 5
	maxActions         = 6
	maxResources       = 10
	gapsForResources   = 5
	topMatches         = 3

	systemPrompt = "You are an expert career advisor providing personalized, encouraging but realistic guidance."
)

type Request struct {
	ResumeText  string
	CurrentRole string
	TargetRole  string
	Matches     []matching.Match
}

type SkillGap struct {
	Skill        string `json:"skill"`
	Importance   string `json:"importance"`
	CurrentLevel string `json:"current_level"`
	TargetLevel  string `json:"target_level"`
}

type Advice struct {
	Assessment     string     `json:"current_assessment"`
	SkillGaps      []SkillGap `json:"skill_gaps"`
	LearningPath   []Resource `json:"learning_path"`
	Progression    []Stage    `json:"career_progression"`
	MarketInsights string     `json:"market_insights"`
	ActionPlan     []string   `json:"action_plan"`
	// Degraded is set when the advice was assembled without the model.
	Degraded bool `json:"degraded"`
}

type Advisor struct {
	generator ai.Generator
	extractor *skills.Extractor
	logger    *zap.Logger
}

func New(generator ai.Generator, extractor *skills.Extractor, log *zap.Logger) *Advisor {
	if extractor == nil {
		extractor = skills.New()
	}
	return &Advisor{generator: generator, extractor: extractor, logger: logger.OrNop(log)}
}

// Advise assesses the resume against the target role. Model failures
// degrade to deterministic advice; only an empty resume is an error.
func (a *Advisor) Advise(ctx context.Context, req Request) (*Advice, error) {
	if strings.TrimSpace(req.ResumeText) == "" {
		return nil, fmt.Errorf("resume text is required")
	}

	current := a.extractor.Extract(req.ResumeText)

	var advice *Advice
	if a.generator == nil {
		advice = fallbackAdvice(current, req.TargetRole)
	} else {
		raw, err := a.generator.Generate(ctx, systemPrompt, buildPrompt(req, current))
		if err != nil {
			a.logger.Warn("career advice generation failed", zap.Error(err))
			advice = fallbackAdvice(current, req.TargetRole)
		} else {
			a.logger.Debug("career advice response", zap.String("response_preview", utils.TruncateForLog(raw, 200)))
			advice = parseAdvice(raw, current)
		}
	}

	advice.LearningPath = learningPath(advice.SkillGaps)
	advice.Progression = Progression(req.CurrentRole)
	return advice, nil
}

func buildPrompt(req Request, current []string) string {
	currentRole := orDefault(req.CurrentRole, "Entry-level / Career change")
	targetRole := orDefault(req.TargetRole, "Software Engineer")

	skillsLine := "Limited technical skills"
	if len(current) > 0 {
		skillsLine = strings.Join(current, ", ")
	}

	var matches strings.Builder
	for i, m := range req.Matches {
		if i == topMatches {
			break
		}
		fmt.Fprintf(&matches, "- %s at %s (Match: %.1f%%)\n", m.Title, m.Company, m.MatchScore)
	}
	if matches.Len() == 0 {
		matches.WriteString("No recent job matches\n")
	}

	return fmt.Sprintf(`Candidate profile:
Resume summary: %s
Current role: %s
Target role: %s
Current skills: %s

Recent job matches:
%s
Provide career advice as a JSON object with these keys:
- "assessment": 2-3 sentences on current skill level, market readiness and key strengths.
- "skill_gaps": 3-5 of the most important missing skills for the target role, most critical first.
- "market_insights": 2-3 sentences on demand, salary expectations and trends for the target role.
- "action_plan": 4-6 specific, measurable steps covering weeks 1-2, months 1-2 and months 3-6.

Reply with the JSON object only.`,
		utils.Excerpt(req.ResumeText, resumeExcerptChars), currentRole, targetRole, skillsLine, matches.String())
}

func learningPath(gaps []SkillGap) []Resource {
	var out []Resource
	for i, gap := range gaps {
		if i == gapsForResources || len(out) == maxResources {
			break
		}
		out = append(out, ResourceFor(gap.Skill))
	}
	return out
}

func fallbackAdvice(current []string, targetRole string) *Advice {
	return &Advice{
		Assessment: fmt.Sprintf("You have %d relevant technical skills. Focus on building a strong portfolio and gaining practical experience.", len(current)),
		SkillGaps: []SkillGap{
			{Skill: "Advanced programming", Importance: "Critical", CurrentLevel: "Beginner", TargetLevel: "Intermediate"},
			{Skill: "System design", Importance: "Important", CurrentLevel: "None", TargetLevel: "Beginner"},
			{Skill: "Cloud platforms", Importance: "Important", CurrentLevel: "None", TargetLevel: "Beginner"},
		},
		MarketInsights: fmt.Sprintf("The %s market is competitive. Focus on building projects and networking.", orDefault(targetRole, "software engineering")),
		ActionPlan: []string{
			"Complete 2-3 personal projects demonstrating key skills",
			"Contribute to open source projects",
			"Build a professional online presence (GitHub, LinkedIn)",
			"Practice coding interviews daily",
			"Network with professionals in your target role",
		},
		Degraded: true,
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

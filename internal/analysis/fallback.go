package analysis

import "fmt"

const (
	fallbackSummary    = "No AI analysis available. This is a fallback response."
	fallbackMotivation = "Keep coding and learning! (Fallback response)"
	unknownSkillLevel  = "unknown"
	defaultLanguage    = "JavaScript"
)

// FallbackDevAnalysis returns the developer-profile response used when the
// model output is unavailable or unusable.
func FallbackDevAnalysis() DevAnalysisResponse {
	return DevAnalysisResponse{
		Summary:           fallbackSummary,
		SkillLevel:        unknownSkillLevel,
		TopLanguages:      []string{},
		Strengths:         []string{},
		ImprovementAreas:  []string{},
		RecommendedGoals:  []RecommendedGoal{},
		LearningPath:      []string{},
		EstimatedHours:    0,
		MotivationMessage: fallbackMotivation,
		AISuccess:         false,
		Source:            SourceFallback,
	}
}

// FallbackRepoAnalysis returns the repository response used when the model
// output is unavailable or unusable.
func FallbackRepoAnalysis() RepoAnalysisResponse {
	return RepoAnalysisResponse{
		Summary:          fallbackSummary,
		Strengths:        []string{},
		ImprovementAreas: []string{},
		Recommendations: []string{
			"Improve documentation",
			"Increase commit frequency",
		},
		AISuccess: false,
		Source:    SourceFallback,
	}
}

// FallbackGoalAnalysis returns generic study advice for the goal in req.
func FallbackGoalAnalysis(req GoalAnalysisRequest) LearningAnalysisResponse {
	return LearningAnalysisResponse{
		Suggestions: []string{
			fmt.Sprintf("Break down %s into smaller daily tasks", req.GoalTitle),
			fmt.Sprintf("Practice %s concepts for 30 minutes daily", req.Category),
			"Join online communities for peer support",
		},
		NextSteps: []string{
			"Review current progress and identify gaps",
			"Set specific weekly milestones",
			"Find practice projects",
		},
		EstimatedTime: "2-4 weeks with consistent practice",
		Resources: []string{
			"Official documentation",
			"YouTube tutorials",
			"Practice coding platforms",
		},
		AISuccess: false,
		Source:    SourceFallback,
	}
}

// FallbackGitHubInsights derives coarse insights from the raw counts in req.
func FallbackGitHubInsights(req GitHubInsightsRequest) GitHubInsightsResponse {
	var primary []string
	for _, l := range first(sortedLanguages(req.RepoLanguages), 2) {
		primary = append(primary, l.name)
	}
	if len(primary) == 0 {
		primary = []string{defaultLanguage}
	}
	lead := primary[0]

	strengths := make([]string, 0, len(primary))
	for _, lang := range primary {
		strengths = append(strengths, lang+" development")
	}

	level := "beginner"
	if len(req.CommitMessages) > 50 {
		level = "intermediate"
	}
	frequency := "medium"
	if len(req.CommitMessages) > 100 {
		frequency = "high"
	}
	variety := "focused"
	if len(req.RepoLanguages) > 3 {
		variety = "diverse"
	}

	return GitHubInsightsResponse{
		SkillAnalysis: SkillAnalysis{
			PrimaryLanguages: primary,
			ExperienceLevel:  level,
			Strengths:        strengths,
			AreasToImprove:   []string{"Code documentation", "Testing practices"},
		},
		LearningSuggestions: []string{
			fmt.Sprintf("Deepen your %s skills", lead),
			"Improve commit message quality",
			"Add more comprehensive READMEs to projects",
		},
		ProjectInsights: []string{
			fmt.Sprintf("You work with %d different technologies", len(req.RepoLanguages)),
			fmt.Sprintf("You have %d repositories", len(req.RepoNames)),
			"Consider focusing on fewer technologies for deeper expertise",
		},
		RecommendedGoals: []InsightGoal{
			{
				Title:       "Master " + lead,
				Category:    lead,
				Description: "Build advanced projects using " + lead,
				Priority:    "high",
			},
			{
				Title:       "Improve Documentation Skills",
				Category:    "Documentation",
				Description: "Write better READMEs and code comments",
				Priority:    "medium",
			},
		},
		CodingPatterns: ActivityPatterns{
			CommitFrequency:       frequency,
			ProjectVariety:        variety,
			CodeQualityIndicators: []string{"Regular commits", "Multiple repositories"},
		},
		AISuccess: false,
		Source:    SourceFallback,
	}
}

package analysis

import (
	"bytes"
	"encoding/json"
	"math"
)

// Source values carried by every analysis response.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Repository is a short summary of one repository in a developer profile.
type Repository struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars,omitempty"`
	Forks       int    `json:"forks,omitempty"`
}

// DevAnalysisRequest is the body of POST /analyze-dev-profile.
type DevAnalysisRequest struct {
	Username       string             `json:"username"`
	ReadmeContent  string             `json:"readme_content,omitempty"`
	CommitMessages []string           `json:"commit_messages"`
	RepoLanguages  map[string]float64 `json:"repo_languages"`
	RepoNames      []string           `json:"repo_names"`
	Repositories   []Repository       `json:"repositories,omitempty"`
	TotalRepos     int                `json:"total_repos"`
	TotalCommits   int                `json:"total_commits"`
}

// TreeEntry is one node of a repository file tree.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// RepoAnalysisRequest is the body of POST /analyze-repo.
type RepoAnalysisRequest struct {
	Username       string             `json:"username"`
	RepoName       string             `json:"repo_name"`
	ReadmeContent  string             `json:"readme_content,omitempty"`
	CommitMessages []string           `json:"commit_messages"`
	RepoLanguages  map[string]float64 `json:"repo_languages"`
	Stars          int                `json:"stars"`
	Forks          int                `json:"forks"`
	Topics         []string           `json:"topics"`
	Size           int                `json:"size"`
	Code           string             `json:"code,omitempty"`
	Tree           []TreeEntry        `json:"tree,omitempty"`
}

// ChatTurn is one message of a goal's coaching conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// DefaultDifficulty is used when a goal request omits difficulty_level.
const DefaultDifficulty = 5

// GoalAnalysisRequest is the body of POST /analyze-goal.
type GoalAnalysisRequest struct {
	GoalTitle       string     `json:"goal_title"`
	Category        string     `json:"category"`
	CurrentProgress string     `json:"current_progress"`
	DifficultyLevel int        `json:"difficulty_level,omitempty"`
	ChatHistory     []ChatTurn `json:"chat_history,omitempty"`
}

// Difficulty returns the difficulty level clamped to 1..10, substituting
// DefaultDifficulty when unset.
func (r GoalAnalysisRequest) Difficulty() int {
	switch {
	case r.DifficultyLevel == 0:
		return DefaultDifficulty
	case r.DifficultyLevel < 1:
		return 1
	case r.DifficultyLevel > 10:
		return 10
	}
	return r.DifficultyLevel
}

// GitHubInsightsRequest is the body of POST /analyze-github.
type GitHubInsightsRequest struct {
	Username       string             `json:"username"`
	ReadmeContent  string             `json:"readme_content,omitempty"`
	CommitMessages []string           `json:"commit_messages"`
	RepoLanguages  map[string]float64 `json:"repo_languages"`
	RepoNames      []string           `json:"repo_names"`
}

// RecommendedGoal is a learning goal suggested by a developer-profile analysis.
type RecommendedGoal struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Timeline    string `json:"timeline"`
}

// ProjectComplexity scores are percentages (0-100).
type ProjectComplexity struct {
	Overall       float64 `json:"overall"`
	TechnicalDebt float64 `json:"technicalDebt"`
	Architecture  float64 `json:"architecture"`
	Scalability   float64 `json:"scalability"`
	Reasoning     string  `json:"reasoning"`
}

// CodingPatterns scores are percentages (0-100); Confidence is 0.0-1.0.
type CodingPatterns struct {
	Consistency float64  `json:"consistency"`
	Velocity    float64  `json:"velocity"`
	Quality     float64  `json:"quality"`
	Patterns    []string `json:"patterns"`
	Confidence  float64  `json:"confidence"`
}

// DevAnalysisResponse is the result of a developer-profile analysis.
type DevAnalysisResponse struct {
	Summary           string             `json:"summary"`
	SkillLevel        string             `json:"skill_level"`
	TopLanguages      []string           `json:"top_languages"`
	Strengths         []string           `json:"strengths"`
	ImprovementAreas  []string           `json:"improvement_areas"`
	RecommendedGoals  []RecommendedGoal  `json:"recommended_goals"`
	LearningPath      []string           `json:"learning_path"`
	EstimatedHours    Whole              `json:"estimated_hours"`
	MotivationMessage string             `json:"motivation_message"`
	ProjectComplexity *ProjectComplexity `json:"project_complexity,omitempty"`
	CodingPatterns    *CodingPatterns    `json:"coding_patterns,omitempty"`
	AISuccess         bool               `json:"ai_success"`
	Source            string             `json:"source"`
}

// RepoAnalysisResponse is the result of a repository analysis.
type RepoAnalysisResponse struct {
	Summary            string   `json:"summary"`
	Strengths          []string `json:"strengths"`
	ImprovementAreas   []string `json:"improvement_areas"`
	CodeQualityScore   Whole    `json:"code_quality_score"`
	PopularityScore    Whole    `json:"popularity_score"`
	DocumentationScore Whole    `json:"documentation_score"`
	Recommendations    []string `json:"recommendations"`
	AISuccess          bool     `json:"ai_success"`
	Source             string   `json:"source"`
}

// LearningAnalysisResponse is the result of a goal analysis.
type LearningAnalysisResponse struct {
	Suggestions   []string `json:"suggestions"`
	NextSteps     []string `json:"next_steps"`
	EstimatedTime string   `json:"estimated_time"`
	Resources     []string `json:"resources"`
	AISuccess     bool     `json:"ai_success"`
	Source        string   `json:"source"`
}

// SkillAnalysis is the skill section of a GitHub insights response.
type SkillAnalysis struct {
	PrimaryLanguages []string `json:"primary_languages"`
	ExperienceLevel  string   `json:"experience_level"`
	Strengths        []string `json:"strengths"`
	AreasToImprove   []string `json:"areas_to_improve"`
}

// InsightGoal is a prioritized goal suggested by a GitHub insights analysis.
type InsightGoal struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ActivityPatterns describes commit habits in a GitHub insights response.
type ActivityPatterns struct {
	CommitFrequency       string   `json:"commit_frequency"`
	ProjectVariety        string   `json:"project_variety"`
	CodeQualityIndicators []string `json:"code_quality_indicators"`
}

// GitHubInsightsResponse is the result of a GitHub insights analysis.
type GitHubInsightsResponse struct {
	SkillAnalysis       SkillAnalysis    `json:"skill_analysis"`
	LearningSuggestions []string         `json:"learning_suggestions"`
	ProjectInsights     []string         `json:"project_insights"`
	RecommendedGoals    []InsightGoal    `json:"recommended_goals"`
	CodingPatterns      ActivityPatterns `json:"coding_patterns"`
	AISuccess           bool             `json:"ai_success"`
	Source              string           `json:"source"`
}

// Whole is an integer field that also accepts fractional JSON numbers,
// rounding them to the nearest integer. Models often answer 85.0 for 85.
type Whole int

const wholeLimit = 1 << 31

func (w *Whole) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*w = Whole(math.Round(min(max(f, -wholeLimit), wholeLimit)))
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *DevAnalysisResponse) normalize() {
	r.TopLanguages = orEmpty(r.TopLanguages)
	r.Strengths = orEmpty(r.Strengths)
	r.ImprovementAreas = orEmpty(r.ImprovementAreas)
	r.RecommendedGoals = orEmpty(r.RecommendedGoals)
	r.LearningPath = orEmpty(r.LearningPath)
	if r.CodingPatterns != nil {
		r.CodingPatterns.Patterns = orEmpty(r.CodingPatterns.Patterns)
	}
}

func (r *RepoAnalysisResponse) normalize() {
	r.Strengths = orEmpty(r.Strengths)
	r.ImprovementAreas = orEmpty(r.ImprovementAreas)
	r.Recommendations = orEmpty(r.Recommendations)
	r.CodeQualityScore = clampScore(r.CodeQualityScore)
	r.PopularityScore = clampScore(r.PopularityScore)
	r.DocumentationScore = clampScore(r.DocumentationScore)
}

func (r *LearningAnalysisResponse) normalize() {
	r.Suggestions = orEmpty(r.Suggestions)
	r.NextSteps = orEmpty(r.NextSteps)
	r.Resources = orEmpty(r.Resources)
}

func (r *GitHubInsightsResponse) normalize() {
	r.SkillAnalysis.PrimaryLanguages = orEmpty(r.SkillAnalysis.PrimaryLanguages)
	r.SkillAnalysis.Strengths = orEmpty(r.SkillAnalysis.Strengths)
	r.SkillAnalysis.AreasToImprove = orEmpty(r.SkillAnalysis.AreasToImprove)
	r.LearningSuggestions = orEmpty(r.LearningSuggestions)
	r.ProjectInsights = orEmpty(r.ProjectInsights)
	r.RecommendedGoals = orEmpty(r.RecommendedGoals)
	r.CodingPatterns.CodeQualityIndicators = orEmpty(r.CodingPatterns.CodeQualityIndicators)
}

func clampScore(v Whole) Whole {
	return min(max(v, 0), 100)
}

func tag(source string) (bool, string) { return source == SourceAI, source }

func (r *DevAnalysisResponse) finish(source string) {
	r.normalize()
	r.AISuccess, r.Source = tag(source)
}

func (r *RepoAnalysisResponse) finish(source string) {
	r.normalize()
	r.AISuccess, r.Source = tag(source)
}

func (r *LearningAnalysisResponse) finish(source string) {
	r.normalize()
	r.AISuccess, r.Source = tag(source)
}

func (r *GitHubInsightsResponse) finish(source string) {
	r.normalize()
	r.AISuccess, r.Source = tag(source)
}

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpaneas/devtracker/internal/extract"
	"github.com/drpaneas/devtracker/internal/llm"
	"github.com/drpaneas/devtracker/internal/workpool"
)

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	calls []*llm.CompleteOptions
}

func (f *fakeProvider) Complete(ctx context.Context, system, prompt string, opts *llm.CompleteOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	reply, err, block := f.reply, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestAnalyzer(t *testing.T, p llm.Provider, opts ...Option) *Analyzer {
	t.Helper()
	pool := workpool.New(2)
	t.Cleanup(func() { _ = pool.Close() })
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(p, pool, opts...)
}

var reactGoal = GoalAnalysisRequest{
	GoalTitle:       "Learn React",
	Category:        "Frontend",
	CurrentProgress: "just started",
}

func TestAnalyzeGoal_GatewayFailureFallsBack(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{err: errors.New("connection refused")})

	got := a.AnalyzeGoal(context.Background(), reactGoal)

	assert.Equal(t, SourceFallback, got.Source)
	assert.False(t, got.AISuccess)
	require.NotEmpty(t, got.Suggestions)
	assert.Contains(t, got.Suggestions[0], "React")
	assert.Equal(t, "Practice Frontend concepts for 30 minutes daily", got.Suggestions[1])
	assert.Equal(t, FallbackGoalAnalysis(reactGoal), got)
}

func TestAnalyzeDeveloper_ReproducesConformantReply(t *testing.T) {
	reply := "Here is the analysis:\n```json\n" + `{
		"summary": "A Go developer focused on tooling.",
		"skill_level": "intermediate",
		"top_languages": ["Go", "Shell"],
		"strengths": ["CLI design"],
		"improvement_areas": ["testing"],
		"recommended_goals": [{"title": "Learn fuzzing", "category": "Testing", "description": "Fuzz parsers", "timeline": "2-4 weeks"}],
		"learning_path": ["read", "write", "ship"],
		"estimated_hours": 40,
		"motivation_message": "Keep going!",
		"project_complexity": {"overall": 62, "technicalDebt": 20, "architecture": 70, "scalability": 55, "reasoning": "Small services."},
		"coding_patterns": {"consistency": 80, "velocity": 45, "quality": 75, "patterns": ["small commits"], "confidence": 0.7}
	}` + "\n```\nLet me know if you need more."
	p := &fakeProvider{reply: reply}
	a := newTestAnalyzer(t, p)

	got := a.AnalyzeDeveloper(context.Background(), DevAnalysisRequest{Username: "octo"})

	want := DevAnalysisResponse{
		Summary:          "A Go developer focused on tooling.",
		SkillLevel:       "intermediate",
		TopLanguages:     []string{"Go", "Shell"},
		Strengths:        []string{"CLI design"},
		ImprovementAreas: []string{"testing"},
		RecommendedGoals: []RecommendedGoal{
			{Title: "Learn fuzzing", Category: "Testing", Description: "Fuzz parsers", Timeline: "2-4 weeks"},
		},
		LearningPath:      []string{"read", "write", "ship"},
		EstimatedHours:    40,
		MotivationMessage: "Keep going!",
		ProjectComplexity: &ProjectComplexity{Overall: 62, TechnicalDebt: 20, Architecture: 70, Scalability: 55, Reasoning: "Small services."},
		CodingPatterns:    &CodingPatterns{Consistency: 80, Velocity: 45, Quality: 75, Patterns: []string{"small commits"}, Confidence: 0.7},
		AISuccess:         true,
		Source:            SourceAI,
	}
	assert.Equal(t, want, got)
	require.Len(t, p.calls, 1)
	assert.Equal(t, 1000, p.calls[0].MaxTokens)
	assert.InDelta(t, 0.6, *p.calls[0].Temperature, 1e-6)
}

func TestAnalyzeRepository(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantSource string
	}{
		{"conformant", `{"summary":"Tidy repo","strengths":["tests"],"improvement_areas":[],"code_quality_score":80,"popularity_score":10,"documentation_score":60,"recommendations":["add CI"]}`, nil, SourceAI},
		{"no braces", "I cannot analyze this repository.", nil, SourceFallback},
		{"missing summary", `{"strengths":["tests"]}`, nil, SourceFallback},
		{"null summary", `{"summary":null}`, nil, SourceFallback},
		{"malformed", `{"summary": "unterminated`, nil, SourceFallback},
		{"bare array", `["a","b"]`, nil, SourceFallback},
		{"wrong score type", `{"summary":"x","code_quality_score":"high"}`, nil, SourceFallback},
		{"whitespace reply", "  \n ", nil, SourceFallback},
		{"gateway error", "", errors.New("503"), SourceFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, &fakeProvider{reply: tt.reply, err: tt.err})
			got := a.AnalyzeRepository(context.Background(), RepoAnalysisRequest{RepoName: "r"})
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, got.Source == SourceAI, got.AISuccess)
			if tt.wantSource == SourceFallback {
				assert.Equal(t, FallbackRepoAnalysis(), got)
			}
		})
	}
}

func TestAnalyzeRepository_AcceptsFractionalScores(t *testing.T) {
	reply := `{"summary":"ok","code_quality_score":85.0,"popularity_score":12.6,"documentation_score":140.2}`
	a := newTestAnalyzer(t, &fakeProvider{reply: reply})
	got := a.AnalyzeRepository(context.Background(), RepoAnalysisRequest{RepoName: "r"})
	require.Equal(t, SourceAI, got.Source)
	assert.EqualValues(t, 85, got.CodeQualityScore)
	assert.EqualValues(t, 13, got.PopularityScore)
	assert.EqualValues(t, 100, got.DocumentationScore)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"code_quality_score":85,`)
}

func TestAnalyzeDeveloper_AcceptsFractionalHours(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{reply: `{"summary":"s","estimated_hours":39.5}`})
	got := a.AnalyzeDeveloper(context.Background(), DevAnalysisRequest{Username: "u"})
	require.Equal(t, SourceAI, got.Source)
	assert.EqualValues(t, 40, got.EstimatedHours)
}

func TestWhole_RejectsNonNumbers(t *testing.T) {
	var w Whole
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &w))
	require.NoError(t, json.Unmarshal([]byte(`null`), &w))
	assert.EqualValues(t, 0, w)
	require.NoError(t, json.Unmarshal([]byte(`1e300`), &w))
	assert.EqualValues(t, wholeLimit, w)
}

func TestAnalyzeRepository_CacheSkipsUnusableReplies(t *testing.T) {
	replies := []string{"Sorry, I cannot help with that.", `{"summary":"real analysis"}`}
	calls := 0
	inner := llm.ProviderFunc(func(context.Context, string, string, *llm.CompleteOptions) (string, error) {
		reply := replies[min(calls, len(replies)-1)]
		calls++
		return reply, nil
	})
	a := newTestAnalyzer(t, llm.Wrap(inner, llm.WithCache(128, 10*time.Minute, extract.HasObject)))
	req := RepoAnalysisRequest{Username: "u", RepoName: "r"}

	first := a.AnalyzeRepository(context.Background(), req)
	second := a.AnalyzeRepository(context.Background(), req)
	third := a.AnalyzeRepository(context.Background(), req)

	assert.Equal(t, SourceFallback, first.Source)
	assert.Equal(t, SourceAI, second.Source)
	assert.Equal(t, "real analysis", second.Summary)
	assert.Equal(t, second, third)
	assert.Equal(t, 2, calls)
}

func TestAnalyze_CancelledWithIdleWorkersSkipsProvider(t *testing.T) {
	p := &fakeProvider{reply: `{"summary":"never"}`}
	a := newTestAnalyzer(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 50 {
		got := a.AnalyzeDeveloper(ctx, DevAnalysisRequest{Username: "u"})
		require.Equal(t, SourceFallback, got.Source)
	}
	assert.Equal(t, 0, p.callCount())
}

func TestAnalyzeRepository_OverridesProvenanceFromReply(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{reply: `{"summary":"ok","ai_success":false,"source":"fallback"}`})
	got := a.AnalyzeRepository(context.Background(), RepoAnalysisRequest{})
	assert.True(t, got.AISuccess)
	assert.Equal(t, SourceAI, got.Source)
	assert.NotNil(t, got.Strengths)
	assert.NotNil(t, got.Recommendations)
}

func TestAnalyzeRepository_ClampsScores(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{reply: `{"summary":"ok","code_quality_score":140,"popularity_score":-5,"documentation_score":50}`})
	got := a.AnalyzeRepository(context.Background(), RepoAnalysisRequest{})
	assert.EqualValues(t, 100, got.CodeQualityScore)
	assert.EqualValues(t, 0, got.PopularityScore)
	assert.EqualValues(t, 50, got.DocumentationScore)
}

func TestAnalyzeGoal_UsesGoalParameters(t *testing.T) {
	p := &fakeProvider{reply: `{"suggestions":["Build a todo app"],"next_steps":["Read the docs"],"estimated_time":"3 weeks","resources":["react.dev"]}`}
	a := newTestAnalyzer(t, p)

	got := a.AnalyzeGoal(context.Background(), reactGoal)

	assert.Equal(t, LearningAnalysisResponse{
		Suggestions:   []string{"Build a todo app"},
		NextSteps:     []string{"Read the docs"},
		EstimatedTime: "3 weeks",
		Resources:     []string{"react.dev"},
		AISuccess:     true,
		Source:        SourceAI,
	}, got)
	require.Len(t, p.calls, 1)
	assert.Equal(t, 500, p.calls[0].MaxTokens)
	assert.InDelta(t, 0.7, *p.calls[0].Temperature, 1e-6)
}

func TestAnalyzeGitHubInsights(t *testing.T) {
	req := GitHubInsightsRequest{
		Username:      "octo",
		RepoLanguages: map[string]float64{"Go": 70, "Python": 20, "Shell": 10},
		RepoNames:     []string{"a", "b"},
	}

	t.Run("ai", func(t *testing.T) {
		p := &fakeProvider{reply: `{"skill_analysis":{"primary_languages":["Go"],"experience_level":"advanced","strengths":["tooling"],"areas_to_improve":[]},"learning_suggestions":["x"],"project_insights":["y"],"recommended_goals":[{"title":"t","category":"c","description":"d","priority":"high"}],"coding_patterns":{"commit_frequency":"high","project_variety":"focused","code_quality_indicators":["tests"]}}`}
		got := newTestAnalyzer(t, p).AnalyzeGitHubInsights(context.Background(), req)
		assert.Equal(t, SourceAI, got.Source)
		assert.Equal(t, "advanced", got.SkillAnalysis.ExperienceLevel)
		assert.Equal(t, []InsightGoal{{Title: "t", Category: "c", Description: "d", Priority: "high"}}, got.RecommendedGoals)
		assert.Equal(t, 800, p.calls[0].MaxTokens)
	})

	t.Run("fallback", func(t *testing.T) {
		got := newTestAnalyzer(t, &fakeProvider{reply: "nope"}).AnalyzeGitHubInsights(context.Background(), req)
		assert.Equal(t, FallbackGitHubInsights(req), got)
		assert.Equal(t, []string{"Go", "Python"}, got.SkillAnalysis.PrimaryLanguages)
	})
}

func TestAnalyze_TimeoutFallsBack(t *testing.T) {
	p := &fakeProvider{block: true}
	a := newTestAnalyzer(t, p, WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := a.AnalyzeDeveloper(context.Background(), DevAnalysisRequest{})
	assert.Equal(t, FallbackDevAnalysis(), got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAnalyze_DispatchedCallSurvivesRequestCancellation(t *testing.T) {
	p := &fakeProvider{reply: `{"summary":"done"}`}
	a := newTestAnalyzer(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	blocking := llm.ProviderFunc(func(callCtx context.Context, system, prompt string, opts *llm.CompleteOptions) (string, error) {
		cancel()
		select {
		case <-callCtx.Done():
			return "", callCtx.Err()
		case <-time.After(10 * time.Millisecond):
		}
		return p.Complete(callCtx, system, prompt, opts)
	})
	a.provider = blocking

	got := a.AnalyzeRepository(ctx, RepoAnalysisRequest{})
	assert.Equal(t, SourceAI, got.Source)
	assert.Equal(t, "done", got.Summary)
}

func TestAnalyze_CancelledBeforeDispatchSkipsProvider(t *testing.T) {
	pool := workpool.New(1)
	defer pool.Close()

	release := make(chan struct{})
	busy := make(chan struct{})
	go func() {
		_, _ = workpool.Do(context.Background(), pool, func() (struct{}, error) {
			close(busy)
			<-release
			return struct{}{}, nil
		})
	}()
	<-busy

	p := &fakeProvider{reply: `{"summary":"never"}`}
	a := New(p, pool, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := a.AnalyzeDeveloper(ctx, DevAnalysisRequest{})
	close(release)

	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, 0, p.callCount())
}

func TestComplete_WrapsGatewayErrors(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{err: llm.ErrDisabled})
	_, err := a.complete(context.Background(), repoEndpoint, "x")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.ErrorIs(t, err, llm.ErrDisabled)

	a = newTestAnalyzer(t, &fakeProvider{reply: ""})
	_, err = a.complete(context.Background(), repoEndpoint, "x")
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestProvenanceInvariant(t *testing.T) {
	replies := []string{
		`{"summary":"s","suggestions":["a"],"skill_analysis":{}}`,
		`{}`,
		"text only",
		`{"summary":"s"} trailing } brace`,
	}
	for _, reply := range replies {
		a := newTestAnalyzer(t, &fakeProvider{reply: reply})
		ctx := context.Background()
		dev := a.AnalyzeDeveloper(ctx, DevAnalysisRequest{})
		repo := a.AnalyzeRepository(ctx, RepoAnalysisRequest{})
		goal := a.AnalyzeGoal(ctx, reactGoal)
		gh := a.AnalyzeGitHubInsights(ctx, GitHubInsightsRequest{})
		for _, pair := range []struct {
			ok     bool
			source string
		}{
			{dev.AISuccess, dev.Source},
			{repo.AISuccess, repo.Source},
			{goal.AISuccess, goal.Source},
			{gh.AISuccess, gh.Source},
		} {
			assert.Contains(t, []string{SourceAI, SourceFallback}, pair.source, reply)
			assert.Equal(t, pair.source == SourceAI, pair.ok, reply)
		}
	}
}

func TestFallbacksAreDeterministic(t *testing.T) {
	req := GitHubInsightsRequest{
		RepoLanguages:  map[string]float64{"Go": 10, "Rust": 10, "C": 5, "Zig": 1},
		CommitMessages: make([]string, 120),
	}
	pairs := []struct {
		name string
		make func() any
	}{
		{"dev", func() any { return FallbackDevAnalysis() }},
		{"repo", func() any { return FallbackRepoAnalysis() }},
		{"goal", func() any { return FallbackGoalAnalysis(reactGoal) }},
		{"github", func() any { return FallbackGitHubInsights(req) }},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			first, err := json.Marshal(p.make())
			require.NoError(t, err)
			for range 10 {
				again, err := json.Marshal(p.make())
				require.NoError(t, err)
				assert.Equal(t, string(first), string(again))
			}
			assert.Contains(t, string(first), `"ai_success":false`)
			assert.Contains(t, string(first), `"source":"fallback"`)
			assert.NotContains(t, string(first), "null")
		})
	}
}

func TestFallbackGitHubInsights(t *testing.T) {
	t.Run("no languages", func(t *testing.T) {
		got := FallbackGitHubInsights(GitHubInsightsRequest{})
		assert.Equal(t, []string{"JavaScript"}, got.SkillAnalysis.PrimaryLanguages)
		assert.Equal(t, "beginner", got.SkillAnalysis.ExperienceLevel)
		assert.Equal(t, "medium", got.CodingPatterns.CommitFrequency)
		assert.Equal(t, "focused", got.CodingPatterns.ProjectVariety)
		assert.Equal(t, "Master JavaScript", got.RecommendedGoals[0].Title)
	})

	t.Run("busy polyglot", func(t *testing.T) {
		got := FallbackGitHubInsights(GitHubInsightsRequest{
			RepoLanguages:  map[string]float64{"Go": 10, "Rust": 10, "C": 5, "Zig": 1},
			CommitMessages: make([]string, 101),
			RepoNames:      []string{"a", "b", "c"},
		})
		assert.Equal(t, []string{"Go", "Rust"}, got.SkillAnalysis.PrimaryLanguages)
		assert.Equal(t, "intermediate", got.SkillAnalysis.ExperienceLevel)
		assert.Equal(t, "high", got.CodingPatterns.CommitFrequency)
		assert.Equal(t, "diverse", got.CodingPatterns.ProjectVariety)
		assert.Equal(t, "You have 3 repositories", got.ProjectInsights[1])
		assert.True(t, strings.HasPrefix(got.LearningSuggestions[0], "Deepen your Go"))
	})
}

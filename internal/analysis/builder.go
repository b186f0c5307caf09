package analysis

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/drpaneas/devtracker/internal/textutil"
)

const (
	devReadmeLimit      = 300 // characters
	repoReadmeLimit     = 300
	insightsReadmeLimit = 500
	codeLimit           = 1000 // bytes
	codeTruncatedMarker = "\n... (code truncated)"

	devCommitLimit      = 15 // most recent
	repoCommitLimit     = 10
	insightsCommitLimit = 10
	repoNameLimit       = 10 // first
	treeEntryLimit      = 50
	chatTurnLimit       = 10 // most recent
)

const (
	noReadmeProvided  = "No README provided"
	noReadmeAvailable = "No README available"
	noChat            = "No previous chat."
	noCode            = "No code sample provided"
	noTree            = "No file tree provided"
	noCommits         = "No commit messages"
	none              = "None"
)

func buildDevProfilePrompt(req DevAnalysisRequest) string {
	return fmt.Sprintf(devProfilePrompt,
		req.Username,
		req.TotalRepos,
		req.TotalCommits,
		orNone(formatLanguages(req.RepoLanguages, percentOneDecimal)),
		orNone(strings.Join(first(req.RepoNames, repoNameLimit), ", ")),
		orNone(formatRepositories(first(req.Repositories, repoNameLimit))),
		orPlaceholder(strings.Join(last(req.CommitMessages, devCommitLimit), "\n"), noCommits),
		readmeSample(req.ReadmeContent, devReadmeLimit, noReadmeAvailable),
	)
}

func buildRepoPrompt(req RepoAnalysisRequest) string {
	return fmt.Sprintf(repoPrompt,
		req.RepoName,
		req.Username,
		req.Stars,
		req.Forks,
		orNone(strings.Join(req.Topics, ", ")),
		req.Size,
		orNone(formatLanguages(req.RepoLanguages, plainNumber)),
		readmeSample(req.ReadmeContent, repoReadmeLimit, noReadmeAvailable),
		orPlaceholder(strings.Join(last(req.CommitMessages, repoCommitLimit), "; "), noCommits),
		formatTree(req.Tree),
		codeSample(req.Code),
	)
}

func buildGoalPrompt(req GoalAnalysisRequest) string {
	return fmt.Sprintf(goalPrompt,
		req.GoalTitle,
		req.Category,
		req.CurrentProgress,
		req.Difficulty(),
		formatChat(req.ChatHistory),
	)
}

func buildGitHubInsightsPrompt(req GitHubInsightsRequest) string {
	return fmt.Sprintf(githubInsightsPrompt,
		req.Username,
		orNone(formatLanguages(req.RepoLanguages, percentPlain)),
		orNone(strings.Join(req.RepoNames, ", ")),
		orPlaceholder(strings.Join(last(req.CommitMessages, insightsCommitLimit), "\n"), noCommits),
		readmeSample(req.ReadmeContent, insightsReadmeLimit, noReadmeProvided),
	)
}

// readmeSample returns exactly the first limit characters of readme, or
// placeholder when readme is empty.
func readmeSample(readme string, limit int, placeholder string) string {
	if readme == "" {
		return placeholder
	}
	return textutil.Head(readme, limit)
}

func codeSample(code string) string {
	if code == "" {
		return noCode
	}
	return textutil.Truncate(code, codeLimit, codeTruncatedMarker)
}

func formatTree(tree []TreeEntry) string {
	if len(tree) == 0 {
		return noTree
	}
	var b strings.Builder
	for _, e := range first(tree, treeEntryLimit) {
		if e.Type == "blob" && e.Size > 0 {
			fmt.Fprintf(&b, "%s (%s, %d bytes)\n", e.Path, e.Type, e.Size)
		} else {
			fmt.Fprintf(&b, "%s (%s)\n", e.Path, e.Type)
		}
	}
	if extra := len(tree) - treeEntryLimit; extra > 0 {
		fmt.Fprintf(&b, "... and %d more entries\n", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatChat(turns []ChatTurn) string {
	if len(turns) == 0 {
		return noChat
	}
	lines := make([]string, 0, min(len(turns), chatTurnLimit))
	for _, t := range last(turns, chatTurnLimit) {
		role := t.Role
		if role == "" {
			role = "user"
		}
		lines = append(lines, role+": "+t.Message)
	}
	return strings.Join(lines, "\n")
}

func formatRepositories(repos []Repository) string {
	lines := make([]string, 0, len(repos))
	for _, r := range repos {
		line := "- " + r.Name
		if r.Language != "" {
			line += " [" + r.Language + "]"
		}
		if r.Stars > 0 || r.Forks > 0 {
			line += fmt.Sprintf(" (%d stars, %d forks)", r.Stars, r.Forks)
		}
		if r.Description != "" {
			line += ": " + r.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

type languageShare struct {
	name  string
	share float64
}

// sortedLanguages orders languages by share, largest first, breaking ties by
// name so rendering is deterministic.
func sortedLanguages(langs map[string]float64) []languageShare {
	out := make([]languageShare, 0, len(langs))
	for name, share := range langs {
		out = append(out, languageShare{name, share})
	}
	slices.SortFunc(out, func(a, b languageShare) int {
		if c := cmp.Compare(b.share, a.share); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return out
}

func percentOneDecimal(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }
func percentPlain(v float64) string      { return strconv.FormatFloat(v, 'f', -1, 64) + "%" }
func plainNumber(v float64) string       { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatLanguages(langs map[string]float64, format func(float64) string) string {
	parts := make([]string, 0, len(langs))
	for _, l := range sortedLanguages(langs) {
		parts = append(parts, fmt.Sprintf("%s (%s)", l.name, format(l.share)))
	}
	return strings.Join(parts, ", ")
}

func first[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func last[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func orNone(s string) string { return orPlaceholder(s, none) }

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

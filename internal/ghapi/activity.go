package ghapi

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/sync/errgroup"

	"github.com/drpaneas/devtracker/internal/analysis"
	"github.com/drpaneas/devtracker/internal/textutil"
)

const (
	maxCommitsPerRepo  = 30
	maxReadmeBytes     = 4000
	maxCodeFiles       = 3
	maxCodeFileBytes   = 32 * 1024
	collectConcurrency = 5
)

// DefaultMaxRepos is the number of recently pushed repositories inspected
// by CollectActivity.
const DefaultMaxRepos = 10

// Activity is the public GitHub activity of one user.
type Activity struct {
	Username       string
	ProfileReadme  string
	Repos          []analysis.Repository
	Languages      map[string]float64 // share of bytes, in percent
	CommitMessages []string           // oldest first
}

type datedMessage struct {
	when time.Time
	msg  string
}

// CollectActivity gathers repositories, languages and commit messages for
// username from its most recently pushed repositories.
func (c *Client) CollectActivity(ctx context.Context, username string, maxRepos int) (*Activity, error) {
	if maxRepos < 1 {
		maxRepos = DefaultMaxRepos
	}
	repos, err := c.fetchRepos(ctx, username, maxRepos)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}

	act := &Activity{Username: username}
	readme, err := c.readme(ctx, username, username)
	if err != nil {
		slog.Debug("no profile README", "user", username, "error", err)
	}
	act.ProfileReadme = readme

	var (
		mu       sync.Mutex
		langSize = make(map[string]int)
		messages []datedMessage
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(collectConcurrency)
	for _, repo := range repos {
		act.Repos = append(act.Repos, analysis.Repository{
			Name:        repo.GetName(),
			Description: repo.GetDescription(),
			Language:    repo.GetLanguage(),
			Stars:       repo.GetStargazersCount(),
			Forks:       repo.GetForksCount(),
		})
		owner, name := repo.GetOwner().GetLogin(), repo.GetName()
		g.Go(func() error {
			langs, _, err := c.gh.Repositories.ListLanguages(gCtx, owner, name)
			if err != nil {
				slog.Debug("could not list languages", "repo", owner+"/"+name, "error", err)
			}
			commits := c.fetchCommitMessages(gCtx, owner, name, username)

			mu.Lock()
			defer mu.Unlock()
			for lang, size := range langs {
				langSize[lang] += size
			}
			messages = append(messages, commits...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	act.Languages = languageShares(langSize)
	slices.SortStableFunc(messages, func(a, b datedMessage) int { return a.when.Compare(b.when) })
	for _, m := range messages {
		act.CommitMessages = append(act.CommitMessages, m.msg)
	}
	return act, nil
}

// DevRequest converts the activity into a developer-profile analysis request.
func (a *Activity) DevRequest() analysis.DevAnalysisRequest {
	return analysis.DevAnalysisRequest{
		Username:       a.Username,
		ReadmeContent:  a.ProfileReadme,
		CommitMessages: a.CommitMessages,
		RepoLanguages:  a.Languages,
		RepoNames:      a.repoNames(),
		Repositories:   a.Repos,
		TotalRepos:     len(a.Repos),
		TotalCommits:   len(a.CommitMessages),
	}
}

// InsightsRequest converts the activity into a GitHub insights request.
func (a *Activity) InsightsRequest() analysis.GitHubInsightsRequest {
	return analysis.GitHubInsightsRequest{
		Username:       a.Username,
		ReadmeContent:  a.ProfileReadme,
		CommitMessages: a.CommitMessages,
		RepoLanguages:  a.Languages,
		RepoNames:      a.repoNames(),
	}
}

func (a *Activity) repoNames() []string {
	names := make([]string, 0, len(a.Repos))
	for _, r := range a.Repos {
		names = append(names, r.Name)
	}
	return names
}

// RepoRequest builds a repository analysis request for owner/name, including
// its file tree and a few source files as the code sample.
func (c *Client) RepoRequest(ctx context.Context, owner, name string) (analysis.RepoAnalysisRequest, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return analysis.RepoAnalysisRequest{}, fmt.Errorf("fetching repository %s/%s: %w", owner, name, err)
	}
	req := analysis.RepoAnalysisRequest{
		Username: owner,
		RepoName: name,
		Stars:    repo.GetStargazersCount(),
		Forks:    repo.GetForksCount(),
		Topics:   repo.Topics,
		Size:     repo.GetSize(),
	}
	if readme, err := c.readme(ctx, owner, name); err == nil {
		req.ReadmeContent = readme
	}
	if langs, _, err := c.gh.Repositories.ListLanguages(ctx, owner, name); err == nil {
		req.RepoLanguages = make(map[string]float64, len(langs))
		for lang, size := range langs {
			req.RepoLanguages[lang] = float64(size)
		}
	}
	commits := c.fetchCommitMessages(ctx, owner, name, "")
	slices.SortStableFunc(commits, func(a, b datedMessage) int { return a.when.Compare(b.when) })
	for _, m := range commits {
		req.CommitMessages = append(req.CommitMessages, m.msg)
	}

	branch := cmp.Or(repo.GetDefaultBranch(), "HEAD")
	tree, _, err := c.gh.Git.GetTree(ctx, owner, name, branch, true)
	if err != nil {
		slog.Debug("could not fetch tree", "repo", owner+"/"+name, "error", err)
		return req, nil
	}
	var sources []string
	for _, e := range tree.Entries {
		req.Tree = append(req.Tree, analysis.TreeEntry{Path: e.GetPath(), Type: e.GetType(), Size: int64(e.GetSize())})
		if e.GetType() == "blob" && e.GetSize() <= maxCodeFileBytes && isSourceFile(e.GetPath()) {
			sources = append(sources, e.GetPath())
		}
	}
	req.Code = c.codeSample(ctx, owner, name, sources)
	return req, nil
}

func (c *Client) fetchRepos(ctx context.Context, username string, maxRepos int) ([]*github.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: min(maxRepos, 100)},
	}
	var all []*github.Repository
	for len(all) < maxRepos {
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if len(all) > maxRepos {
		all = all[:maxRepos]
	}
	return all, nil
}

// fetchCommitMessages returns commit subjects for owner/repo, optionally
// restricted to author.
func (c *Client) fetchCommitMessages(ctx context.Context, owner, repo, author string) []datedMessage {
	opts := &github.CommitsListOptions{
		Author:      author,
		ListOptions: github.ListOptions{PerPage: maxCommitsPerRepo},
	}
	commits, _, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		slog.Debug("could not list commits", "repo", owner+"/"+repo, "error", err)
		return nil
	}
	out := make([]datedMessage, 0, len(commits))
	for _, cm := range commits {
		subject, _, _ := strings.Cut(cm.GetCommit().GetMessage(), "\n")
		if subject == "" {
			continue
		}
		out = append(out, datedMessage{when: cm.GetCommit().GetAuthor().GetDate().Time, msg: subject})
	}
	return out
}

func (c *Client) readme(ctx context.Context, owner, repo string) (string, error) {
	readme, _, err := c.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return "", err
	}
	content, err := readme.GetContent()
	if err != nil {
		return "", err
	}
	return textutil.Truncate(content, maxReadmeBytes, "..."), nil
}

func (c *Client) codeSample(ctx context.Context, owner, repo string, paths []string) string {
	var b strings.Builder
	n := 0
	for _, p := range paths {
		if n >= maxCodeFiles {
			break
		}
		file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, p, nil)
		if err != nil || file == nil {
			continue
		}
		content, err := file.GetContent()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", p, content)
		n++
	}
	return b.String()
}

func languageShares(sizes map[string]int) map[string]float64 {
	total := 0
	for _, n := range sizes {
		total += n
	}
	shares := make(map[string]float64, len(sizes))
	if total == 0 {
		return shares
	}
	for lang, n := range sizes {
		shares[lang] = math.Round(float64(n)/float64(total)*1000) / 10
	}
	return shares
}

var sourceExts = map[string]bool{
	".go": true, ".py": true, ".rs": true, ".ts": true, ".tsx": true, ".js": true,
	".java": true, ".kt": true, ".swift": true, ".rb": true, ".c": true, ".cpp": true, ".h": true,
}

func isSourceFile(p string) bool {
	return sourceExts[strings.ToLower(path.Ext(p))]
}

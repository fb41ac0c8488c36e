package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hiresight-ai/hiresight/config"
)

var errRateLimited = errors.New("github rate limit exhausted")

// GitHubClient fetches a public user profile and their most recently updated
// repositories from the GitHub REST API.
type GitHubClient struct {
	endpoint string
	token    string
	maxRepos int
	retries  int
	backoff  time.Duration
	client   *http.Client
	logger   *log.Logger
}

func NewGitHubClient(cfg config.GitHubConfig, logger *log.Logger) *GitHubClient {
	cfg = cfg.Normalize()
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubClient{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		maxRepos: cfg.MaxRepos,
		retries:  cfg.MaxRetries,
		backoff:  cfg.Backoff,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Fetch resolves the extracted identifiers into one tagged result. The
// first login that resolves supplies the profile and its recent
// repositories; every owner/repo slug is then fetched for its own metadata,
// so a resume that links only project repos still enriches.
func (g *GitHubClient) Fetch(ctx context.Context, logins, repoSlugs []string) GitHubResult {
	res := GitHubResult{Outcome: OutcomeNotFound}
	for _, login := range logins {
		res = g.fetchUser(ctx, login)
		if res.Outcome != OutcomeNotFound {
			break
		}
	}
	if res.Outcome == OutcomeError {
		return res
	}

	seen := make(map[string]bool, len(res.Repos))
	for _, r := range res.Repos {
		seen[strings.ToLower(r.FullName)] = true
	}
	for _, slug := range repoSlugs {
		if seen[strings.ToLower(slug)] {
			continue
		}
		var repo GitHubRepo
		if err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s", g.endpoint, slug), &repo); err != nil {
			g.logger.Printf("[enrich] github repo %s: %v", slug, err)
			continue
		}
		seen[strings.ToLower(repo.FullName)] = true
		res.Repos = append(res.Repos, repo)
		res.Outcome = OutcomeFound
	}
	return res
}

// fetchUser resolves one login. A 404 on the user is not_found; rate
// limiting retries with exponential backoff before giving up.
func (g *GitHubClient) fetchUser(ctx context.Context, login string) GitHubResult {
	var profile GitHubProfile
	err := g.getJSON(ctx, fmt.Sprintf("%s/users/%s", g.endpoint, login), &profile)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return GitHubResult{Outcome: OutcomeNotFound}
		}
		srcErr := &SourceError{Source: "github", Err: err}
		g.logger.Printf("[enrich] %v", srcErr)
		return GitHubResult{Outcome: OutcomeError, Err: srcErr.Error()}
	}

	var repos []GitHubRepo
	reposURL := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=%d", g.endpoint, login, g.maxRepos)
	if err := g.getJSON(ctx, reposURL, &repos); err != nil {
		// profile alone is still worth indexing
		g.logger.Printf("[enrich] github repos for %s: %v", login, err)
		return GitHubResult{Outcome: OutcomeFound, Profile: &profile}
	}
	if len(repos) > g.maxRepos {
		repos = repos[:g.maxRepos]
	}
	return GitHubResult{Outcome: OutcomeFound, Profile: &profile, Repos: repos}
}

var errNotFound = errors.New("github resource not found")

func (g *GitHubClient) getJSON(ctx context.Context, url string, out any) error {
	var lastErr error
	tries := g.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		retryable, err := g.once(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		if attempt < tries-1 {
			select {
			case <-time.After(g.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (g *GitHubClient) once(ctx context.Context, url string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusNotFound:
		return false, errNotFound
	case rateLimited(resp):
		return true, errRateLimited
	case resp.StatusCode >= 500:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return true, errors.New(resp.Status + ": " + string(b))
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, errors.New(resp.Status + ": " + string(b))
	}
}

// rateLimited covers both primary limits (403 with a drained quota header)
// and secondary limits (429).
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

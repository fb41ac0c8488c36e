package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/hiresight-ai/hiresight/internal/structurer"
)

// Outcome tags the result of one enrichment source. Enrichment never fails a
// session: a source that errors is recorded and skipped.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// SourceError wraps an upstream failure from one enrichment source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("enrichment source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// GitHubProfile is the subset of the GitHub user object kept for indexing.
type GitHubProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// GitHubRepo is one public repository, most recently updated first.
type GitHubRepo struct {
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Topics      []string `json:"topics"`
}

// GitHubResult is the tagged outcome of the GitHub fetch.
type GitHubResult struct {
	Outcome Outcome        `json:"outcome"`
	Profile *GitHubProfile `json:"profile,omitempty"`
	Repos   []GitHubRepo   `json:"repos,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// LinkedInResult is the tagged outcome of the LinkedIn fetch. Fallback marks
// a narrative synthesized from the resume itself rather than the live page.
type LinkedInResult struct {
	Outcome   Outcome `json:"outcome"`
	Narrative string  `json:"narrative,omitempty"`
	Fallback  bool    `json:"fallback,omitempty"`
	Err       string  `json:"error,omitempty"`
}

// Result carries both source outcomes for one session.
type Result struct {
	GitHub   GitHubResult   `json:"github"`
	LinkedIn LinkedInResult `json:"linkedin"`
}

func (r Result) GitHubFound() bool   { return r.GitHub.Outcome == OutcomeFound }
func (r Result) LinkedInFound() bool { return r.LinkedIn.Outcome == OutcomeFound }

// Text renders the GitHub result as plain text suitable for indexing. A
// repo-only result still renders: the profile block is optional.
func (g GitHubResult) Text() string {
	if g.Profile == nil && len(g.Repos) == 0 {
		return ""
	}
	var sb strings.Builder
	if p := g.Profile; p != nil {
		fmt.Fprintf(&sb, "GitHub profile %s", p.Login)
		if p.Name != "" {
			fmt.Fprintf(&sb, " (%s)", p.Name)
		}
		sb.WriteString("\n")
		if p.Bio != "" {
			fmt.Fprintf(&sb, "Bio: %s\n", p.Bio)
		}
		if p.Company != "" {
			fmt.Fprintf(&sb, "Company: %s\n", p.Company)
		}
		if p.Location != "" {
			fmt.Fprintf(&sb, "Location: %s\n", p.Location)
		}
		fmt.Fprintf(&sb, "Public repos: %d, followers: %d, following: %d\n",
			p.PublicRepos, p.Followers, p.Following)
	}
	for _, repo := range g.Repos {
		fmt.Fprintf(&sb, "Repository %s", repo.FullName)
		if repo.Language != "" {
			fmt.Fprintf(&sb, " [%s]", repo.Language)
		}
		fmt.Fprintf(&sb, " (%d stars, %d forks)", repo.Stars, repo.Forks)
		if repo.Description != "" {
			fmt.Fprintf(&sb, ": %s", repo.Description)
		}
		if len(repo.Topics) > 0 {
			fmt.Fprintf(&sb, " topics: %s", strings.Join(repo.Topics, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Orchestrator runs both enrichment sources concurrently, each under its own
// timeout. A source failure is absorbed into its tagged result.
type Orchestrator struct {
	github   *GitHubClient
	linkedin *LinkedInFetcher
	logger   *log.Logger
}

func NewOrchestrator(github *GitHubClient, linkedin *LinkedInFetcher, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{github: github, linkedin: linkedin, logger: logger}
}

// Run fetches GitHub and LinkedIn enrichment for the structured document.
// It always returns a Result; individual sources report their own outcome.
func (o *Orchestrator) Run(ctx context.Context, doc *structurer.StructuredDocument) Result {
	var res Result
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		res.GitHub = o.runGitHub(ctx, doc.Contact)
	}()
	go func() {
		defer wg.Done()
		res.LinkedIn = o.runLinkedIn(ctx, doc)
	}()
	wg.Wait()

	o.logger.Printf("[enrich] github=%s linkedin=%s", res.GitHub.Outcome, res.LinkedIn.Outcome)
	return res
}

func (o *Orchestrator) runGitHub(ctx context.Context, contact structurer.ContactInfo) GitHubResult {
	if o.github == nil {
		return GitHubResult{Outcome: OutcomeNotFound}
	}
	logins, repos := githubIdentifiers(contact)
	if len(logins) == 0 && len(repos) == 0 {
		return GitHubResult{Outcome: OutcomeNotFound}
	}
	return o.github.Fetch(ctx, logins, repos)
}

// githubIdentifiers merges explicit profile links with owners derived from
// repo slugs, deduplicated, profile links first.
func githubIdentifiers(contact structurer.ContactInfo) (logins, repos []string) {
	seen := make(map[string]bool)
	for _, login := range contact.GitHubProfiles {
		if !seen[login] {
			seen[login] = true
			logins = append(logins, login)
		}
	}
	for _, slug := range contact.GitHubRepos {
		owner, _, ok := strings.Cut(slug, "/")
		if ok && !seen[owner] {
			seen[owner] = true
			logins = append(logins, owner)
		}
	}
	return logins, contact.GitHubRepos
}

func (o *Orchestrator) runLinkedIn(ctx context.Context, doc *structurer.StructuredDocument) LinkedInResult {
	if o.linkedin == nil {
		return LinkedInResult{Outcome: OutcomeNotFound}
	}
	return o.linkedin.Fetch(ctx, doc.Contact.LinkedIn, doc.Text)
}

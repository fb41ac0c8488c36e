package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hiresight-ai/hiresight/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*GitHubClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewGitHubClient(config.GitHubConfig{
		Endpoint:   srv.URL,
		MaxRepos:   3,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		Timeout:    time.Second,
	}, nil)
	return client, srv
}

func TestGitHubFetchFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"login": "janedoe", "name": "Jane Doe", "bio": "builds things",
			"public_repos": 12, "followers": 30, "following": 5,
		})
	})
	mux.HandleFunc("/users/janedoe/repos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sort"); got != "updated" {
			t.Errorf("sort = %q, want updated", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "ratelimiter", "full_name": "janedoe/ratelimiter", "language": "Go", "stargazers_count": 40},
			{"name": "dotfiles", "full_name": "janedoe/dotfiles"},
		})
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, nil)
	if res.Outcome != OutcomeFound {
		t.Fatalf("outcome = %q: %s", res.Outcome, res.Err)
	}
	if res.Profile.Name != "Jane Doe" || res.Profile.PublicRepos != 12 {
		t.Fatalf("profile = %+v", res.Profile)
	}
	if len(res.Repos) != 2 || res.Repos[0].Stars != 40 {
		t.Fatalf("repos = %+v", res.Repos)
	}
	if !strings.Contains(res.Text(), "janedoe/ratelimiter") {
		t.Fatalf("text missing repo: %q", res.Text())
	}
}

func TestGitHubFetchNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	res := client.Fetch(context.Background(), []string{"no-such-user"}, nil)
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	if res.Profile != nil || res.Err != "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestGitHubFetchRateLimitRetries(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"login": "janedoe"})
	})
	mux.HandleFunc("/users/janedoe/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, nil)
	if res.Outcome != OutcomeFound {
		t.Fatalf("outcome = %q: %s", res.Outcome, res.Err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestGitHubFetchRateLimitExhausted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, nil)
	if res.Outcome != OutcomeError {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	if !strings.Contains(res.Err, "rate limit") {
		t.Fatalf("err = %q", res.Err)
	}
}

func TestGitHubFetchRepoFailureKeepsProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"login": "janedoe"})
	})
	mux.HandleFunc("/users/janedoe/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, nil)
	if res.Outcome != OutcomeFound {
		t.Fatalf("outcome = %q: %s", res.Outcome, res.Err)
	}
	if res.Profile == nil || len(res.Repos) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestGitHubFetchRepoSlugWithoutProfile(t *testing.T) {
	var userCalls, repoCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		userCalls++
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/repos/janedoe/ratelimiter", func(w http.ResponseWriter, r *http.Request) {
		repoCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"name": "ratelimiter", "full_name": "janedoe/ratelimiter",
			"language": "Go", "stargazers_count": 40,
		})
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, []string{"janedoe/ratelimiter"})
	if res.Outcome != OutcomeFound {
		t.Fatalf("outcome = %q: %s", res.Outcome, res.Err)
	}
	if userCalls == 0 || repoCalls != 1 {
		t.Fatalf("userCalls = %d, repoCalls = %d", userCalls, repoCalls)
	}
	if res.Profile != nil || len(res.Repos) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Text(), "janedoe/ratelimiter") {
		t.Fatalf("text missing repo: %q", res.Text())
	}
}

func TestGitHubFetchSecondLoginResolves(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"login": "janedoe"})
	})
	mux.HandleFunc("/users/janedoe/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"ghost", "janedoe"}, nil)
	if res.Outcome != OutcomeFound || res.Profile == nil || res.Profile.Login != "janedoe" {
		t.Fatalf("result = %+v", res)
	}
}

func TestGitHubFetchSkipsReposAlreadyListed(t *testing.T) {
	var repoCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/users/janedoe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"login": "janedoe"})
	})
	mux.HandleFunc("/users/janedoe/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "ratelimiter", "full_name": "janedoe/ratelimiter"},
		})
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		repoCalls++
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	res := client.Fetch(context.Background(), []string{"janedoe"}, []string{"janedoe/ratelimiter"})
	if res.Outcome != OutcomeFound || len(res.Repos) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if repoCalls != 0 {
		t.Fatalf("repoCalls = %d, want 0", repoCalls)
	}
}

package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-cardgen/pkg/source/github"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat","name":"The Octocat","followers":42,"public_repos":8,"hireable":true}`))
	})
	mux.HandleFunc("/repos/octocat/gh-metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"gh-metrics","owner":{"login":"octocat"},"language":"Go","stargazers_count":7,"license":{"spdx_id":"MIT"}}`))
	})
	mux.HandleFunc("/repos/octocat/gh-metrics/languages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Go":1200,"Shell":80}`))
	})
	mux.HandleFunc("/repos/octocat/gh-metrics/stats/code_frequency", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[1700000000,120,-40]]`))
	})
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		total := "3"
		if strings.Contains(r.URL.Query().Get("q"), "is:merged") {
			total = "11"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":` + total + `,"items":[]}`))
	})
	mux.HandleFunc("/users/octocat/events/public", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"type":"PushEvent","created_at":"2024-01-02T10:00:00Z"},{"type":"PushEvent","created_at":"2024-01-02T12:00:00Z"}]`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadsProfile(t *testing.T) {
	server := newServer(t)
	src, err := github.New(github.WithBaseURL(server.URL), github.WithToken(" secret "))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	user, err := src.User(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.Name != "The Octocat" || user.Followers != 42 || !user.Hireable {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestSourceReadsRepository(t *testing.T) {
	server := newServer(t)
	src, err := github.New(github.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	repo, err := src.Repository(ctx, "octocat", "gh-metrics")
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	if repo.FullName() != "octocat/gh-metrics" || repo.License != "MIT" || repo.Languages["Go"] != 1200 {
		t.Fatalf("unexpected repository %+v", repo)
	}

	weeks, err := src.CodeFrequency(ctx, "octocat", "gh-metrics")
	if err != nil {
		t.Fatalf("code frequency: %v", err)
	}
	if len(weeks) != 1 || weeks[0].Additions != 120 || weeks[0].Deletions != 40 {
		t.Fatalf("unexpected weeks %+v", weeks)
	}

	stats, err := src.Issues(ctx, "octocat", "octocat/gh-metrics")
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if stats.IssuesOpen != 3 || stats.PullsMerged != 11 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSourceCalendarFoldsEvents(t *testing.T) {
	server := newServer(t)
	src, err := github.New(github.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	days, err := src.Calendar(context.Background(), "octocat", from, from.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(days) != 3 || days[0].Count != 0 || days[1].Count != 2 {
		t.Fatalf("unexpected days %+v", days)
	}
}

func TestSourceWrapsErrors(t *testing.T) {
	server := newServer(t)
	src, err := github.New(github.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = src.User(context.Background(), "ghost")
	if err == nil || !strings.Contains(err.Error(), "github: user ghost") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

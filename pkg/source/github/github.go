// Package github implements source.Source against the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-cardgen/pkg/source"
)

const pageSize = 100

// Source reads profile data through go-github.
type Source struct {
	client *gh.Client
}

var _ source.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*config) error

type config struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// WithToken authenticates requests with a personal access token.
func WithToken(token string) Option {
	return func(c *config) error {
		c.token = strings.TrimSpace(token)
		return nil
	}
}

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise host or a test server.
func WithBaseURL(raw string) Option {
	return func(c *config) error {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("github: invalid base url %q: %w", raw, err)
		}
		c.baseURL = raw
		return nil
	}
}

// WithHTTPClient overrides the transport used when no token is set.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) error {
		c.httpClient = client
		return nil
	}
}

// New builds a Source.
func New(opts ...Option) (*Source, error) {
	cfg := &config{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if cfg.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.token})
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gh.NewClient(httpClient)
	if cfg.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: invalid base url %q: %w", cfg.baseURL, err)
		}
		client.BaseURL = base
	}
	return &Source{client: client}, nil
}

func (s *Source) User(ctx context.Context, login string) (source.User, error) {
	u, _, err := s.client.Users.Get(ctx, login)
	if err != nil {
		return source.User{}, wrap("user", login, err)
	}
	return source.User{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Bio:         u.GetBio(),
		Company:     u.GetCompany(),
		Location:    u.GetLocation(),
		Blog:        u.GetBlog(),
		AvatarURL:   u.GetAvatarURL(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		PublicRepos: u.GetPublicRepos(),
		PublicGists: u.GetPublicGists(),
		Hireable:    u.GetHireable(),
		CreatedAt:   u.GetCreatedAt().Time,
	}, nil
}

func (s *Source) Repositories(ctx context.Context, login string, limit int) ([]source.Repository, error) {
	opts := &gh.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "pushed",
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}
	var out []source.Repository
	for {
		repos, resp, err := s.client.Repositories.ListByUser(ctx, login, opts)
		if err != nil {
			return nil, wrap("repositories", login, err)
		}
		for _, repo := range repos {
			out = append(out, convertRepository(repo))
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (s *Source) Repository(ctx context.Context, owner, name string) (source.Repository, error) {
	repo, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return source.Repository{}, wrap("repository", owner+"/"+name, err)
	}
	out := convertRepository(repo)
	languages, _, err := s.client.Repositories.ListLanguages(ctx, owner, name)
	if err != nil {
		return source.Repository{}, wrap("languages", owner+"/"+name, err)
	}
	out.Languages = languages
	return out, nil
}

func (s *Source) Starred(ctx context.Context, login string, limit int) ([]source.Repository, error) {
	perPage := pageSize
	if limit > 0 && limit < perPage {
		perPage = limit
	}
	starred, _, err := s.client.Activity.ListStarred(ctx, login, &gh.ActivityListStarredOptions{
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, wrap("starred", login, err)
	}
	out := make([]source.Repository, 0, len(starred))
	for _, entry := range starred {
		if entry.Repository == nil {
			continue
		}
		out = append(out, convertRepository(entry.Repository))
	}
	return out, nil
}

// Calendar folds the public event feed into daily counts. The REST API only
// exposes recent events, so older days read as zero.
func (s *Source) Calendar(ctx context.Context, login string, from, to time.Time) ([]source.CalendarDay, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("github: calendar range ends before it starts")
	}
	counts := map[string]int{}
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		events, resp, err := s.client.Activity.ListEventsPerformedByUser(ctx, login, true, opts)
		if err != nil {
			return nil, wrap("events", login, err)
		}
		for _, event := range events {
			counts[event.GetCreatedAt().UTC().Format(time.DateOnly)]++
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	var days []source.CalendarDay
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		days = append(days, source.CalendarDay{Date: day, Count: counts[day.Format(time.DateOnly)]})
	}
	return days, nil
}

func (s *Source) Issues(ctx context.Context, login, repo string) (source.IssueStats, error) {
	scope := "author:" + login
	if repo != "" {
		scope = "repo:" + repo
	}
	var stats source.IssueStats
	queries := []struct {
		query  string
		target *int
	}{
		{"is:issue is:open " + scope, &stats.IssuesOpen},
		{"is:issue is:closed " + scope, &stats.IssuesClosed},
		{"is:pr is:open " + scope, &stats.PullsOpen},
		{"is:pr is:closed is:unmerged " + scope, &stats.PullsClosed},
		{"is:pr is:merged " + scope, &stats.PullsMerged},
	}
	for _, q := range queries {
		result, _, err := s.client.Search.Issues(ctx, q.query, &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 1}})
		if err != nil {
			return source.IssueStats{}, wrap("issues", q.query, err)
		}
		*q.target = result.GetTotal()
	}
	return stats, nil
}

func (s *Source) CodeFrequency(ctx context.Context, owner, name string) ([]source.WeeklyLines, error) {
	weeks, _, err := s.client.Repositories.ListCodeFrequency(ctx, owner, name)
	if err != nil {
		var accepted *gh.AcceptedError
		if errors.As(err, &accepted) {
			return nil, fmt.Errorf("github: code frequency for %s/%s is still being computed: %w", owner, name, err)
		}
		return nil, wrap("code frequency", owner+"/"+name, err)
	}
	out := make([]source.WeeklyLines, 0, len(weeks))
	for _, week := range weeks {
		deletions := week.GetDeletions()
		if deletions < 0 {
			deletions = -deletions
		}
		out = append(out, source.WeeklyLines{
			Week:      week.GetWeek().Time,
			Additions: week.GetAdditions(),
			Deletions: deletions,
		})
	}
	return out, nil
}

func convertRepository(repo *gh.Repository) source.Repository {
	return source.Repository{
		Owner:       repo.GetOwner().GetLogin(),
		Name:        repo.GetName(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		License:     repo.GetLicense().GetSPDXID(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		Watchers:    repo.GetWatchersCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		Fork:        repo.GetFork(),
		Archived:    repo.GetArchived(),
		UpdatedAt:   repo.GetUpdatedAt().Time,
	}
}

func wrap(what, subject string, err error) error {
	var rate *gh.RateLimitError
	if errors.As(err, &rate) {
		return fmt.Errorf("github: %s %s: rate limited until %s: %w", what, subject, rate.Rate.Reset.Time.Format(time.RFC3339), err)
	}
	return fmt.Errorf("github: %s %s: %w", what, subject, err)
}

package plugins

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

// BaseSections are the sections rendered when a request does not list any.
var BaseSections = []string{"header", "activity", "community", "repositories", "metadata"}

// Base gathers the profile summary every card starts with.
type Base struct {
	src source.Source
}

type BaseData struct {
	Sections     []string        `json:"sections"`
	Header       *BaseHeader     `json:"header,omitempty"`
	Activity     *BaseActivity   `json:"activity,omitempty"`
	Community    *BaseCommunity  `json:"community,omitempty"`
	Repositories *BaseRepos      `json:"repositories,omitempty"`
	Metadata     *BaseMetadata   `json:"metadata,omitempty"`
	Repository   *RepositoryCard `json:"repository,omitempty"`
}

type BaseHeader struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
	Hireable bool   `json:"hireable"`
	Joined   int    `json:"joined"`
}

type BaseActivity struct {
	Issues       int `json:"issues"`
	PullRequests int `json:"pull_requests"`
	Merged       int `json:"merged"`
}

type BaseCommunity struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
	Gists     int `json:"gists"`
}

type BaseRepos struct {
	Count    int      `json:"count"`
	Stars    int      `json:"stars"`
	Forks    int      `json:"forks"`
	Licenses []string `json:"licenses"`
}

type BaseMetadata struct {
	Company  string `json:"company"`
	Location string `json:"location"`
	Blog     string `json:"blog"`
}

type RepositoryCard struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	License     string `json:"license"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Watchers    int    `json:"watchers"`
	OpenIssues  int    `json:"open_issues"`
}

func (b *Base) Name() string { return "base" }

func (b *Base) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("base", in); err != nil {
		return nil, err
	}
	sections, err := baseSections(in.BaseSections)
	if err != nil {
		return nil, err
	}

	user, err := b.src.User(ctx, in.User)
	if err != nil {
		return nil, fmt.Errorf("plugins: base: %w", err)
	}

	data := BaseData{Sections: sections}
	for _, section := range sections {
		switch section {
		case "header":
			data.Header = &BaseHeader{
				Login:    user.Login,
				Name:     user.Name,
				Bio:      user.Bio,
				Avatar:   user.AvatarURL,
				Hireable: options.Bool(in.Base, "hireable", false) && user.Hireable,
				Joined:   user.CreatedAt.Year(),
			}
		case "activity":
			stats, err := b.src.Issues(ctx, in.User, "")
			if err != nil {
				return nil, fmt.Errorf("plugins: base: activity: %w", err)
			}
			data.Activity = &BaseActivity{
				Issues:       stats.IssuesOpen + stats.IssuesClosed,
				PullRequests: stats.PullsOpen + stats.PullsClosed + stats.PullsMerged,
				Merged:       stats.PullsMerged,
			}
		case "community":
			data.Community = &BaseCommunity{
				Followers: user.Followers,
				Following: user.Following,
				Gists:     user.PublicGists,
			}
		case "repositories":
			repos, err := b.repositories(ctx, in)
			if err != nil {
				return nil, err
			}
			data.Repositories = repos
		case "metadata":
			data.Metadata = &BaseMetadata{Company: user.Company, Location: user.Location, Blog: user.Blog}
		}
	}

	if owner, name, ok := repositoryTarget(in); ok {
		repo, err := b.src.Repository(ctx, owner, name)
		if err != nil {
			return nil, fmt.Errorf("plugins: base: repository: %w", err)
		}
		data.Repository = &RepositoryCard{
			FullName:    repo.FullName(),
			Description: repo.Description,
			Language:    repo.Language,
			License:     repo.License,
			Stars:       repo.Stars,
			Forks:       repo.Forks,
			Watchers:    repo.Watchers,
			OpenIssues:  repo.OpenIssues,
		}
	}
	return data, nil
}

func (b *Base) repositories(ctx context.Context, in render.Input) (*BaseRepos, error) {
	repos, err := b.src.Repositories(ctx, in.User, options.Int(in.Base, "repositories.limit", 0))
	if err != nil {
		return nil, fmt.Errorf("plugins: base: repositories: %w", err)
	}
	includeForks := options.Bool(in.Base, "repositories.forks", true)

	out := &BaseRepos{Licenses: []string{}}
	licenses := map[string]bool{}
	for _, repo := range repos {
		if repo.Fork && !includeForks {
			continue
		}
		out.Count++
		out.Stars += repo.Stars
		out.Forks += repo.Forks
		if repo.License != "" && !licenses[repo.License] {
			licenses[repo.License] = true
			out.Licenses = append(out.Licenses, repo.License)
		}
	}
	sort.Strings(out.Licenses)
	return out, nil
}

// baseSections applies the defaults to the requested sections. nil means
// every section.
func baseSections(requested []string) ([]string, error) {
	if requested == nil {
		return append([]string{}, BaseSections...), nil
	}
	out := make([]string, 0, len(requested))
	for _, section := range requested {
		if !slices.Contains(BaseSections, section) {
			return nil, fmt.Errorf("plugins: base: unknown section %q", section)
		}
		if !slices.Contains(out, section) {
			out = append(out, section)
		}
	}
	return out, nil
}

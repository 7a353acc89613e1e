// Package source defines the data collaborators plugins read from. The Mock
// implementation is deterministic for a given login, so renders backed by it
// are reproducible; the github subpackage talks to the GitHub REST API.
package source

import (
	"context"
	"time"
)

type User struct {
	Login       string
	Name        string
	Bio         string
	Company     string
	Location    string
	Blog        string
	AvatarURL   string
	Followers   int
	Following   int
	PublicRepos int
	PublicGists int
	Hireable    bool
	CreatedAt   time.Time
}

type Repository struct {
	Owner       string
	Name        string
	Description string
	Language    string
	License     string
	Stars       int
	Forks       int
	Watchers    int
	OpenIssues  int
	Fork        bool
	Archived    bool
	Languages   map[string]int
	UpdatedAt   time.Time
}

// FullName is owner/name.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

type CalendarDay struct {
	Date  time.Time
	Count int
}

type IssueStats struct {
	IssuesOpen   int
	IssuesClosed int
	PullsOpen    int
	PullsClosed  int
	PullsMerged  int
}

// WeeklyLines is one week of code frequency.
type WeeklyLines struct {
	Week      time.Time
	Additions int
	Deletions int
}

// Source is the data collaborator plugins gather from.
type Source interface {
	User(ctx context.Context, login string) (User, error)
	Repositories(ctx context.Context, login string, limit int) ([]Repository, error)
	Repository(ctx context.Context, owner, name string) (Repository, error)
	Starred(ctx context.Context, login string, limit int) ([]Repository, error)
	Calendar(ctx context.Context, login string, from, to time.Time) ([]CalendarDay, error)
	Issues(ctx context.Context, login, repo string) (IssueStats, error)
	CodeFrequency(ctx context.Context, owner, name string) ([]WeeklyLines, error)
}

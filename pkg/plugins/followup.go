package plugins

import (
	"context"
	"fmt"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

// Followup reports issue and pull request counts, either authored by the
// user or filed against the target repository.
type Followup struct {
	src source.Source
}

type FollowupData struct {
	Sections []string       `json:"sections"`
	Scope    string         `json:"scope"`
	Issues   FollowupCounts `json:"issues"`
	Pulls    FollowupCounts `json:"pulls"`
}

type FollowupCounts struct {
	Open   int     `json:"open"`
	Closed int     `json:"closed"`
	Merged int     `json:"merged,omitempty"`
	Total  int     `json:"total"`
	Ratio  float64 `json:"ratio"`
}

func (f *Followup) Name() string { return "followup" }

func (f *Followup) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("followup", in); err != nil {
		return nil, err
	}
	sections := options.List(in.Options, "sections")
	if len(sections) == 0 {
		sections = []string{"repositories"}
	}
	for _, section := range sections {
		if section != "repositories" && section != "user" {
			return nil, fmt.Errorf("plugins: followup: unknown section %q", section)
		}
	}

	repo := ""
	scope := in.User
	if owner, name, ok := repositoryTarget(in); ok {
		repo = owner + "/" + name
		scope = repo
	}
	stats, err := f.src.Issues(ctx, in.User, repo)
	if err != nil {
		return nil, fmt.Errorf("plugins: followup: %w", err)
	}

	issues := FollowupCounts{Open: stats.IssuesOpen, Closed: stats.IssuesClosed}
	pulls := FollowupCounts{Open: stats.PullsOpen, Closed: stats.PullsClosed, Merged: stats.PullsMerged}
	issues.Total = issues.Open + issues.Closed
	pulls.Total = pulls.Open + pulls.Closed + pulls.Merged
	if issues.Total > 0 {
		issues.Ratio = float64(issues.Closed) / float64(issues.Total)
	}
	if pulls.Total > 0 {
		pulls.Ratio = float64(pulls.Merged) / float64(pulls.Total)
	}
	return FollowupData{Sections: sections, Scope: scope, Issues: issues, Pulls: pulls}, nil
}

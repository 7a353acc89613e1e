package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

const defaultLinesRepositories = 4

// Lines sums weekly additions and deletions. Without a target repository it
// walks the user's top repositories.
type Lines struct {
	src source.Source
}

type LinesData struct {
	Added   int         `json:"added"`
	Deleted int         `json:"deleted"`
	Changed int         `json:"changed"`
	History []LinesWeek `json:"history"`
}

type LinesWeek struct {
	Week    string `json:"week"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

func (l *Lines) Name() string { return "lines" }

func (l *Lines) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("lines", in); err != nil {
		return nil, err
	}

	var targets [][2]string
	if owner, name, ok := repositoryTarget(in); ok {
		targets = append(targets, [2]string{owner, name})
	} else {
		repos, err := l.src.Repositories(ctx, in.User, options.Int(in.Options, "repositories.limit", defaultLinesRepositories))
		if err != nil {
			return nil, fmt.Errorf("plugins: lines: %w", err)
		}
		for _, repo := range repos {
			targets = append(targets, [2]string{repo.Owner, repo.Name})
		}
	}

	byWeek := map[string]*LinesWeek{}
	var order []string
	data := LinesData{History: []LinesWeek{}}
	for _, target := range targets {
		weeks, err := l.src.CodeFrequency(ctx, target[0], target[1])
		if err != nil {
			return nil, fmt.Errorf("plugins: lines: %w", err)
		}
		for _, week := range weeks {
			data.Added += week.Additions
			data.Deleted += week.Deletions
			key := week.Week.UTC().Format("2006-01-02")
			entry, ok := byWeek[key]
			if !ok {
				entry = &LinesWeek{Week: key}
				byWeek[key] = entry
				order = append(order, key)
			}
			entry.Added += week.Additions
			entry.Deleted += week.Deletions
		}
	}
	data.Changed = data.Added + data.Deleted
	sort.Strings(order)

	limit := options.Int(in.Options, "history.limit", 0)
	if limit > 0 && len(order) > limit {
		order = order[len(order)-limit:]
	}
	for _, key := range order {
		data.History = append(data.History, *byWeek[key])
	}
	return data, nil
}

package plugins

import (
	"context"
	"fmt"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

const defaultStarsLimit = 4

// Stars lists recently starred repositories.
type Stars struct {
	src source.Source
}

type StarsData struct {
	Repositories []StarredRepository `json:"repositories"`
}

type StarredRepository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
}

func (s *Stars) Name() string { return "stars" }

func (s *Stars) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("stars", in); err != nil {
		return nil, err
	}
	limit := options.Int(in.Options, "limit", defaultStarsLimit)
	if limit <= 0 || limit > 100 {
		return nil, fmt.Errorf("plugins: stars: limit must be between 1 and 100, got %d", limit)
	}
	repos, err := s.src.Starred(ctx, in.User, limit)
	if err != nil {
		return nil, fmt.Errorf("plugins: stars: %w", err)
	}
	data := StarsData{Repositories: make([]StarredRepository, 0, len(repos))}
	for _, repo := range repos {
		data.Repositories = append(data.Repositories, StarredRepository{
			FullName:    repo.FullName(),
			Description: repo.Description,
			Language:    repo.Language,
			Stars:       repo.Stars,
			Forks:       repo.Forks,
		})
	}
	return data, nil
}

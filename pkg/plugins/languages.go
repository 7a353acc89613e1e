package plugins

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

const defaultLanguagesLimit = 8

var languageColors = map[string]string{
	"go":         "#00ADD8",
	"typescript": "#3178C6",
	"javascript": "#F1E05A",
	"python":     "#3572A5",
	"rust":       "#DEA584",
	"shell":      "#89E051",
	"html":       "#E34C26",
	"css":        "#563D7C",
}

// Languages aggregates language sizes across the user's repositories, or
// across a single repository when the request targets one.
type Languages struct {
	src source.Source
}

type LanguagesData struct {
	Total   int        `json:"total"`
	Details string     `json:"details"`
	Entries []Language `json:"entries"`
}

type Language struct {
	Name  string  `json:"name"`
	Size  int     `json:"size"`
	Ratio float64 `json:"ratio"`
	Color string  `json:"color"`
}

func (l *Languages) Name() string { return "languages" }

func (l *Languages) Gather(ctx context.Context, in render.Input) (any, error) {
	if err := requireUser("languages", in); err != nil {
		return nil, err
	}

	var repos []source.Repository
	if owner, name, ok := repositoryTarget(in); ok {
		repo, err := l.src.Repository(ctx, owner, name)
		if err != nil {
			return nil, fmt.Errorf("plugins: languages: %w", err)
		}
		repos = []source.Repository{repo}
	} else {
		list, err := l.src.Repositories(ctx, in.User, 0)
		if err != nil {
			return nil, fmt.Errorf("plugins: languages: %w", err)
		}
		repos = list
	}

	ignored := options.List(in.Options, "ignored")
	sizes := map[string]int{}
	for _, repo := range repos {
		if repo.Fork && options.Bool(in.Options, "skip.forks", true) {
			continue
		}
		for lang, size := range repo.Languages {
			if slices.Contains(ignored, strings.ToLower(lang)) {
				continue
			}
			sizes[lang] += size
		}
	}

	data := LanguagesData{
		Details: options.String(in.Options, "details", "bytes"),
		Entries: []Language{},
	}
	for lang, size := range sizes {
		data.Total += size
		data.Entries = append(data.Entries, Language{Name: lang, Size: size, Color: colorFor(lang)})
	}
	sort.Slice(data.Entries, func(i, j int) bool {
		if data.Entries[i].Size != data.Entries[j].Size {
			return data.Entries[i].Size > data.Entries[j].Size
		}
		return data.Entries[i].Name < data.Entries[j].Name
	})
	if limit := options.Int(in.Options, "limit", defaultLanguagesLimit); limit > 0 && len(data.Entries) > limit {
		data.Entries = data.Entries[:limit]
	}
	for i := range data.Entries {
		if data.Total > 0 {
			data.Entries[i].Ratio = float64(data.Entries[i].Size) / float64(data.Total)
		}
	}
	return data, nil
}

func colorFor(lang string) string {
	if color, ok := languageColors[strings.ToLower(lang)]; ok {
		return color
	}
	return "#959DA5"
}

// Package templates holds the built-in card templates. Each template is a
// pongo2 source rendered through the gotemplate engine, themed by a go-theme
// manifest with light and dark variants.
package templates

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/sprig/v3"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	rendertemplate "github.com/goliatone/go-cardgen/pkg/render/template"
	"github.com/goliatone/go-cardgen/pkg/render/template/gotemplate"
)

// ContentType of every built-in template.
const ContentType = "image/svg+xml"

//go:embed sources/*.tpl
var embedded embed.FS

// sprigAllowlist names the sprig helpers templates may call.
var sprigAllowlist = []string{"abbrev", "initials", "lower", "title", "trunc", "upper"}

// Template renders one built-in card.
type Template struct {
	name         string
	renderer     rendertemplate.Renderer
	selector     theme.ThemeSelector
	blocks       []blockSpec
	width        int
	requiresRepo bool
	policy       *bluemonday.Policy
}

var _ render.Template = (*Template)(nil)

// Option customises a built-in template.
type Option func(*settings)

type settings struct {
	renderer rendertemplate.Renderer
	sources  fs.FS
	selector theme.ThemeSelector
}

// WithRenderer renders through a caller supplied engine. The engine must
// resolve the template file named by the theme manifest.
func WithRenderer(r rendertemplate.Renderer) Option {
	return func(s *settings) {
		s.renderer = r
	}
}

// WithSources loads template sources from fsys instead of the embedded set.
func WithSources(fsys fs.FS) Option {
	return func(s *settings) {
		s.sources = fsys
	}
}

// WithThemeSelector overrides theme resolution.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(s *settings) {
		s.selector = selector
	}
}

// Names lists the built-in template ids.
func Names() []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the built-in template name.
func New(name string, opts ...Option) (*Template, error) {
	layout, ok := layouts[name]
	if !ok {
		return nil, fmt.Errorf("templates: unknown template %q", name)
	}
	s := settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.selector == nil {
		selector, err := defaultSelector()
		if err != nil {
			return nil, err
		}
		s.selector = selector
	}
	if s.renderer == nil {
		renderer, err := newRenderer(s.sources)
		if err != nil {
			return nil, err
		}
		s.renderer = renderer
	}
	return &Template{
		name:         name,
		renderer:     s.renderer,
		selector:     s.selector,
		blocks:       layout.blocks,
		width:        layout.width,
		requiresRepo: layout.requiresRepo,
		policy:       bluemonday.StrictPolicy(),
	}, nil
}

// All builds every built-in template sharing one engine.
func All(opts ...Option) ([]render.Template, error) {
	s := settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.renderer == nil {
		renderer, err := newRenderer(s.sources)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRenderer(renderer))
	}

	out := make([]render.Template, 0, len(layouts))
	for _, name := range Names() {
		tmpl, err := New(name, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// Source returns the raw source of a built-in template.
func Source(name string) ([]byte, error) {
	if _, ok := layouts[name]; !ok {
		return nil, fmt.Errorf("templates: unknown template %q", name)
	}
	data, err := fs.ReadFile(embedded, "sources/"+name+".tpl")
	if err != nil {
		return nil, fmt.Errorf("templates: read %s source: %w", name, err)
	}
	return data, nil
}

var sprigFuncs = sync.OnceValue(func() map[string]any {
	all := sprig.TxtFuncMap()
	out := make(map[string]any, len(sprigAllowlist))
	for _, name := range sprigAllowlist {
		if fn, ok := all[name]; ok {
			out[name] = fn
		}
	}
	return out
})

func newRenderer(sources fs.FS) (rendertemplate.Renderer, error) {
	if sources == nil {
		sub, err := fs.Sub(embedded, "sources")
		if err != nil {
			return nil, fmt.Errorf("templates: open embedded sources: %w", err)
		}
		sources = sub
	}
	engine, err := gotemplate.New(
		gotemplate.WithFS(sources),
		gotemplate.WithGlobals(sprigFuncs()),
	)
	if err != nil {
		return nil, fmt.Errorf("templates: build engine: %w", err)
	}
	return engine, nil
}

func (t *Template) Name() string        { return t.name }
func (t *Template) ContentType() string { return ContentType }

// Render lays out the plugin data that survived gathering and executes the
// themed source.
func (t *Template) Render(ctx context.Context, view render.View) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	repo, _ := view.Query["repo"].(string)
	if t.requiresRepo && strings.TrimSpace(repo) == "" {
		return "", fmt.Errorf("templates: %s: query.repo is required", t.name)
	}

	variant := options.String(view.Config, "theme.variant", "")
	selection, err := t.selector.Select(t.name, variant)
	if err != nil {
		return "", fmt.Errorf("templates: %s: select theme: %w", t.name, err)
	}
	if selection == nil || selection.Manifest == nil {
		return "", fmt.Errorf("templates: %s: theme selection is empty", t.name)
	}
	cfg := rendererConfig(selection)
	file := cfg.Partials[cardPartial]
	if file == "" {
		return "", fmt.Errorf("templates: %s: theme %q does not name a %q template", t.name, cfg.Theme, cardPartial)
	}

	data, err := t.sanitize(view.Plugins)
	if err != nil {
		return "", fmt.Errorf("templates: %s: %w", t.name, err)
	}
	layout := t.layout(data)

	out, err := t.renderer.RenderTemplate(file, map[string]any{
		"user":    t.clean(view.User),
		"avatar":  view.Avatar,
		"version": view.Version,
		"enabled": view.Enabled,
		"plugins": data,
		"repo":    t.clean(repo),
		"layout":  layout,
		"theme": map[string]any{
			"name":    cfg.Theme,
			"variant": cfg.Variant,
			"tokens":  cfg.Tokens,
			"style":   cssVarsStyle(cfg.CSSVars),
		},
	})
	if err != nil {
		return "", fmt.Errorf("templates: %s: %w", t.name, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("templates: %s: rendered an empty artifact", t.name)
	}
	return out, nil
}

// FS exposes the built-in template sources as <name>.tpl files.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "sources")
	if err != nil {
		return embedded
	}
	return sub
}

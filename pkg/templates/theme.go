package templates

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

const (
	cardPartial  = "card"
	themeVersion = "1.0.0"
)

var githubLight = map[string]string{
	"background": "#FFFFFF",
	"text":       "#24292F",
	"muted":      "#57606A",
	"accent":     "#0969DA",
	"border":     "#D0D7DE",
}

var githubDark = map[string]string{
	"background": "#0D1117",
	"text":       "#C9D1D9",
	"muted":      "#8B949E",
	"accent":     "#58A6FF",
	"border":     "#30363D",
}

func manifests() []*theme.Manifest {
	return []*theme.Manifest{
		{
			Name:      "classic",
			Version:   themeVersion,
			Tokens:    maps.Clone(githubLight),
			Templates: map[string]string{cardPartial: "classic.tpl"},
			Variants: map[string]theme.Variant{
				"light": {},
				"dark":  {Tokens: maps.Clone(githubDark)},
			},
		},
		{
			Name:    "terminal",
			Version: themeVersion,
			Tokens: map[string]string{
				"background": "#1E1E1E",
				"text":       "#D4D4D4",
				"muted":      "#9DA5B4",
				"accent":     "#4EC9B0",
				"border":     "#3C3C3C",
				"prompt":     "#569CD6",
			},
			Templates: map[string]string{cardPartial: "terminal.tpl"},
			Variants: map[string]theme.Variant{
				"dark": {},
				"light": {Tokens: map[string]string{
					"background": "#F5F5F5",
					"text":       "#1E1E1E",
					"muted":      "#6A737D",
					"accent":     "#008080",
					"border":     "#D0D0D0",
					"prompt":     "#0451A5",
				}},
			},
		},
		{
			Name:      "repository",
			Version:   themeVersion,
			Tokens:    maps.Clone(githubLight),
			Templates: map[string]string{cardPartial: "repository.tpl"},
			Variants: map[string]theme.Variant{
				"light": {},
				"dark":  {Tokens: maps.Clone(githubDark)},
			},
		},
	}
}

// Selector resolves built-in theme manifests by template name.
type Selector struct {
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*Selector)(nil)

// NewSelector registers manifests with a go-theme registry, which validates
// them, and serves selections from them.
func NewSelector(list ...*theme.Manifest) (*Selector, error) {
	registry := theme.NewRegistry()
	s := &Selector{manifests: make(map[string]*theme.Manifest, len(list))}
	for _, manifest := range list {
		if manifest == nil {
			continue
		}
		if err := registry.Register(manifest); err != nil {
			return nil, fmt.Errorf("templates: register theme %q: %w", manifest.Name, err)
		}
		s.manifests[manifest.Name] = manifest
	}
	return s, nil
}

var defaultSelector = sync.OnceValues(func() (*Selector, error) {
	return NewSelector(manifests()...)
})

// Select implements theme.ThemeSelector. An empty variant selects the
// manifest's base tokens.
func (s *Selector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q", name)
	}
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// rendererConfig flattens a selection: variant tokens and templates
// override the manifest's, and every token becomes a --token CSS variable.
func rendererConfig(sel *theme.Selection) *theme.RendererConfig {
	cfg := &theme.RendererConfig{
		Theme:    sel.Theme,
		Variant:  sel.Variant,
		Tokens:   maps.Clone(sel.Manifest.Tokens),
		Partials: maps.Clone(sel.Manifest.Templates),
		CSSVars:  map[string]string{},
	}
	if cfg.Tokens == nil {
		cfg.Tokens = map[string]string{}
	}
	if cfg.Partials == nil {
		cfg.Partials = map[string]string{}
	}
	if variant, ok := sel.Manifest.Variants[sel.Variant]; ok {
		maps.Copy(cfg.Tokens, variant.Tokens)
		maps.Copy(cfg.Partials, variant.Templates)
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}
	return cfg
}

func cssVarsStyle(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s; ", key, vars[key])
	}
	return strings.TrimSpace(b.String())
}

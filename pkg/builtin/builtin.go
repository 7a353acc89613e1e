// Package builtin wires the bundled capability manifests, plugins and
// templates into a rendering engine.
package builtin

import (
	"fmt"
	"time"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/plugins"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/templates"
)

// Option configures NewEngine.
type Option func(*settings)

type settings struct {
	engine    []render.Option
	plugins   []plugins.Option
	templates []templates.Option
}

// WithEngineOptions forwards options to render.NewEngine.
func WithEngineOptions(opts ...render.Option) Option {
	return func(s *settings) {
		s.engine = append(s.engine, opts...)
	}
}

// WithClock fixes the reference time of time-windowed plugins.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.plugins = append(s.plugins, plugins.WithClock(now))
	}
}

// WithTemplateOptions forwards options to the built-in templates.
func WithTemplateOptions(opts ...templates.Option) Option {
	return func(s *settings) {
		s.templates = append(s.templates, opts...)
	}
}

// NewEngine builds an engine over src with every bundled plugin and
// template registered.
func NewEngine(src source.Source, opts ...Option) (*render.Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("builtin: data source is required")
	}
	s := settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	caps, err := capability.Load()
	if err != nil {
		return nil, err
	}
	tmpls, err := templates.All(s.templates...)
	if err != nil {
		return nil, err
	}
	engineOpts := []render.Option{
		render.WithCapabilities(caps),
		render.WithPlugins(plugins.All(src, s.plugins...)...),
		render.WithTemplates(tmpls...),
	}
	return render.NewEngine(append(engineOpts, s.engine...)...)
}

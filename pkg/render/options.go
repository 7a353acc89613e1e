package render

import (
	"time"

	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
)

// Capabilities is the read-only metadata the engine re-checks on every
// render.
type Capabilities interface {
	Plugin(id string) (model.PluginMetadata, error)
	Template(id string) (model.TemplateMetadata, error)
}

// Observer receives timing and outcome events. The service wires its
// Prometheus collectors through it.
type Observer interface {
	PluginGathered(plugin string, attempts int, err error, elapsed time.Duration)
	TemplateRendered(template string, err error, elapsed time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapabilities sets the metadata registry.
func WithCapabilities(caps Capabilities) Option {
	return func(e *Engine) {
		e.caps = caps
	}
}

// WithPlugins registers plugins on the engine's plugin registry.
func WithPlugins(plugins ...Plugin) Option {
	return func(e *Engine) {
		for _, p := range plugins {
			if err := e.plugins.Register(p); err != nil {
				e.errs = append(e.errs, err)
			}
		}
	}
}

// WithTemplates registers templates on the engine's template registry.
func WithTemplates(templates ...Template) Option {
	return func(e *Engine) {
		for _, t := range templates {
			if err := e.templates.Register(t); err != nil {
				e.errs = append(e.errs, err)
			}
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRetryBackoff sets the constant pause between gather attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// WithPluginTimeout bounds every gather attempt. Zero disables the bound.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.pluginTimeout = d
		}
	}
}

// WithDefaultTemplate sets the template used when a request names none.
func WithDefaultTemplate(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.defaultTemplate = name
		}
	}
}

// WithObserver installs an event observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

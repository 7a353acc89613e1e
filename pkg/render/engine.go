// Package render is the rendering core: it turns a canonical request into an
// artifact by running the enabled plugins concurrently, waiting for all of
// them, then handing the collected data to the selected template.
//
// The engine holds no per-request state, so a single Engine may serve
// concurrent renders.
package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

const (
	// DefaultTemplate is rendered when a request does not name a template.
	DefaultTemplate = "classic"
	// BasePlugin runs implicitly unless its sections are disabled.
	BasePlugin = "base"

	defaultBackoff = 250 * time.Millisecond
)

// Engine renders canonical requests.
type Engine struct {
	caps            Capabilities
	plugins         *PluginRegistry
	templates       *TemplateRegistry
	logger          logger.Logger
	observer        Observer
	backoff         time.Duration
	pluginTimeout   time.Duration
	defaultTemplate string
	errs            []error
}

// NewEngine builds an engine. A capabilities registry is required.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		plugins:         NewPluginRegistry(),
		templates:       NewTemplateRegistry(),
		logger:          logger.Nop(),
		backoff:         defaultBackoff,
		defaultTemplate: DefaultTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if len(e.errs) > 0 {
		return nil, fmt.Errorf("render: configure engine: %w", errors.Join(e.errs...))
	}
	if e.caps == nil {
		return nil, fmt.Errorf("render: capabilities are required")
	}
	return e, nil
}

// Plugins exposes the plugin registry.
func (e *Engine) Plugins() *PluginRegistry {
	return e.plugins
}

// Templates exposes the template registry.
func (e *Engine) Templates() *TemplateRegistry {
	return e.templates
}

// Outcome renders req and reduces the result to a model.Outcome.
func (e *Engine) Outcome(ctx context.Context, req model.Request) model.Outcome {
	result, err := e.Render(ctx, req)
	if err != nil {
		return model.Failure(err)
	}
	return model.Success(result.Artifact)
}

// Render resolves the template and plugins of req, gathers plugin data
// concurrently and renders the template once every plugin has reported.
//
// Plugin failures abort the render with a PluginFailure when
// req.PluginsErrorsFatal is set; otherwise the failing plugins are left out
// of the view. Template failures are always fatal.
func (e *Engine) Render(ctx context.Context, req model.Request) (Result, error) {
	templateID := req.Template
	if templateID == "" {
		templateID = e.defaultTemplate
	}
	log := e.logger.With("template", templateID, "user", req.User)

	tmpl, tmplMeta, err := e.resolveTemplate(templateID)
	if err != nil {
		return Result{}, err
	}

	ids := e.enabledPlugins(req)
	plugins, err := e.resolvePlugins(tmplMeta, ids)
	if err != nil {
		return Result{}, err
	}

	results, data, err := e.gather(ctx, req, templateID, plugins)
	if err != nil {
		log.Warn("plugin failure aborted render", "error", err)
		return Result{}, err
	}

	view := View{
		Template:     templateID,
		User:         req.User,
		Avatar:       req.Avatar,
		Version:      req.Version,
		Plugins:      data,
		Enabled:      sortedKeys(data),
		Config:       options.Unflatten(req.Config),
		Base:         options.Unflatten(req.BaseOptions),
		BaseSections: req.BaseSections,
		Query:        req.Query,
	}

	started := time.Now()
	artifact, err := tmpl.Render(ctx, view)
	if e.observer != nil {
		e.observer.TemplateRendered(templateID, err, time.Since(started))
	}
	if err != nil {
		log.Error("template render failed", "error", err)
		return Result{}, model.NewError(model.KindRenderFailure, templateID, "render", err)
	}

	log.Debug("render complete", "plugins", len(plugins), "failed", len(plugins)-len(data))
	return Result{
		Template:    templateID,
		ContentType: tmpl.ContentType(),
		Artifact:    artifact,
		Plugins:     results,
	}, nil
}

func (e *Engine) resolveTemplate(id string) (Template, model.TemplateMetadata, error) {
	meta, err := e.caps.Template(id)
	if err != nil {
		return nil, model.TemplateMetadata{}, err
	}
	tmpl, err := e.templates.Get(id)
	if err != nil {
		return nil, model.TemplateMetadata{}, err
	}
	return tmpl, meta, nil
}

// resolvePlugins re-checks compatibility at request time: a live request can
// combine plugins and templates no catalog case ever exercised.
func (e *Engine) resolvePlugins(tmpl model.TemplateMetadata, ids []string) ([]Plugin, error) {
	out := make([]Plugin, 0, len(ids))
	for _, id := range ids {
		meta, err := e.caps.Plugin(id)
		if err != nil {
			return nil, err
		}
		if !tmpl.Compatible(id) {
			return nil, model.Errorf(model.KindIncompatiblePlugin, id, "template %q does not accept this plugin", tmpl.ID)
		}
		for _, required := range tmpl.Requires {
			if !meta.Supports(required) {
				return nil, model.Errorf(model.KindIncompatiblePlugin, id, "template %q requires %q support", tmpl.ID, required)
			}
		}
		plugin, err := e.plugins.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, plugin)
	}
	return out, nil
}

func (e *Engine) enabledPlugins(req model.Request) []string {
	ids := req.EnabledPlugins()
	if _, explicit := req.Plugins[BasePlugin]; explicit || !e.plugins.Has(BasePlugin) {
		return ids
	}
	if req.BaseSections != nil && len(req.BaseSections) == 0 {
		return ids
	}
	ids = append(ids, BasePlugin)
	sort.Strings(ids)
	return ids
}

// gather runs every plugin in its own goroutine. Each goroutine writes only
// its own slot, and Wait is the join barrier: nothing reads the slots before
// every plugin has returned.
func (e *Engine) gather(ctx context.Context, req model.Request, templateID string, plugins []Plugin) ([]PluginResult, map[string]any, error) {
	results := make([]PluginResult, len(plugins))
	values := make([]any, len(plugins))

	config := options.Unflatten(req.Config)
	base := options.Unflatten(req.BaseOptions)

	g, gctx := errgroup.WithContext(ctx)
	for i, plugin := range plugins {
		in := Input{
			Template:     templateID,
			User:         req.User,
			Options:      options.ForPlugin(req, plugin.Name()),
			Config:       config,
			Base:         base,
			BaseSections: req.BaseSections,
			Query:        req.Query,
		}
		g.Go(func() error {
			started := time.Now()
			value, attempts, err := e.gatherOne(gctx, plugin, in, req.Retries)
			if e.observer != nil {
				e.observer.PluginGathered(plugin.Name(), attempts, err, time.Since(started))
			}
			results[i] = PluginResult{Name: plugin.Name(), Attempts: attempts, Err: err}
			if err != nil {
				e.logger.Warn("plugin failed", "plugin", plugin.Name(), "attempts", attempts, "error", err)
				if req.PluginsErrorsFatal {
					return model.NewError(model.KindPluginFailure, plugin.Name(), "gather", err)
				}
				return nil
			}
			values[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	data := make(map[string]any, len(plugins))
	for i, res := range results {
		if res.Err == nil {
			data[res.Name] = values[i]
		}
	}
	return results, data, nil
}

// gatherOne calls the plugin once plus up to retries extra attempts.
func (e *Engine) gatherOne(ctx context.Context, plugin Plugin, in Input, retries int) (any, int, error) {
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(max(retries, 0)), retry.NewConstant(e.backoff))
	value, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (any, error) {
		attempts++
		attemptCtx, cancel := e.attemptContext(ctx)
		defer cancel()

		in.Attempt = attempts
		value, err := plugin.Gather(attemptCtx, in)
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		return value, nil
	})
	return value, attempts, err
}

func (e *Engine) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.pluginTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.pluginTimeout)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

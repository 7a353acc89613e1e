// Package embedded is the in-process surface: a single call taking
// structured options and injected collaborators, returning the rendered
// artifact or a typed error.
package embedded

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"

	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/surface"
	"github.com/goliatone/go-cardgen/pkg/templates"
)

// TemplatePath is the service route serving raw template sources.
const TemplatePath = "/.templates/"

// Collaborators are the dependencies a host injects. Zero fields fall back
// to the bundled templates, the mock data source and the wall clock.
type Collaborators struct {
	// Templating resolves the source of a template by name.
	Templating func(ctx context.Context, name string) ([]byte, error)
	// Data replaces the upstream APIs.
	Data source.Source
	// HTTP reaches the service surface only. When set and Templating is
	// nil, template sources are fetched from the service.
	HTTP *resty.Client
	// Clock fixes the reference time of time-windowed plugins.
	Clock func() time.Time
	// Engine options forwarded to the rendering core.
	Engine []render.Option
}

// ServiceClient returns a client bound to baseURL that refuses requests to
// any other host.
func ServiceClient(baseURL string, timeout time.Duration) (*resty.Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("surface/embedded: invalid service url %q", baseURL)
	}
	client := resty.New().SetBaseURL(base.String())
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		target, err := url.Parse(req.URL)
		if err != nil {
			return fmt.Errorf("surface/embedded: parse %q: %w", req.URL, err)
		}
		if target.IsAbs() && target.Host != base.Host {
			return fmt.Errorf("surface/embedded: %s is outside the service %s", target.Host, base.Host)
		}
		return nil
	})
	return client, nil
}

// FetchTemplate returns a Templating collaborator reading sources from the
// service over client.
func FetchTemplate(client *resty.Client) func(context.Context, string) ([]byte, error) {
	return func(ctx context.Context, name string) ([]byte, error) {
		resp, err := client.R().SetContext(ctx).Get(TemplatePath + url.PathEscape(name))
		if err != nil {
			return nil, fmt.Errorf("surface/embedded: fetch template %s: %w", name, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("surface/embedded: fetch template %s: status %d", name, resp.StatusCode())
		}
		return resp.Body(), nil
	}
}

func (c Collaborators) templating() func(context.Context, string) ([]byte, error) {
	switch {
	case c.Templating != nil:
		return c.Templating
	case c.HTTP != nil:
		return FetchTemplate(c.HTTP)
	default:
		return func(_ context.Context, name string) ([]byte, error) {
			return templates.Source(name)
		}
	}
}

// Render produces the artifact for opts. Failures are *model.Error values
// carrying their kind.
func Render(ctx context.Context, opts Options, collab Collaborators) (string, error) {
	req, err := opts.Request()
	if err != nil {
		return "", err
	}
	engine, err := newEngine(ctx, req.Template, collab)
	if err != nil {
		return "", err
	}
	result, err := engine.Render(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Artifact) == "" {
		return "", model.Errorf(model.KindRenderFailure, result.Template, "empty artifact")
	}
	return result.Artifact, nil
}

// newEngine builds an engine whose template sources come from the
// templating collaborator. Only the selected template is resolved; an
// unknown name is left for the engine to report.
func newEngine(ctx context.Context, selected string, collab Collaborators) (*render.Engine, error) {
	if selected == "" {
		selected = render.DefaultTemplate
	}
	sources := afero.NewMemMapFs()
	if slices.Contains(templates.Names(), selected) {
		data, err := collab.templating()(ctx, selected)
		if err != nil {
			return nil, model.NewError(model.KindRenderFailure, selected, "load template source", err)
		}
		if err := afero.WriteFile(sources, selected+".tpl", data, 0o644); err != nil {
			return nil, fmt.Errorf("surface/embedded: stage template %s: %w", selected, err)
		}
	}

	data := collab.Data
	if data == nil {
		data = source.NewMock()
	}
	opts := []builtin.Option{
		builtin.WithTemplateOptions(templates.WithSources(afero.NewIOFS(sources))),
		builtin.WithEngineOptions(collab.Engine...),
	}
	if collab.Clock != nil {
		opts = append(opts, builtin.WithClock(collab.Clock))
	}
	return builtin.NewEngine(data, opts...)
}

// Adapter runs test cases through Render.
type Adapter struct {
	collab Collaborators
	logger logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New builds an adapter over collab.
func New(collab Collaborators, opts ...Option) *Adapter {
	a := &Adapter{collab: collab, logger: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Adapter) Mode() model.Mode {
	return model.ModePlaceholder
}

// Run normalizes tc, converts it into structured options and renders it.
// A non-empty artifact is success.
func (a *Adapter) Run(ctx context.Context, tc model.TestCase) surface.Result {
	inv := surface.NewInvocation(tc, model.ModePlaceholder)
	req, err := options.Normalize(options.Raw(tc.Inputs))
	if err != nil {
		return inv.Fail(err)
	}
	opts := FromRequest(req)

	ctx, cancel := surface.WithTimeout(ctx, tc)
	defer cancel()

	if err := inv.Dispatch(); err != nil {
		return inv.Fail(err)
	}
	if err := inv.Await(); err != nil {
		return inv.Fail(err)
	}
	artifact, err := Render(ctx, opts, a.collab)
	if err != nil {
		a.logger.Debug("embedded render failed", "case", tc.Name, "error", err)
		return inv.Fail(err)
	}
	return inv.Succeed(artifact)
}

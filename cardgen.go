// Package cardgen renders activity cards for an account from a shared matrix
// of plugins and templates. It is the in-process entry point; the cardgen
// binary exposes the same engine as an action and as an HTTP service.
package cardgen

import (
	"context"
	"errors"

	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

// Raw is an environment-shaped input map such as
// {"template": "terminal", "plugin_stars": "true", "plugin_stars_limit": 2}.
type Raw = options.Raw

// Request is a normalized render request.
type Request = model.Request

// Result is a rendered card plus the per-plugin outcome.
type Result = render.Result

// Option configures the built-in engine.
type Option = builtin.Option

// NewEngine builds an engine with every bundled plugin and template
// registered over src.
func NewEngine(src source.Source, opts ...Option) (*render.Engine, error) {
	return builtin.NewEngine(src, opts...)
}

// Normalize converts raw inputs into a request.
func Normalize(raw Raw) (Request, error) {
	return options.Normalize(raw)
}

// Render normalizes raw and renders it against src. Failures carrying a kind
// are *model.Error values; use model.KindOf to branch on them.
func Render(ctx context.Context, src source.Source, raw Raw, opts ...Option) (Result, error) {
	req, err := options.Normalize(raw)
	if err != nil {
		return Result{}, err
	}
	if req.User == "" {
		return Result{}, errors.New("cardgen: a user is required")
	}
	if req.Avatar == "" {
		req.Avatar = "https://github.com/" + req.User + ".png"
	}
	engine, err := builtin.NewEngine(src, opts...)
	if err != nil {
		return Result{}, err
	}
	return engine.Render(ctx, req)
}

// Capabilities returns the registry built from the bundled manifests.
func Capabilities() (*capability.Registry, error) {
	return capability.Load()
}

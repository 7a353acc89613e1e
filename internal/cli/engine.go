package cli

import (
	"fmt"

	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/config"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/source/github"
)

// engineFactory builds engines configured from cfg over any source.
func engineFactory(cfg *config.Config, log logger.Logger, extra ...render.Option) func(source.Source) (*render.Engine, error) {
	return func(src source.Source) (*render.Engine, error) {
		opts := []render.Option{
			render.WithLogger(log),
			render.WithRetryBackoff(cfg.Render.RetryBackoff),
			render.WithPluginTimeout(cfg.Render.PluginTimeout),
		}
		return builtin.NewEngine(src, builtin.WithEngineOptions(append(opts, extra...)...))
	}
}

// renderDefaults are the configured request defaults every surface layers
// under its own inputs.
func renderDefaults(cfg *config.Config) options.Raw {
	defaults := options.Raw{}
	if cfg.Render.PluginsErrorsFatal {
		defaults[options.KeyPluginsErrorsFatal] = true
	}
	if cfg.Render.Retries > 0 {
		defaults[options.KeyRetries] = cfg.Render.Retries
	}
	return defaults
}

// liveSource talks to the GitHub API. An empty token keeps the configured
// one.
func liveSource(cfg *config.Config) func(token string) (source.Source, error) {
	return func(token string) (source.Source, error) {
		if token == "" {
			token = cfg.Source.Token
		}
		opts := []github.Option{github.WithToken(token)}
		if cfg.Source.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.Source.BaseURL))
		}
		src, err := github.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("cli: github source: %w", err)
		}
		return src, nil
	}
}

// dataSource picks the configured source; mock always wins when asked.
func dataSource(cfg *config.Config, mock bool) (source.Source, error) {
	if mock || cfg.Source.Kind == "mock" {
		return source.NewMock(), nil
	}
	return liveSource(cfg)("")
}

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/server"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/templates"
)

// ServeCmd runs the HTTP service until interrupted.
func ServeCmd(app *App) *cobra.Command {
	var cache bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cards over HTTP at /<user>",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.Config
			var (
				src source.Source
				err error
			)
			if cfg.Server.Sandbox {
				app.Logger.Info("sandbox mode, serving generated data")
				src = source.NewMock()
			} else {
				src, err = dataSource(cfg, false)
				if err != nil {
					return err
				}
				if cache {
					src = source.NewCached(src, source.DefaultCacheSize, source.DefaultCacheTTL)
				}
			}

			var opts []render.Option
			var metrics *server.Metrics
			if cfg.Server.Metrics {
				metrics = server.NewMetrics()
				opts = append(opts, render.WithObserver(metrics))
			}
			engine, err := engineFactory(cfg, app.Logger, opts...)(src)
			if err != nil {
				return err
			}
			caps, err := capability.Load()
			if err != nil {
				return err
			}
			srv, err := server.New(engine, caps,
				server.WithConfig(cfg.Server),
				server.WithLogger(app.Logger),
				server.WithMetrics(metrics),
				server.WithVersion(Version),
				server.WithDefaults(renderDefaults(cfg)),
				server.WithTemplateSource(templates.Source),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&cache, "cache", false, "memoize upstream lookups in memory")
	return cmd
}

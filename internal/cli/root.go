// Package cli wires the cardgen binary: one cobra command per surface plus
// the catalog and verification tooling.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardgen/pkg/config"
	"github.com/goliatone/go-cardgen/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

// App carries what every command shares. It is filled by the root
// command's PersistentPreRunE.
type App struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Environ func() []string
	Prompt  Prompter

	Config *config.Config
	Logger logger.Logger

	configFile string
	logLevel   string
	logJSON    bool
}

// NewApp returns an App bound to the process streams.
func NewApp() *App {
	return &App{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Environ: os.Environ,
		Prompt:  NewSurveyPrompter(),
	}
}

// RootCmd builds the command tree.
func RootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "cardgen",
		Short:         "Render activity cards for an account",
		Long:          "Render activity cards from one shared plugin and template matrix, as a one-shot action, an HTTP service or an embedded call.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&app.logLevel, "log-level", "", "debug, info, warn, error or disabled")
	flags.BoolVar(&app.logJSON, "log-json", false, "emit JSON logs")

	root.AddCommand(
		RenderCmd(app),
		ActionCmd(app),
		ServeCmd(app),
		CatalogCmd(app),
		VerifyCmd(app),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.WithFile(a.configFile), config.WithEnviron(a.Environ))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = string(logger.ParseLevel(a.logLevel))
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}
	a.Config = cfg
	a.Logger = logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     a.Stderr,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, app *App, args []string) int {
	root := RootCmd(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(app.Stderr, "error:", err)
		return 1
	}
	return 0
}

package cli

import (
	"github.com/spf13/cobra"

	cardaction "github.com/goliatone/go-cardgen/pkg/action"
)

// ActionCmd is the action entry point: inputs come from INPUT_* variables
// and the exit code reports the outcome.
func ActionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "action",
		Short: "Run as a workflow action, reading INPUT_* variables",
		Long: `Run as a workflow action. Every input is read from an INPUT_<NAME> variable,
the account defaults to the owner in GITHUB_REPOSITORY, and a non-zero exit
code signals failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner := &cardaction.Runner{
				Engine:     engineFactory(app.Config, app.Logger),
				LiveSource: liveSource(app.Config),
				Defaults:   renderDefaults(app.Config),
				Logger:     app.Logger,
				Stdout:     app.Stdout,
				Version:    Version,
			}
			return runner.Run(cmd.Context(), app.Environ())
		},
	}
}

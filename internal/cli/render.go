package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardgen/pkg/options"
)

type renderFlags struct {
	template string
	user     string
	inputs   []string
	output   string
	mock     bool
}

// RenderCmd renders one card in process.
func RenderCmd(app *App) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a card to stdout or a file",
		Example: `  cardgen render --user octocat --template terminal --input plugin_stars=true --input plugin_stars_limit=2
  cardgen render --mock --input config.theme.variant=dark --output card.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, app, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "template id")
	cmd.Flags().StringVarP(&flags.user, "user", "u", "", "account to render")
	cmd.Flags().StringArrayVarP(&flags.inputs, "input", "i", nil, "raw input as key=value, repeatable")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the artifact to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.mock, "mock", false, "use generated data instead of the GitHub API")
	return cmd
}

func runRender(cmd *cobra.Command, app *App, flags *renderFlags) error {
	raw, err := ParseInputs(flags.inputs)
	if err != nil {
		return err
	}
	if flags.template != "" {
		raw[options.KeyTemplate] = flags.template
	}
	if flags.user != "" {
		raw[options.KeyUser] = flags.user
	}
	req, err := options.Normalize(options.Layer(raw, renderDefaults(app.Config)))
	if err != nil {
		return err
	}
	if req.User == "" {
		req.User = app.Config.Surface.User
	}
	if req.Avatar == "" {
		req.Avatar = "https://github.com/" + req.User + ".png"
	}
	if req.Version == "" {
		req.Version = Version
	}

	src, err := dataSource(app.Config, flags.mock)
	if err != nil {
		return err
	}
	engine, err := engineFactory(app.Config, app.Logger)(src)
	if err != nil {
		return err
	}
	result, err := engine.Render(cmd.Context(), req)
	if err != nil {
		return err
	}
	for _, p := range result.Plugins {
		if p.Err != nil {
			app.Logger.Warn("plugin omitted", "plugin", p.Name, "attempts", p.Attempts, "error", p.Err)
		}
	}

	if flags.output == "" {
		_, err := io.WriteString(app.Stdout, result.Artifact)
		return err
	}
	if err := os.WriteFile(flags.output, []byte(result.Artifact), 0o644); err != nil {
		return fmt.Errorf("cli: write %s: %w", flags.output, err)
	}
	app.Logger.Info("artifact written", "file", flags.output, "template", result.Template)
	return nil
}

// ParseInputs turns key=value pairs into raw inputs. Values stay strings;
// the normalizer interprets them.
func ParseInputs(pairs []string) (options.Raw, error) {
	raw := options.Raw{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("cli: input %q is not key=value", pair)
		}
		raw[key] = value
	}
	return raw, nil
}

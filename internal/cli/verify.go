package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/config"
	"github.com/goliatone/go-cardgen/pkg/harness"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/surface"
	"github.com/goliatone/go-cardgen/pkg/surface/action"
	"github.com/goliatone/go-cardgen/pkg/surface/embedded"
	"github.com/goliatone/go-cardgen/pkg/surface/service"
)

// ErrVerifyFailed is returned when at least one case failed.
var ErrVerifyFailed = errors.New("cli: verification failed")

type verifyFlags struct {
	surfaces  []string
	templates []string
	dir       string
	artifacts string
	parallel  int
	verbose   bool
}

// VerifyCmd runs the parity harness.
func VerifyCmd(app *App) *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run every catalog case on every surface and template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapters, err := buildAdapters(app, flags.surfaces)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(flags.dir)
			if err != nil {
				return err
			}
			caps, err := capability.Load()
			if err != nil {
				return err
			}

			opts := []harness.Option{
				harness.WithLogger(app.Logger),
				harness.WithParallelism(flags.parallel),
			}
			if matrix := pickTemplates(flags.templates); matrix != nil {
				opts = append(opts, harness.WithMatrix(matrix...))
			}
			if flags.artifacts != "" {
				opts = append(opts, harness.WithArtifacts(afero.NewOsFs(), flags.artifacts))
			}
			h, err := harness.New(caps, cat.Cases(), adapters, opts...)
			if err != nil {
				return err
			}
			report, err := h.Run(cmd.Context())
			if err != nil {
				return err
			}
			PrintReport(app.Stdout, report, flags.verbose, isTerminal(app.Stdout))
			if !report.OK() {
				return ErrVerifyFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&flags.surfaces, "surface", "s", nil, "surfaces to verify: action, web, placeholder (all when empty)")
	cmd.Flags().StringSliceVarP(&flags.templates, "template", "t", nil, "templates to verify (whole matrix when empty)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "fixture directory (bundled fixtures when empty)")
	cmd.Flags().StringVar(&flags.artifacts, "artifacts", "", "write passing artifacts into this directory")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 1, "surfaces verified at once")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "list passed and skipped cases too")
	return cmd
}

func pickTemplates(names []string) []harness.Template {
	if len(names) == 0 {
		return nil
	}
	var out []harness.Template
	for _, tmpl := range harness.DefaultMatrix() {
		for _, name := range names {
			if tmpl.Name == name {
				out = append(out, tmpl)
			}
		}
	}
	return out
}

func buildAdapters(app *App, names []string) ([]surface.Adapter, error) {
	modes := model.Surfaces()
	if len(names) > 0 {
		modes = nil
		for _, name := range names {
			mode, err := model.ParseMode(name)
			if err != nil {
				return nil, err
			}
			if !mode.IsSurface() {
				return nil, fmt.Errorf("cli: %s is not a surface", name)
			}
			modes = append(modes, mode)
		}
	}

	cfg := app.Config.Surface
	var adapters []surface.Adapter
	for _, mode := range modes {
		switch mode {
		case model.ModeAction:
			command := cfg.Command
			if command != "" {
				command += " action"
			}
			a, err := action.New(command,
				action.WithRepository(cfg.Repository),
				action.WithEnviron(app.Environ()),
				action.WithWaitDelay(cfg.StopGrace),
				action.WithLogger(app.Logger),
			)
			if err != nil {
				return nil, err
			}
			adapters = append(adapters, a)
		case model.ModeWeb:
			a, err := serviceAdapter(app, cfg)
			if err != nil {
				return nil, err
			}
			adapters = append(adapters, a)
		case model.ModePlaceholder:
			adapters = append(adapters, embedded.New(embedded.Collaborators{Data: source.NewMock()}, embedded.WithLogger(app.Logger)))
		}
	}
	return adapters, nil
}

// serviceAdapter spawns "serve" in sandbox mode on the port of the
// configured base URL.
func serviceAdapter(app *App, cfg config.SurfaceConfig) (*service.Adapter, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("cli: surface base url: %w", err)
	}
	env := append(app.Environ(), "SANDBOX=true")
	if port := base.Port(); port != "" {
		env = append(env, config.EnvPrefix+"SERVER_PORT="+port)
	}
	command := cfg.Command
	if command != "" {
		command += " serve"
	}
	proc, err := service.NewExecProcess(command, env)
	if err != nil {
		return nil, err
	}
	lifecycle := service.NewLifecycle(proc, cfg.BaseURL,
		service.WithTiming(service.TimingFrom(cfg)),
		service.WithLifecycleLogger(app.Logger.With("surface", model.ModeWeb)),
	)
	return service.New(lifecycle, cfg.BaseURL,
		service.WithUser(cfg.User),
		service.WithLogger(app.Logger),
	), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// PrintReport writes one line per failed case, and per every case when
// verbose, followed by totals.
func PrintReport(w io.Writer, report *harness.Report, verbose, color bool) {
	paint := func(style lipgloss.Style, s string) string {
		if !color {
			return s
		}
		return style.Render(s)
	}

	var current string
	for _, res := range report.Results {
		if !verbose && res.Status != harness.Failed {
			continue
		}
		section := fmt.Sprintf("%s / %s", res.Surface, res.Template)
		if section != current {
			current = section
			fmt.Fprintln(w, paint(titleStyle, section))
		}
		switch res.Status {
		case harness.Passed:
			fmt.Fprintf(w, "  %s %s (%s)\n", paint(passStyle, "PASS"), res.Case, res.Duration.Round(time.Millisecond))
		case harness.Skipped:
			fmt.Fprintf(w, "  %s %s: %s\n", paint(skipStyle, "SKIP"), res.Case, res.Reason)
		case harness.Failed:
			fmt.Fprintf(w, "  %s %s: %v\n", paint(failStyle, "FAIL"), res.Case, res.Err)
			for _, diag := range []string{res.Result.Stderr, res.Result.Stdout} {
				if diag = strings.TrimSpace(diag); diag != "" {
					fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(diag, "\n", "\n    "))
				}
			}
		}
	}

	counts := report.Counts()
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", counts.Passed, counts.Failed, counts.Skipped)
	if counts.Failed > 0 {
		fmt.Fprintln(w, paint(failStyle, summary))
		return
	}
	fmt.Fprintln(w, paint(passStyle, summary))
}

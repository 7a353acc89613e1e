package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/catalog"
	"github.com/goliatone/go-cardgen/pkg/compat"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

// DefaultCatalogDir is where fixtures live in a source checkout.
const DefaultCatalogDir = "pkg/catalog/fixtures"

// CatalogCmd groups the fixture tooling.
func CatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and extend the test case catalog",
	}
	cmd.AddCommand(catalogSkipCmd(app), catalogAddCmd(app))
	return cmd
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Bundled()
	}
	return catalog.LoadFS(os.DirFS(dir))
}

func catalogSkipCmd(app *App) *cobra.Command {
	var (
		dir      string
		template string
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "skip",
		Short: "Print the cases skipped for a template on a surface",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			parsed, err := model.ParseMode(mode)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(dir)
			if err != nil {
				return err
			}
			caps, err := capability.Load()
			if err != nil {
				return err
			}
			if _, err := caps.Template(template); err != nil {
				return err
			}
			skips, err := compat.SkipSetFor(caps, template, cat.Cases(), parsed)
			if err != nil {
				return err
			}
			for _, name := range skips.Names() {
				fmt.Fprintf(app.Stdout, "%s\t%s\n", name, skips[name])
			}
			app.Logger.Debug("skip set computed", "template", template, "mode", parsed, "skipped", len(skips), "cases", cat.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "fixture directory (bundled fixtures when empty)")
	cmd.Flags().StringVarP(&template, "template", "t", "classic", "template id")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(model.ModeAction), "surface: action, web or placeholder")
	return cmd
}

func catalogAddCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Author a new case interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caps, err := capability.Load()
			if err != nil {
				return err
			}
			owner, entry, err := AuthorCase(cmd.Context(), app.Prompt, caps)
			if err != nil {
				return err
			}
			ok, err := app.Prompt.Confirm(cmd.Context(), fmt.Sprintf("Append %q to %s?", entry.Name, catalog.FileName(owner)), true)
			if err != nil {
				return err
			}
			if !ok {
				return ErrAborted
			}
			path := filepath.Join(dir, catalog.FileName(owner))
			if err := catalog.Append(path, entry); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "added %q to %s\n", entry.Name, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", DefaultCatalogDir, "fixture directory")
	return cmd
}

// Registry is what AuthorCase offers as owners.
type Registry interface {
	Plugins() []string
	Templates() []string
}

// AuthorCase walks the user through one catalog entry.
func AuthorCase(ctx context.Context, prompt Prompter, caps Registry) (model.Owner, catalog.Entry, error) {
	kinds := []string{string(model.OwnerPlugin), string(model.OwnerTemplate)}
	idx, err := prompt.Choose(ctx, "Declare the case under", kinds)
	if err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	if idx < 0 || idx >= len(kinds) {
		return model.Owner{}, catalog.Entry{}, errors.New("cli: no owner kind selected")
	}
	owner := model.Owner{Kind: model.OwnerKind(kinds[idx])}

	names := caps.Plugins()
	if owner.Kind == model.OwnerTemplate {
		names = caps.Templates()
	}
	idx, err = prompt.Choose(ctx, "Which "+kinds[idx]+"?", names)
	if err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	if idx < 0 || idx >= len(names) {
		return model.Owner{}, catalog.Entry{}, errors.New("cli: no owner selected")
	}
	owner.Name = names[idx]

	entry := catalog.Entry{}
	entry.Name, err = prompt.Text(ctx, Question{
		Message: "Case name",
		Check: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a name is required")
			}
			return nil
		},
	})
	if err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	entry.Name = strings.TrimSpace(entry.Name)

	raw := options.Raw{}
	for {
		pair, err := prompt.Text(ctx, Question{
			Message: "Input key=value (empty to finish)",
			Help:    "plugin_<id>, plugin_<id>_<option>, config.<path> or base.<path>",
			Check: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}
				_, err := ParseInputs([]string{s})
				return err
			},
		})
		if err != nil {
			return model.Owner{}, catalog.Entry{}, err
		}
		if strings.TrimSpace(pair) == "" {
			break
		}
		parsed, err := ParseInputs([]string{pair})
		if err != nil {
			return model.Owner{}, catalog.Entry{}, err
		}
		for key, value := range parsed {
			raw[key] = value
		}
	}
	if _, err := options.Normalize(raw); err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	if len(raw) > 0 {
		entry.With = map[string]any(raw)
	}

	surfaces := model.Surfaces()
	labels := make([]string, len(surfaces))
	for i, mode := range surfaces {
		labels[i] = string(mode)
	}
	picked, err := prompt.ChooseMany(ctx, "Restrict to surfaces (none means all)", labels)
	if err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	if len(picked) < len(labels) {
		for _, i := range picked {
			entry.Modes = append(entry.Modes, labels[i])
		}
	}

	entry.Timeout, err = prompt.Text(ctx, Question{Message: "Timeout (empty for none)", Help: "milliseconds or a duration such as 30s"})
	if err != nil {
		return model.Owner{}, catalog.Entry{}, err
	}
	entry.Timeout = strings.TrimSpace(entry.Timeout)
	if _, err := entry.TestCase(owner); err != nil {
		return model.Owner{}, catalog.Entry{}, fmt.Errorf("cli: invalid case: %w", err)
	}
	return owner, entry, nil
}

package compat

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/model"
)

func bundled(t *testing.T) *capability.Registry {
	t.Helper()
	reg, err := capability.Load()
	if err != nil {
		t.Fatalf("capability.Load(): %v", err)
	}
	return reg
}

func pluginCase(name, plugin string, inputs map[string]any, modes ...model.Mode) model.TestCase {
	return model.TestCase{
		Name:   name,
		Owner:  model.Owner{Kind: model.OwnerPlugin, Name: plugin},
		Inputs: inputs,
		Modes:  modes,
	}
}

func testCatalog() []model.TestCase {
	return []model.TestCase{
		pluginCase("Languages (default)", "languages", map[string]any{"plugin_languages": "yes"}),
		pluginCase("Languages (web only)", "languages", map[string]any{"plugin_languages": "yes"}, model.ModeWeb),
		pluginCase("Stars (default)", "stars", map[string]any{"plugin_stars": "yes"}),
		pluginCase("Isocalendar (default)", "isocalendar", map[string]any{"plugin_isocalendar": "yes"}),
		pluginCase("Lines (default)", "lines", map[string]any{"plugin_lines": "yes"}),
		{
			Name:   "Terminal template (default)",
			Owner:  model.Owner{Kind: model.OwnerTemplate, Name: "terminal"},
			Inputs: map[string]any{"template": "terminal"},
		},
	}
}

func TestSkipSetFor_ModeGating(t *testing.T) {
	reg := bundled(t)
	tc := testCatalog()[1]

	for _, mode := range []model.Mode{model.ModeAction, model.ModePlaceholder} {
		decision, err := Decide(reg, "classic", tc, mode)
		if err != nil {
			t.Fatalf("Decide(%s): %v", mode, err)
		}
		if !decision.Skip {
			t.Fatalf("expected web-only case to be skipped under %s", mode)
		}
	}

	decision, err := Decide(reg, "classic", tc, model.ModeWeb)
	if err != nil {
		t.Fatalf("Decide(web): %v", err)
	}
	if decision.Skip {
		t.Fatalf("web-only case must run under web, got %q", decision.Reason)
	}
}

func TestSkipSetFor_RepositoryTemplate(t *testing.T) {
	reg := bundled(t)

	for _, mode := range []model.Mode{model.ModeAction, model.ModeWeb, model.ModeRepository} {
		set, err := SkipSetFor(reg, "repository", testCatalog(), mode)
		if err != nil {
			t.Fatalf("SkipSetFor(%s): %v", mode, err)
		}
		if !set.Has("Stars (default)") {
			t.Fatalf("expected stars to be skipped on repository template under %s, got %v", mode, set.Names())
		}
		if !set.Has("Isocalendar (default)") {
			t.Fatalf("expected isocalendar to be skipped on repository template under %s", mode)
		}
		if set.Has("Languages (default)") {
			t.Fatalf("languages supports repository and must run under %s", mode)
		}
	}
}

func TestSkipSetFor_TemplateIncompatibility(t *testing.T) {
	reg := bundled(t)

	set, err := SkipSetFor(reg, "terminal", testCatalog(), model.ModeAction)
	if err != nil {
		t.Fatalf("SkipSetFor(): %v", err)
	}
	want := []string{"Isocalendar (default)", "Languages (web only)", "Lines (default)"}
	if diff := cmp.Diff(want, set.Names()); diff != "" {
		t.Fatalf("skip set mismatch (-want +got):\n%s", diff)
	}

	classic, err := SkipSetFor(reg, "classic", testCatalog(), model.ModeAction)
	if err != nil {
		t.Fatalf("SkipSetFor(classic): %v", err)
	}
	if !classic.Has("Terminal template (default)") {
		t.Fatalf("template-owned case must only run against its owner")
	}
}

func TestSkipSetFor_EmptyCompatibilitySkipsPluginCases(t *testing.T) {
	reg, err := capability.LoadFS(fstest.MapFS{
		"plugins/languages/metadata.yml": {Data: []byte("supports: [action, web, placeholder]\n")},
		"templates/bare/metadata.yml":    {Data: []byte("compatibility: {}\n")},
	})
	if err != nil {
		t.Fatalf("LoadFS(): %v", err)
	}

	catalog := []model.TestCase{
		pluginCase("Languages (default)", "languages", map[string]any{"plugin_languages": "yes"}),
		{Name: "Plain render", Inputs: map[string]any{"user": "octocat"}},
	}
	set, err := SkipSetFor(reg, "bare", catalog, model.ModeWeb)
	if err != nil {
		t.Fatalf("SkipSetFor(): %v", err)
	}
	if !set.Has("Languages (default)") {
		t.Fatalf("plugin-bearing case must be skipped by a template with no compatibility")
	}
	if set.Has("Plain render") {
		t.Fatalf("a case without plugins is not affected by compatibility")
	}
}

func TestSkipSetFor_Independence(t *testing.T) {
	reg := bundled(t)
	catalog := testCatalog()

	for _, mode := range model.Surfaces() {
		full, err := SkipSetFor(reg, "terminal", catalog, mode)
		if err != nil {
			t.Fatalf("SkipSetFor(): %v", err)
		}
		for removed := range catalog {
			reduced := make([]model.TestCase, 0, len(catalog)-1)
			reduced = append(reduced, catalog[:removed]...)
			reduced = append(reduced, catalog[removed+1:]...)

			partial, err := SkipSetFor(reg, "terminal", reduced, mode)
			if err != nil {
				t.Fatalf("SkipSetFor(reduced): %v", err)
			}
			for _, tc := range reduced {
				if full.Has(tc.Name) != partial.Has(tc.Name) {
					t.Fatalf("removing %q changed the decision for %q under %s",
						catalog[removed].Name, tc.Name, mode)
				}
			}
		}
	}
}

func TestDecide_Errors(t *testing.T) {
	reg := bundled(t)

	_, err := Decide(reg, "missing", testCatalog()[0], model.ModeAction)
	if !errors.Is(err, model.ErrUnknownTemplate) {
		t.Fatalf("expected UnknownTemplate, got %v", err)
	}

	_, err = Decide(reg, "classic", pluginCase("Ghost", "ghost", nil), model.ModeAction)
	if !errors.Is(err, model.ErrUnknownPlugin) {
		t.Fatalf("expected UnknownPlugin, got %v", err)
	}

	_, err = Decide(reg, "classic", pluginCase("Bad", "stars", map[string]any{"plugin_Stars": true}), model.ModeAction)
	if !errors.Is(err, model.ErrMalformedKey) {
		t.Fatalf("expected MalformedKey, got %v", err)
	}
}

func TestRequiredPlugins(t *testing.T) {
	tc := pluginCase("Mixed", "stars", map[string]any{
		"plugin_languages": true,
		"plugin_followup":  false,
		"plugin_base":      "yes",
	})
	got, err := RequiredPlugins(tc)
	if err != nil {
		t.Fatalf("RequiredPlugins(): %v", err)
	}
	if diff := cmp.Diff([]string{"base", "languages", "stars"}, got); diff != "" {
		t.Fatalf("required plugins mismatch (-want +got):\n%s", diff)
	}
}

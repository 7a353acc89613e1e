package capability

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/model"
)

func fixtureFS() fstest.MapFS {
	return fstest.MapFS{
		"plugins/alpha/metadata.yml": {Data: []byte("name: Alpha\nsupports: [action, web]\n")},
		"plugins/beta/metadata.yml":  {Data: []byte("name: Beta\nsupports: [placeholder, repository]\n")},
		"templates/plain/metadata.yml": {Data: []byte(
			"name: Plain\ncompatibility:\n  alpha: true\n  beta: false\n")},
		"templates/empty/metadata.yml": {Data: []byte("name: Empty\ncompatibility: {}\n")},
	}
}

func TestLoad_BundledManifests(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	wantPlugins := []string{"base", "followup", "isocalendar", "languages", "lines", "stars"}
	if diff := cmp.Diff(wantPlugins, reg.Plugins()); diff != "" {
		t.Fatalf("plugins mismatch (-want +got):\n%s", diff)
	}
	wantTemplates := []string{"classic", "repository", "terminal"}
	if diff := cmp.Diff(wantTemplates, reg.Templates()); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}

	again, err := Load()
	if err != nil || again != reg {
		t.Fatalf("expected Load to memoize the registry")
	}

	repo, err := reg.Template("repository")
	if err != nil {
		t.Fatalf("Template(repository): %v", err)
	}
	if diff := cmp.Diff([]model.Mode{model.ModeRepository}, repo.Requires); diff != "" {
		t.Fatalf("requires mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Supports(t *testing.T) {
	reg, err := LoadFS(fixtureFS())
	if err != nil {
		t.Fatalf("LoadFS(): %v", err)
	}

	ok, err := reg.Supports("alpha", model.ModeWeb)
	if err != nil || !ok {
		t.Fatalf("expected alpha to support web, got %v %v", ok, err)
	}
	ok, err = reg.Supports("alpha", model.ModeRepository)
	if err != nil || ok {
		t.Fatalf("expected alpha not to support repository, got %v %v", ok, err)
	}

	_, err = reg.Supports("gamma", model.ModeWeb)
	if !errors.Is(err, model.ErrUnknownPlugin) {
		t.Fatalf("expected UnknownPlugin, got %v", err)
	}
}

func TestRegistry_CompatibleIsClosedWorld(t *testing.T) {
	reg, err := LoadFS(fixtureFS())
	if err != nil {
		t.Fatalf("LoadFS(): %v", err)
	}

	cases := []struct {
		template string
		plugin   string
		want     bool
	}{
		{template: "plain", plugin: "alpha", want: true},
		{template: "plain", plugin: "beta", want: false},
		{template: "empty", plugin: "alpha", want: false},
		{template: "empty", plugin: "beta", want: false},
	}
	for _, tc := range cases {
		got, err := reg.Compatible(tc.template, tc.plugin)
		if err != nil {
			t.Fatalf("Compatible(%s, %s): %v", tc.template, tc.plugin, err)
		}
		if got != tc.want {
			t.Fatalf("Compatible(%s, %s) = %v, want %v", tc.template, tc.plugin, got, tc.want)
		}
	}

	if _, err := reg.Compatible("missing", "alpha"); !errors.Is(err, model.ErrUnknownTemplate) {
		t.Fatalf("expected UnknownTemplate, got %v", err)
	}
	if _, err := reg.Compatible("plain", "missing"); !errors.Is(err, model.ErrUnknownPlugin) {
		t.Fatalf("expected UnknownPlugin, got %v", err)
	}
}

func TestLoadFS_MetadataErrors(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"missing supports": {
			"plugins/alpha/metadata.yml": {Data: []byte("name: Alpha\n")},
		},
		"missing compatibility": {
			"templates/plain/metadata.yml": {Data: []byte("name: Plain\n")},
		},
		"duplicate id": {
			"plugins/alpha/metadata.yml": {Data: []byte("supports: [web]\n")},
			"plugins/other/metadata.yml": {Data: []byte("id: alpha\nsupports: [web]\n")},
		},
		"malformed yaml": {
			"plugins/alpha/metadata.yml": {Data: []byte("supports: [web\n")},
		},
		"unknown mode": {
			"plugins/alpha/metadata.yml": {Data: []byte("supports: [desktop]\n")},
		},
		"missing file": {
			"plugins/alpha/README.md": {Data: []byte("# alpha\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFS(fsys)
			if !errors.Is(err, model.ErrMetadataLoad) {
				t.Fatalf("expected MetadataLoadError, got %v", err)
			}
		})
	}
}

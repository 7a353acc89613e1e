package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/model"
)

func TestBundled_TagsOwners(t *testing.T) {
	cat, err := Bundled()
	if err != nil {
		t.Fatalf("Bundled(): %v", err)
	}
	if cat.Len() == 0 {
		t.Fatalf("expected bundled fixtures")
	}

	tc, ok := cat.Get("Languages plugin (web only)")
	if !ok {
		t.Fatalf("expected languages web-only case")
	}
	if tc.Owner != (model.Owner{Kind: model.OwnerPlugin, Name: "languages"}) {
		t.Fatalf("unexpected owner %+v", tc.Owner)
	}
	if diff := cmp.Diff([]model.Mode{model.ModeWeb}, tc.Modes); diff != "" {
		t.Fatalf("modes mismatch (-want +got):\n%s", diff)
	}

	tpl, ok := cat.Get("Repository template (default)")
	if !ok {
		t.Fatalf("expected repository template case")
	}
	if tpl.Owner.Kind != model.OwnerTemplate || tpl.Owner.Name != "repository" {
		t.Fatalf("unexpected owner %+v", tpl.Owner)
	}
}

func TestLoadFS_OrderAndTimeouts(t *testing.T) {
	fsys := fstest.MapFS{
		"beta.plugin.yml": {Data: []byte(`
- name: Beta one
  with:
    plugin_beta: yes
  timeout: 1500
- name: Beta two
  with:
    plugin_beta: yes
  timeout: 2m
  modes: [cli, service]
`)},
		"alpha.template.yml": {Data: []byte("- name: Alpha\n")},
		"README.md":          {Data: []byte("ignored")},
	}

	cat, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS(): %v", err)
	}

	names := []string{}
	for _, tc := range cat.Cases() {
		names = append(names, tc.Name)
	}
	if diff := cmp.Diff([]string{"Alpha", "Beta one", "Beta two"}, names); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	one, _ := cat.Get("Beta one")
	if one.Timeout != 1500*time.Millisecond {
		t.Fatalf("expected millisecond timeout, got %s", one.Timeout)
	}
	two, _ := cat.Get("Beta two")
	if two.Timeout != 2*time.Minute {
		t.Fatalf("expected 2m timeout, got %s", two.Timeout)
	}
	if diff := cmp.Diff([]model.Mode{model.ModeAction, model.ModeWeb}, two.Modes); diff != "" {
		t.Fatalf("mode aliases mismatch (-want +got):\n%s", diff)
	}

	if got := len(cat.ForOwner(model.Owner{Kind: model.OwnerPlugin, Name: "beta"})); got != 2 {
		t.Fatalf("ForOwner() = %d cases, want 2", got)
	}
	if cat.Without("Beta one").Len() != 2 {
		t.Fatalf("Without() should drop exactly one case")
	}
}

func TestLoadFS_Errors(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"missing name": {
			"x.plugin.yml": {Data: []byte("- with: {plugin_x: yes}\n")},
		},
		"unknown mode": {
			"x.plugin.yml": {Data: []byte("- name: X\n  modes: [desktop]\n")},
		},
		"bad timeout": {
			"x.plugin.yml": {Data: []byte("- name: X\n  timeout: soon\n")},
		},
		"malformed input key": {
			"x.plugin.yml": {Data: []byte("- name: X\n  with: {plugin_Bad: yes}\n")},
		},
		"conflicting input paths": {
			"x.plugin.yml": {Data: []byte("- name: X\n  with: {config.theme: dark, config.theme.variant: dark}\n")},
		},
		"duplicate names": {
			"x.plugin.yml": {Data: []byte("- name: X\n")},
			"y.plugin.yml": {Data: []byte("- name: X\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFS(fsys); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}

	_, err := LoadFS(cases["malformed input key"])
	if model.KindOf(err) != model.KindMalformedKey {
		t.Fatalf("expected a MalformedKey error, got %v", err)
	}
	if _, err := New(model.TestCase{Name: "bad", Inputs: map[string]any{"config..x": 1}}); model.KindOf(err) != model.KindMalformedKey {
		t.Fatalf("New accepted a malformed key: %v", err)
	}
}

func TestAppend(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, FileName(model.Owner{Kind: model.OwnerPlugin, Name: "stars"}))

	first := Entry{Name: "Stars plugin (default)", With: map[string]any{"plugin_stars": "yes"}}
	second := Entry{Name: "Stars plugin (web)", With: map[string]any{"plugin_stars": "yes"}, Modes: []string{"web"}}

	if err := Append(file, first); err != nil {
		t.Fatalf("Append(first): %v", err)
	}
	if err := Append(file, second); err != nil {
		t.Fatalf("Append(second): %v", err)
	}
	if err := Append(file, first); !errors.Is(err, ErrCaseExists) {
		t.Fatalf("expected ErrCaseExists, got %v", err)
	}

	cat, err := LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("LoadFS(): %v", err)
	}
	cases := cat.Cases()
	if len(cases) != 2 || cases[0].Name != first.Name || cases[1].Name != second.Name {
		t.Fatalf("unexpected cases after append: %+v", cases)
	}
	if cases[1].Owner.Name != "stars" {
		t.Fatalf("expected owner stars, got %+v", cases[1].Owner)
	}
}

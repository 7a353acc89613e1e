package action_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/action"
	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

func TestDefaultsComeFromManifest(t *testing.T) {
	defaults := action.Defaults()
	if defaults["template"] != "classic" || defaults["filename"] != "github-metrics.svg" {
		t.Fatalf("unexpected defaults %v", defaults)
	}
	if _, ok := defaults["plugin_lines"]; !ok {
		t.Fatalf("expected plugin_lines input")
	}
}

func TestEnvironRoundTrip(t *testing.T) {
	env := action.Environ(options.Raw{
		"template":                 "terminal",
		"plugin_languages_ignored": "html, css",
		"config.theme.variant":     "dark",
		"retries":                  1,
	}, "octocat/gh-metrics")

	if !contains(env, "INPUT_TEMPLATE=terminal") || !contains(env, "INPUT_RETRIES=1") {
		t.Fatalf("missing overridden inputs in %v", env)
	}
	if !contains(env, "INPUT_DRYRUN=no") {
		t.Fatalf("missing default input in %v", env)
	}
	if !contains(env, "GITHUB_REPOSITORY=octocat/gh-metrics") {
		t.Fatalf("missing repository variable in %v", env)
	}

	inputs := action.Inputs(append(env, "PATH=/usr/bin"))
	if inputs["plugin_languages_ignored"] != "html, css" || inputs["config.theme.variant"] != "dark" {
		t.Fatalf("unexpected inputs %v", inputs)
	}
	if _, ok := inputs["path"]; ok {
		t.Fatalf("non-input variable leaked into inputs")
	}
	if got := action.Repository(env); got != "octocat/gh-metrics" {
		t.Fatalf("repository = %q", got)
	}
}

func contains(env []string, entry string) bool {
	for _, e := range env {
		if e == entry {
			return true
		}
	}
	return false
}

func newRunner(stdout *bytes.Buffer) *action.Runner {
	return &action.Runner{
		Engine: func(src source.Source) (*render.Engine, error) {
			return builtin.NewEngine(src)
		},
		Stdout:  stdout,
		Version: "TEST",
	}
}

func TestRunDryRunPrintsVerifiedArtifact(t *testing.T) {
	var stdout bytes.Buffer
	env := action.Environ(options.Raw{
		"base":                 "",
		"query":                "{}",
		"plugins_errors_fatal": true,
		"dryrun":               true,
		"use_mocked_data":      true,
		"verify":               true,
		"retries":              1,
		"plugin_languages":     "yes",
	}, "octocat/gh-metrics")

	if err := newRunner(&stdout).Run(context.Background(), env); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "<svg") {
		t.Fatalf("expected svg on stdout, got %q", stdout.String())
	}
}

func TestRunWritesFile(t *testing.T) {
	written := map[string]string{}
	runner := newRunner(&bytes.Buffer{})
	runner.WriteFile = func(name string, data []byte) error {
		written[name] = string(data)
		return nil
	}
	env := action.Environ(options.Raw{
		"use_mocked_data": true,
		"filename":        "card.svg",
		"user":            "hubot",
	}, "")

	if err := runner.Run(context.Background(), env); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"card.svg"}, keys(written)); diff != "" {
		t.Fatalf("written files mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(written["card.svg"], "hubot") {
		t.Fatalf("expected the requested user in the artifact")
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRunErrors(t *testing.T) {
	runner := newRunner(&bytes.Buffer{})

	err := runner.Run(context.Background(), action.Environ(options.Raw{"use_mocked_data": true}, ""))
	if err == nil || !strings.Contains(err.Error(), "GITHUB_REPOSITORY") {
		t.Fatalf("expected missing user error, got %v", err)
	}

	err = runner.Run(context.Background(), action.Environ(options.Raw{"use_mocked_data": true, "plugin_stars__limit": "2"}, "octocat/x"))
	if !errors.Is(err, model.ErrMalformedKey) {
		t.Fatalf("expected MalformedKey, got %v", err)
	}

	err = runner.Run(context.Background(), action.Environ(options.Raw{"template": "nope", "use_mocked_data": true}, "octocat/x"))
	if !errors.Is(err, model.ErrUnknownTemplate) {
		t.Fatalf("expected UnknownTemplate, got %v", err)
	}

	err = runner.Run(context.Background(), action.Environ(options.Raw{}, "octocat/x"))
	if err == nil || !strings.Contains(err.Error(), "use_mocked_data") {
		t.Fatalf("expected missing live source error, got %v", err)
	}
}

func TestRunDefaultsFillMissingInputs(t *testing.T) {
	var stdout bytes.Buffer
	runner := newRunner(&stdout)
	runner.Defaults = options.Raw{"template": "neon", "dryrun": true}
	env := []string{"INPUT_USE_MOCKED_DATA=yes", "GITHUB_REPOSITORY=octocat/x"}

	if err := runner.Run(context.Background(), env); !errors.Is(err, model.ErrUnknownTemplate) {
		t.Fatalf("expected the default template to apply, got %v", err)
	}
	if err := runner.Run(context.Background(), append(env, "INPUT_TEMPLATE=classic")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "<svg") {
		t.Fatalf("expected the dryrun default to print the artifact, got %q", stdout.String())
	}
}

func TestVerify(t *testing.T) {
	if err := action.Verify([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><text>ok</text></svg>`)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := action.Verify([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><text>broken</svg>`)); err == nil {
		t.Fatalf("expected malformed error")
	}
	if err := action.Verify([]byte(`{"not":"svg"}`)); err == nil {
		t.Fatalf("expected mime error")
	}
	if err := action.Verify(nil); err == nil {
		t.Fatalf("expected empty error")
	}
}

package templates_test

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/plugins"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/templates"
	"github.com/goliatone/go-cardgen/pkg/testsupport"
)

func newEngine(t *testing.T, src source.Source) *render.Engine {
	t.Helper()
	all, err := templates.All()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	now := func() time.Time { return source.MockEpoch }
	engine, err := render.NewEngine(
		render.WithCapabilities(capability.MustLoad()),
		render.WithPlugins(plugins.All(src, plugins.WithClock(now))...),
		render.WithTemplates(all...),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

func assertWellFormed(t *testing.T, artifact string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(artifact))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatalf("artifact is not well-formed XML: %v\n%s", err, artifact)
		}
	}
}

func TestNamesMatchBundledManifests(t *testing.T) {
	if diff := cmp.Diff(capability.MustLoad().Templates(), templates.Names()); diff != "" {
		t.Fatalf("template set mismatch (-manifests +templates):\n%s", diff)
	}
}

var joinedYear = regexp.MustCompile(`joined \d{4}[,<]`)

func TestClassicRendersEveryPlugin(t *testing.T) {
	engine := newEngine(t, source.NewMock())
	req := testsupport.MustNormalize(t, map[string]any{
		"template":           "classic",
		"user":               "octocat",
		"plugin_languages":   "yes",
		"plugin_stars":       "yes",
		"plugin_isocalendar": "yes",
		"plugin_followup":    "yes",
		"plugin_lines":       "yes",
	})

	result, err := engine.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.ContentType != templates.ContentType {
		t.Fatalf("content type = %q", result.ContentType)
	}
	assertWellFormed(t, result.Artifact)
	for _, kind := range []string{`class="header"`, `class="languages"`, `class="stars"`, `class="isocalendar"`, `class="followup"`, `class="lines"`} {
		if !strings.Contains(result.Artifact, kind) {
			t.Fatalf("expected %s block in artifact", kind)
		}
	}
	if !joinedYear.MatchString(result.Artifact) {
		t.Fatalf("expected an integer join year in artifact")
	}
}

func TestTerminalSkipsUnknownBlocks(t *testing.T) {
	engine := newEngine(t, source.NewMock())
	req := testsupport.MustNormalize(t, map[string]any{
		"template":        "terminal",
		"user":            "octocat",
		"plugin_followup": "yes",
	})
	result, err := engine.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertWellFormed(t, result.Artifact)
	if !strings.Contains(result.Artifact, "followup octocat") {
		t.Fatalf("expected followup prompt in terminal artifact")
	}
}

func TestRepositoryRequiresRepo(t *testing.T) {
	engine := newEngine(t, source.NewMock())

	_, err := engine.Render(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"template": "repository",
		"user":     "octocat",
	}))
	if err == nil || !strings.Contains(err.Error(), "query.repo is required") {
		t.Fatalf("expected missing repo error, got %v", err)
	}

	result, err := engine.Render(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"template":        "repository",
		"user":            "octocat",
		"query":           `{"repo":"gh-metrics"}`,
		"plugin_lines":    "yes",
		"plugin_followup": "yes",
	}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertWellFormed(t, result.Artifact)
	if !strings.Contains(result.Artifact, "octocat/gh-metrics") {
		t.Fatalf("expected repository name in artifact")
	}
}

func TestDarkVariantSwapsTokens(t *testing.T) {
	engine := newEngine(t, source.NewMock())
	result, err := engine.Render(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"template":             "classic",
		"user":                 "octocat",
		"config.theme.variant": "dark",
	}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(result.Artifact, "--background: #0D1117;") || !strings.Contains(result.Artifact, `data-variant="dark"`) {
		t.Fatalf("expected dark tokens in artifact:\n%s", result.Artifact)
	}

	_, err = engine.Render(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"template":             "classic",
		"user":                 "octocat",
		"config.theme.variant": "neon",
	}))
	if err == nil || !strings.Contains(err.Error(), `no variant "neon"`) {
		t.Fatalf("expected unknown variant error, got %v", err)
	}
}

type hostileSource struct {
	source.Source
}

func (h hostileSource) User(ctx context.Context, login string) (source.User, error) {
	user, err := h.Source.User(ctx, login)
	user.Name = `<script>alert(1)</script>Mona & "Lisa"`
	return user, err
}

func TestPluginStringsAreSanitised(t *testing.T) {
	engine := newEngine(t, hostileSource{Source: source.NewMock()})
	result, err := engine.Render(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"template": "classic",
		"user":     "octocat",
		"base":     "header",
	}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertWellFormed(t, result.Artifact)
	if strings.Contains(result.Artifact, "<script") || strings.Contains(result.Artifact, "&lt;script") {
		t.Fatalf("markup leaked into artifact:\n%s", result.Artifact)
	}
	if !strings.Contains(result.Artifact, "Mona &amp; &quot;Lisa&quot;") {
		t.Fatalf("expected escaped text in artifact:\n%s", result.Artifact)
	}
}

func TestSource(t *testing.T) {
	src, err := templates.Source("terminal")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if !strings.Contains(string(src), `data-template="terminal"`) {
		t.Fatalf("unexpected terminal source")
	}
	if _, err := templates.Source("nope"); err == nil {
		t.Fatalf("expected unknown template error")
	}
	if _, err := templates.New("nope"); err == nil {
		t.Fatalf("expected unknown template error")
	}
}

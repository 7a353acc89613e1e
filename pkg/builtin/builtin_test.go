package builtin_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/testsupport"
)

func TestNewEngineRegistersEverything(t *testing.T) {
	engine, err := builtin.NewEngine(source.NewMock())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if got := len(engine.Plugins().List()); got != 6 {
		t.Fatalf("expected 6 plugins, got %d", got)
	}
	if got := len(engine.Templates().List()); got != 3 {
		t.Fatalf("expected 3 templates, got %d", got)
	}

	outcome := engine.Outcome(context.Background(), testsupport.MustNormalize(t, map[string]any{
		"user":             "octocat",
		"plugin_languages": "yes",
	}))
	if !outcome.Succeeded() || outcome.Artifact == "" {
		t.Fatalf("expected a successful outcome, got %+v", outcome)
	}
}

func TestNewEngineRequiresSource(t *testing.T) {
	if _, err := builtin.NewEngine(nil); err == nil {
		t.Fatalf("expected error without a source")
	}
}

package action_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	cardaction "github.com/goliatone/go-cardgen/pkg/action"
	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/surface"
	"github.com/goliatone/go-cardgen/pkg/surface/action"
)

const helperEnv = "CARDGEN_WANT_HELPER_PROCESS"

// TestHelperProcess is the action entry point the adapter spawns. It does
// nothing when run as a normal test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	runner := &cardaction.Runner{
		Engine: func(src source.Source) (*render.Engine, error) {
			return builtin.NewEngine(src, builtin.WithClock(func() time.Time { return source.MockEpoch }))
		},
		Stdout:  os.Stdout,
		Version: "test",
	}
	if err := runner.Run(context.Background(), os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func newAdapter(t *testing.T) *action.Adapter {
	t.Helper()
	command := fmt.Sprintf("%q -test.run=^TestHelperProcess$", os.Args[0])
	adapter, err := action.New(command,
		action.WithRepository("octocat/gh-metrics"),
		action.WithEnviron(append(os.Environ(), helperEnv+"=1", "INPUT_TEMPLATE=leaked")),
	)
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	return adapter
}

func TestRunSucceedsOnZeroExit(t *testing.T) {
	adapter := newAdapter(t)
	if adapter.Mode() != model.ModeAction {
		t.Fatalf("mode = %s", adapter.Mode())
	}
	res := adapter.Run(context.Background(), model.TestCase{
		Name:    "default",
		Timeout: time.Minute,
		Inputs: map[string]any{
			"template":        "classic",
			"base":            "",
			"dryrun":          true,
			"use_mocked_data": true,
			"verify":          true,
		},
	})
	if !res.Succeeded() {
		t.Fatalf("expected success, got %v\nstderr: %s", res.Err, res.Stderr)
	}
	if !strings.Contains(res.Artifact, "<svg") || !strings.Contains(res.Artifact, "octocat") {
		t.Fatalf("artifact is not the dry-run card:\n%s", res.Artifact)
	}
	want := []surface.State{surface.Idle, surface.Dispatching, surface.AwaitingResult, surface.Succeeded}
	if len(res.History) != len(want) {
		t.Fatalf("history = %v", res.History)
	}
}

func TestRunFailsOnNonZeroExit(t *testing.T) {
	res := newAdapter(t).Run(context.Background(), model.TestCase{
		Name: "unknown template",
		Inputs: map[string]any{
			"template":        "neon",
			"dryrun":          true,
			"use_mocked_data": true,
		},
	})
	if res.Succeeded() {
		t.Fatalf("expected failure")
	}
	if !errors.Is(res.Err, model.ErrProcessExitNonZero) {
		t.Fatalf("expected ProcessExitNonZero, got %v", res.Err)
	}
	if !strings.Contains(res.Stderr, "neon") {
		t.Fatalf("stderr not captured: %q", res.Stderr)
	}
}

func TestRunFailsWhenCommandMissing(t *testing.T) {
	adapter, err := action.New("/nonexistent/cardgen action")
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	res := adapter.Run(context.Background(), model.TestCase{Name: "missing"})
	if res.State != surface.Failed || res.Err == nil {
		t.Fatalf("expected a failed start, got %+v", res)
	}
}

func TestNewRejectsUnbalancedQuotes(t *testing.T) {
	if _, err := action.New(`"cardgen action`); err == nil {
		t.Fatalf("expected parse error")
	}
}

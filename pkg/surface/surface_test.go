package surface_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/surface"
)

func TestInvocationSuccessPath(t *testing.T) {
	inv := surface.NewInvocation(model.TestCase{Name: "default"}, model.ModeAction)
	if err := inv.Dispatch(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := inv.Await(); err != nil {
		t.Fatalf("await: %v", err)
	}
	res := inv.Succeed("<svg/>")
	if !res.Succeeded() || res.Artifact != "<svg/>" || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []surface.State{surface.Idle, surface.Dispatching, surface.AwaitingResult, surface.Succeeded}
	if diff := cmp.Diff(want, res.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if res.Case != "default" || res.Mode != model.ModeAction {
		t.Fatalf("result not tagged: %+v", res)
	}
}

func TestInvocationRejectsSkippedStates(t *testing.T) {
	inv := surface.NewInvocation(model.TestCase{Name: "jump"}, model.ModeWeb)
	if err := inv.Await(); err == nil {
		t.Fatalf("expected Idle -> AwaitingResult to be rejected")
	}
	res := inv.Succeed("artifact")
	if res.Succeeded() {
		t.Fatalf("success from Idle must fail the run")
	}
	if res.State != surface.Failed || res.Err == nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInvocationFailIsTerminal(t *testing.T) {
	inv := surface.NewInvocation(model.TestCase{Name: "broken"}, model.ModePlaceholder)
	_ = inv.Dispatch()
	cause := errors.New("boom")
	res := inv.Fail(cause)
	if res.State != surface.Failed || !errors.Is(res.Err, cause) {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := inv.Transition(surface.Succeeded); err == nil {
		t.Fatalf("terminal state must not transition")
	}
	if !surface.Failed.Terminal() || surface.AwaitingResult.Terminal() {
		t.Fatalf("terminal classification is wrong")
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := surface.WithTimeout(context.Background(), model.TestCase{Timeout: time.Minute})
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a deadline from the case timeout")
	}

	ctx, cancel = surface.WithTimeout(context.Background(), model.TestCase{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("expected no deadline without a case timeout")
	}
}

// Package surface holds what the three execution surfaces share: the
// per-invocation state machine, the Result they report and the Adapter
// contract the parity harness drives.
package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/goliatone/go-cardgen/pkg/model"
)

// State is the lifecycle position of one invocation.
type State int

const (
	Idle State = iota
	Dispatching
	AwaitingResult
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Dispatching:
		return "Dispatching"
	case AwaitingResult:
		return "AwaitingResult"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

const (
	eventDispatch = "dispatch"
	eventAwait    = "await"
	eventSucceed  = "succeed"
	eventFail     = "fail"
)

// eventInto names the single event that enters each non-initial state.
var eventInto = map[State]string{
	Dispatching:    eventDispatch,
	AwaitingResult: eventAwait,
	Succeeded:      eventSucceed,
	Failed:         eventFail,
}

var stateNamed = map[string]State{
	Idle.String():           Idle,
	Dispatching.String():    Dispatching,
	AwaitingResult.String(): AwaitingResult,
	Succeeded.String():      Succeeded,
	Failed.String():         Failed,
}

func invocationEvents() fsm.Events {
	return fsm.Events{
		{Name: eventDispatch, Src: []string{Idle.String()}, Dst: Dispatching.String()},
		{Name: eventAwait, Src: []string{Dispatching.String()}, Dst: AwaitingResult.String()},
		{Name: eventSucceed, Src: []string{AwaitingResult.String()}, Dst: Succeeded.String()},
		{
			Name: eventFail,
			Src:  []string{Idle.String(), Dispatching.String(), AwaitingResult.String()},
			Dst:  Failed.String(),
		},
	}
}

// Adapter runs one test case through a surface. Inputs on the case are
// already merged with the surface defaults.
type Adapter interface {
	Mode() model.Mode
	Run(ctx context.Context, tc model.TestCase) Result
}

// Result is the reduced outcome of one invocation plus the diagnostics the
// surface captured.
type Result struct {
	Case     string
	Mode     model.Mode
	State    State
	History  []State
	Artifact string
	Err      error
	// Stdout and Stderr are set by the subprocess surface.
	Stdout string
	Stderr string
	// Status is the HTTP status on the service surface.
	Status   int
	Duration time.Duration
}

// Succeeded reports whether the invocation reached Succeeded.
func (r Result) Succeeded() bool {
	return r.State == Succeeded
}

// Invocation tracks one run. It is not safe for concurrent use; each run
// owns its own.
type Invocation struct {
	tc      model.TestCase
	mode    model.Mode
	machine *fsm.FSM
	history []State
	started time.Time
}

// NewInvocation starts in Idle.
func NewInvocation(tc model.TestCase, mode model.Mode) *Invocation {
	inv := &Invocation{tc: tc, mode: mode, history: []State{Idle}, started: time.Now()}
	inv.machine = fsm.NewFSM(Idle.String(), invocationEvents(), fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			inv.history = append(inv.history, stateNamed[e.Dst])
		},
	})
	return inv
}

// State returns the current state.
func (i *Invocation) State() State {
	return stateNamed[i.machine.Current()]
}

// Transition moves to next if the edge exists.
func (i *Invocation) Transition(next State) error {
	event, ok := eventInto[next]
	if !ok || !i.machine.Can(event) {
		return fmt.Errorf("surface: %s: disallowed transition %s -> %s", i.tc.Name, i.State(), next)
	}
	if err := i.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("surface: %s: %w", i.tc.Name, err)
	}
	return nil
}

// Dispatch moves Idle to Dispatching.
func (i *Invocation) Dispatch() error {
	return i.Transition(Dispatching)
}

// Await moves Dispatching to AwaitingResult.
func (i *Invocation) Await() error {
	return i.Transition(AwaitingResult)
}

// Succeed finishes the run with artifact.
func (i *Invocation) Succeed(artifact string) Result {
	if err := i.Transition(Succeeded); err != nil {
		return i.Fail(err)
	}
	res := i.result()
	res.Artifact = artifact
	return res
}

// Fail finishes the run with err. Failing an already failed run keeps the
// first error's state and records err.
func (i *Invocation) Fail(err error) Result {
	if i.State() != Failed {
		if terr := i.Transition(Failed); terr != nil {
			i.machine.SetState(Failed.String())
			i.history = append(i.history, Failed)
		}
	}
	res := i.result()
	res.Err = err
	return res
}

func (i *Invocation) result() Result {
	return Result{
		Case:     i.tc.Name,
		Mode:     i.mode,
		State:    i.State(),
		History:  append([]State(nil), i.history...),
		Duration: time.Since(i.started),
	}
}

// WithTimeout bounds ctx by the case timeout when one is declared.
func WithTimeout(ctx context.Context, tc model.TestCase) (context.Context, context.CancelFunc) {
	if tc.Timeout > 0 {
		return context.WithTimeout(ctx, tc.Timeout)
	}
	return context.WithCancel(ctx)
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-cardgen/pkg/builtin"
	"github.com/goliatone/go-cardgen/pkg/capability"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/server"
	"github.com/goliatone/go-cardgen/pkg/source"
	"github.com/goliatone/go-cardgen/pkg/surface"
	"github.com/goliatone/go-cardgen/pkg/surface/service"
)

const (
	helperEnv  = "CARDGEN_WANT_HELPER_PROCESS"
	helperMode = "CARDGEN_HELPER_MODE"
	helperAddr = "CARDGEN_HELPER_ADDR"
)

var fastTiming = service.Timing{
	StartupTimeout: 300 * time.Millisecond,
	ProbeTimeout:   50 * time.Millisecond,
	ProbeInterval:  20 * time.Millisecond,
	GraceDelay:     10 * time.Millisecond,
	StopGrace:      100 * time.Millisecond,
}

func init() {
	gin.SetMode(gin.TestMode)
}

// TestHelperProcess is the server binary the exec tests spawn.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	switch os.Getenv(helperMode) {
	case "stubborn":
		signal.Ignore(os.Interrupt)
		time.Sleep(time.Minute)
	case "crash":
		fmt.Fprintln(os.Stderr, "listen tcp: address already in use")
		os.Exit(2)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		engine, err := builtin.NewEngine(source.NewMock())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		srv, err := server.New(engine, capability.MustLoad())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		ln, err := net.Listen("tcp", os.Getenv(helperAddr))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := srv.Serve(ctx, ln); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	os.Exit(0)
}

type fakeProcess struct {
	exitAfter time.Duration
	stderr    string

	once    sync.Once
	done    chan struct{}
	stopped atomic.Bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) Start(context.Context) error {
	if p.exitAfter > 0 {
		time.AfterFunc(p.exitAfter, p.exit)
	}
	return nil
}

func (p *fakeProcess) exit()                 { p.once.Do(func() { close(p.done) }) }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) Err() error            { return errors.New("exit status 2") }
func (p *fakeProcess) Stderr() string        { return p.stderr }

func (p *fakeProcess) Stop(time.Duration) error {
	p.stopped.Store(true)
	p.exit()
	return nil
}

// cardServer serves the real card routes and counts requests that are not
// liveness probes.
func cardServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	engine, err := builtin.NewEngine(source.NewMock(), builtin.WithClock(func() time.Time { return source.MockEpoch }))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	srv, err := server.New(engine, capability.MustLoad())
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	var cards atomic.Int32
	h := srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			cards.Add(1)
		}
		h.ServeHTTP(w, r)
	}))
	return ts, &cards
}

// unavailable answers 503 to everything and counts non-probe requests.
func unavailable() (*httptest.Server, *atomic.Int32) {
	var cards atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			cards.Add(1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	return ts, &cards
}

func TestDefaultTiming(t *testing.T) {
	want := service.Timing{
		StartupTimeout: 60 * time.Second,
		ProbeTimeout:   2 * time.Second,
		ProbeInterval:  time.Second,
		GraceDelay:     5 * time.Second,
		StopGrace:      5 * time.Second,
	}
	if diff := cmp.Diff(want, service.DefaultTiming()); diff != "" {
		t.Fatalf("timing mismatch (-want +got):\n%s", diff)
	}
}

func TestLifecycleReadyAndRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, cards := cardServer(t)
	defer ts.Close()

	proc := newFakeProcess()
	lc := service.NewLifecycle(proc, ts.URL, service.WithTiming(fastTiming))
	adapter := service.New(lc, ts.URL)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	want := []service.Phase{service.Idle, service.Starting, service.PollingReadiness, service.Ready}
	if diff := cmp.Diff(want, lc.History()); diff != "" {
		t.Fatalf("phases mismatch (-want +got):\n%s", diff)
	}
	if err := adapter.Preflight(context.Background()); err != nil {
		t.Fatalf("preflight: %v", err)
	}

	res := adapter.Run(context.Background(), model.TestCase{
		Name:   "default",
		Inputs: map[string]any{"template": "classic", "base": 0, "plugin_stars": true, "plugin_stars_limit": 2},
	})
	if !res.Succeeded() || res.Status != http.StatusOK || !strings.Contains(res.Artifact, "<svg") {
		t.Fatalf("expected a card, got %+v", res)
	}

	res = adapter.Run(context.Background(), model.TestCase{
		Name:   "incompatible",
		Inputs: map[string]any{"template": "terminal", "plugin_isocalendar": true},
	})
	if res.Succeeded() || res.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected a 422 failure, got %+v", res)
	}
	if got := cards.Load(); got < 3 {
		t.Fatalf("expected preflight and two card requests, got %d", got)
	}

	other := service.New(lc, ts.URL)
	if err := other.Stop(); !errors.Is(err, service.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if lc.Phase() != service.Stopped || !proc.stopped.Load() {
		t.Fatalf("server not stopped: phase %s", lc.Phase())
	}
}

// A server that never answers its probe inside the startup bound fails
// with StartupTimeout and no card request is sent.
func TestLifecycleStartupTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, cards := unavailable()
	defer ts.Close()

	proc := newFakeProcess()
	lc := service.NewLifecycle(proc, ts.URL, service.WithTiming(fastTiming))
	adapter := service.New(lc, ts.URL)

	started := time.Now()
	err := adapter.Start(context.Background())
	if !errors.Is(err, model.ErrStartupTimeout) {
		t.Fatalf("expected StartupTimeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed < fastTiming.StartupTimeout {
		t.Fatalf("gave up after %s, before the startup bound", elapsed)
	}
	if lc.Phase() != service.Failed || !proc.stopped.Load() {
		t.Fatalf("phase = %s, stopped = %v", lc.Phase(), proc.stopped.Load())
	}

	res := adapter.Run(context.Background(), model.TestCase{Name: "default", Inputs: map[string]any{"template": "classic"}})
	if res.State != surface.Failed || !errors.Is(res.Err, model.ErrStartupTimeout) {
		t.Fatalf("expected the run to fail with StartupTimeout, got %+v", res)
	}
	if got := cards.Load(); got != 0 {
		t.Fatalf("no card request should be attempted, got %d", got)
	}
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop after failure: %v", err)
	}
}

func TestLifecycleUnexpectedExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, _ := unavailable()
	defer ts.Close()

	proc := newFakeProcess()
	proc.exitAfter = 50 * time.Millisecond
	proc.stderr = "listen tcp :3000: address already in use"
	lc := service.NewLifecycle(proc, ts.URL, service.WithTiming(fastTiming))

	err := lc.Start(context.Background(), t)
	if !errors.Is(err, model.ErrUnexpectedServerExit) {
		t.Fatalf("expected UnexpectedServerExit, got %v", err)
	}
	if !strings.Contains(err.Error(), "address already in use") {
		t.Fatalf("stderr not attached: %v", err)
	}
	if err := lc.Start(context.Background(), t); err == nil {
		t.Fatalf("a failed lifecycle must not restart")
	}
}

// A server that dies after becoming Ready fails the next case with
// UnexpectedServerExit instead of a connection error.
func TestRunAfterServerExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, cards := cardServer(t)
	defer ts.Close()

	proc := newFakeProcess()
	proc.stderr = "panic: out of memory"
	lc := service.NewLifecycle(proc, ts.URL, service.WithTiming(fastTiming))
	adapter := service.New(lc, ts.URL)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := lc.Alive(); err != nil {
		t.Fatalf("alive: %v", err)
	}

	proc.exit()
	res := adapter.Run(context.Background(), model.TestCase{Name: "default", Inputs: map[string]any{"template": "classic"}})
	if res.State != surface.Failed || !errors.Is(res.Err, model.ErrUnexpectedServerExit) {
		t.Fatalf("expected UnexpectedServerExit, got %+v", res)
	}
	if !strings.Contains(res.Err.Error(), "out of memory") {
		t.Fatalf("stderr not attached: %v", res.Err)
	}
	if got := cards.Load(); got != 0 {
		t.Fatalf("no card request should be sent to an exited server, got %d", got)
	}
	if lc.Phase() != service.Failed {
		t.Fatalf("phase = %s", lc.Phase())
	}

	res = adapter.Run(context.Background(), model.TestCase{Name: "again", Inputs: map[string]any{"template": "classic"}})
	if !errors.Is(res.Err, model.ErrUnexpectedServerExit) {
		t.Fatalf("later cases must report the recorded exit, got %v", res.Err)
	}
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestLifecycleStartInterrupted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ts, _ := unavailable()
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	lc := service.NewLifecycle(newFakeProcess(), ts.URL, service.WithTiming(fastTiming))
	err := lc.Start(ctx, t)
	if err == nil || errors.Is(err, model.ErrStartupTimeout) {
		t.Fatalf("expected an interruption error, got %v", err)
	}
}

func TestExecProcessServes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	proc, err := service.NewExecProcess(fmt.Sprintf("%q -test.run=^TestHelperProcess$", os.Args[0]),
		append(os.Environ(), helperEnv+"=1", helperAddr+"="+addr))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	timing := fastTiming
	timing.StartupTimeout = 30 * time.Second
	timing.StopGrace = 5 * time.Second
	adapter := service.New(service.NewLifecycle(proc, "http://"+addr, service.WithTiming(timing)), "http://"+addr)
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("start: %v\nstderr: %s", err, proc.Stderr())
	}
	res := adapter.Run(context.Background(), model.TestCase{Name: "default", Inputs: map[string]any{"base": ""}})
	if err := adapter.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	<-proc.Done()
}

func TestExecProcessCrashIsReported(t *testing.T) {
	proc, err := service.NewExecProcess(fmt.Sprintf("%q -test.run=^TestHelperProcess$", os.Args[0]),
		append(os.Environ(), helperEnv+"=1", helperMode+"=crash"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	timing := fastTiming
	timing.StartupTimeout = 30 * time.Second
	lc := service.NewLifecycle(proc, "http://127.0.0.1:1", service.WithTiming(timing))
	err = lc.Start(context.Background(), t)
	if !errors.Is(err, model.ErrUnexpectedServerExit) || !strings.Contains(err.Error(), "address already in use") {
		t.Fatalf("expected UnexpectedServerExit with stderr, got %v", err)
	}
}

func TestExecProcessStopIsBounded(t *testing.T) {
	proc, err := service.NewExecProcess(fmt.Sprintf("%q -test.run=^TestHelperProcess$", os.Args[0]),
		append(os.Environ(), helperEnv+"=1", helperMode+"=stubborn"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	grace := 200 * time.Millisecond
	started := time.Now()
	if err := proc.Stop(grace); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(started); elapsed > grace+time.Second {
		t.Fatalf("stop took %s, beyond the grace period", elapsed)
	}
	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process survived the kill")
	}
}

func TestQueryDenormalizesOptions(t *testing.T) {
	req, err := options.Normalize(options.Raw{
		"template":             "classic",
		"plugin_stars":         true,
		"plugin_stars_limit":   2,
		"config.theme.variant": "dark",
		"query":                `{"repo":"gh-metrics"}`,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got := service.Query(req)
	want := map[string]string{
		"template":             "classic",
		"plugin_stars":         "true",
		"plugin_stars_limit":   "2",
		"config.theme.variant": "dark",
		"query":                `{"repo":"gh-metrics"}`,
	}
	for key, value := range want {
		if got.Get(key) != value {
			t.Fatalf("%s = %q, want %q (all: %v)", key, got.Get(key), value, got)
		}
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-cardgen/pkg/config"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
)

// Phase is the position of the supervised server.
type Phase int

const (
	Idle Phase = iota
	Starting
	PollingReadiness
	Ready
	Stopping
	Stopped
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case PollingReadiness:
		return "PollingReadiness"
	case Ready:
		return "Ready"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrNotOwner is returned when Stop is called by someone other than the
// caller that started the server.
var ErrNotOwner = errors.New("surface/service: server is owned by another caller")

// Timing holds the lifecycle bounds.
type Timing struct {
	StartupTimeout time.Duration
	ProbeTimeout   time.Duration
	ProbeInterval  time.Duration
	GraceDelay     time.Duration
	StopGrace      time.Duration
}

// DefaultTiming is 60s startup, 2s probes every 1s after a 5s grace delay,
// and a 5s stop grace.
func DefaultTiming() Timing {
	return TimingFrom(config.Default().Surface)
}

// TimingFrom reads the bounds from surface configuration.
func TimingFrom(cfg config.SurfaceConfig) Timing {
	return Timing{
		StartupTimeout: cfg.StartupTimeout,
		ProbeTimeout:   cfg.ProbeTimeout,
		ProbeInterval:  cfg.ProbeInterval,
		GraceDelay:     cfg.GraceDelay,
		StopGrace:      cfg.StopGrace,
	}
}

// Lifecycle starts a server process, polls its liveness endpoint until it
// answers 200 and stops it on behalf of the owner that started it.
type Lifecycle struct {
	proc   Process
	timing Timing
	probe  *resty.Client
	logger logger.Logger

	mu      sync.Mutex
	phase   Phase
	history []Phase
	owner   any
	cancel  context.CancelFunc
	failure error
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) LifecycleOption {
	return func(l *Lifecycle) {
		l.timing = t
	}
}

// WithLifecycleLogger sets the lifecycle logger.
func WithLifecycleLogger(log logger.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLifecycle supervises proc, probing baseURL + "/".
func NewLifecycle(proc Process, baseURL string, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		proc:    proc,
		timing:  DefaultTiming(),
		logger:  logger.Nop(),
		phase:   Idle,
		history: []Phase{Idle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.probe = resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(l.timing.ProbeTimeout)
	return l
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// History returns every phase entered so far.
func (l *Lifecycle) History() []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Phase(nil), l.history...)
}

// Failure returns the error that moved the lifecycle to Failed.
func (l *Lifecycle) Failure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failure
}

func (l *Lifecycle) enter(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phase = p
	l.history = append(l.history, p)
}

// Start launches the process and blocks until it is Ready, it exits, the
// startup timeout elapses or ctx ends. owner becomes the only caller
// allowed to Stop it.
func (l *Lifecycle) Start(ctx context.Context, owner any) error {
	l.mu.Lock()
	if l.phase != Idle {
		phase := l.phase
		l.mu.Unlock()
		return fmt.Errorf("surface/service: start from phase %s", phase)
	}
	l.owner = owner
	l.mu.Unlock()

	l.enter(Starting)
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	if err := l.proc.Start(procCtx); err != nil {
		cancel()
		return l.fail(err)
	}

	startCtx, stop := context.WithTimeout(ctx, l.timing.StartupTimeout)
	defer stop()

	if err := l.wait(startCtx, l.timing.GraceDelay); err != nil {
		return l.abort(err)
	}
	l.enter(PollingReadiness)

	ticker := time.NewTicker(l.timing.ProbeInterval)
	defer ticker.Stop()
	for {
		if l.ready(startCtx) {
			l.enter(Ready)
			l.logger.Info("server ready")
			return nil
		}
		select {
		case <-ticker.C:
		case <-l.proc.Done():
			return l.abort(l.exitError("server exited before it became ready"))
		case <-startCtx.Done():
			return l.abort(l.timeoutError(ctx))
		}
	}
}

// wait sleeps d unless the process exits or ctx ends first.
func (l *Lifecycle) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-l.proc.Done():
		return l.exitError("server exited before it became ready")
	case <-ctx.Done():
		return l.timeoutError(ctx)
	}
}

func (l *Lifecycle) ready(ctx context.Context) bool {
	resp, err := l.probe.R().SetContext(ctx).Get("/")
	if err != nil {
		l.logger.Debug("readiness probe failed", "error", err)
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// Alive checks a Ready server is still running. Once its process has
// exited the lifecycle moves to Failed with an UnexpectedServerExit.
func (l *Lifecycle) Alive() error {
	if l.Phase() != Ready {
		return nil
	}
	select {
	case <-l.proc.Done():
	default:
		return nil
	}
	l.mu.Lock()
	if l.phase != Ready {
		l.mu.Unlock()
		return nil
	}
	l.phase = Stopping
	l.history = append(l.history, Stopping)
	l.mu.Unlock()
	return l.abort(l.exitError("server exited while serving"))
}

func (l *Lifecycle) exitError(fallback string) error {
	detail := strings.TrimSpace(l.proc.Stderr())
	if detail == "" {
		detail = fallback
	}
	return model.NewError(model.KindUnexpectedServerExit, "server", detail, l.proc.Err())
}

// timeoutError distinguishes the startup bound from the caller cancelling.
func (l *Lifecycle) timeoutError(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("surface/service: startup interrupted: %w", err)
	}
	return model.Errorf(model.KindStartupTimeout, "server", "not ready after %s", l.timing.StartupTimeout)
}

// abort tears the process down and records err.
func (l *Lifecycle) abort(err error) error {
	_ = l.proc.Stop(l.timing.StopGrace)
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.probe.GetClient().CloseIdleConnections()
	return l.fail(err)
}

func (l *Lifecycle) fail(err error) error {
	l.mu.Lock()
	l.failure = err
	l.mu.Unlock()
	l.enter(Failed)
	l.logger.Error("server lifecycle failed", "error", err)
	return err
}

// Stop tears the server down. Only the owner passed to Start may stop it.
// The call returns within the stop grace whether or not the process
// confirmed its exit.
func (l *Lifecycle) Stop(owner any) error {
	l.mu.Lock()
	if l.owner == nil || owner != l.owner {
		l.mu.Unlock()
		return ErrNotOwner
	}
	phase := l.phase
	cancel := l.cancel
	l.mu.Unlock()

	switch phase {
	case Stopped, Failed, Idle:
		return nil
	}

	l.enter(Stopping)
	err := l.proc.Stop(l.timing.StopGrace)
	if cancel != nil {
		cancel()
	}
	l.probe.GetClient().CloseIdleConnections()
	l.enter(Stopped)
	if err != nil {
		return fmt.Errorf("surface/service: stop: %w", err)
	}
	return nil
}

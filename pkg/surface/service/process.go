package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/shlex"
)

// Process is the server the lifecycle supervises.
type Process interface {
	// Start launches the process without waiting for it.
	Start(ctx context.Context) error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err is the exit error, valid after Done is closed.
	Err() error
	// Stderr returns what the process wrote to stderr so far.
	Stderr() string
	// Stop asks the process to exit and waits at most grace for it.
	// Teardown counts as complete when grace elapses even if the process
	// never confirmed its exit.
	Stop(grace time.Duration) error
}

// ExecProcess runs a server command with os/exec.
type ExecProcess struct {
	argv []string
	env  []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan struct{}
	err    error
}

// NewExecProcess parses command with shell quoting rules. env is the full
// process environment.
func NewExecProcess(command string, env []string) (*ExecProcess, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("surface/service: parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("surface/service: resolve executable: %w", err)
		}
		argv = []string{self, "serve"}
	}
	return &ExecProcess{argv: argv, env: env, done: make(chan struct{})}, nil
}

func (p *ExecProcess) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return errors.New("surface/service: process already started")
	}
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Env = p.env
	cmd.Stdout = nil
	cmd.Stderr = &lockedWriter{mu: &p.mu, buf: &p.stderr}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("surface/service: start %s: %w", p.argv[0], err)
	}
	p.cmd = cmd
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return nil
}

func (p *ExecProcess) Done() <-chan struct{} {
	return p.done
}

func (p *ExecProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *ExecProcess) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stderr.String()
}

func (p *ExecProcess) Stop(grace time.Duration) error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
		return nil
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		_ = cmd.Process.Kill()
	}
	return nil
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(b)
}

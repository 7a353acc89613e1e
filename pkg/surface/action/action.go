// Package action drives the CLI/Action surface: every case runs in a fresh
// subprocess seeded with INPUT_* variables, and the exit code is the
// verdict.
package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	cardaction "github.com/goliatone/go-cardgen/pkg/action"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/surface"
)

// DefaultWaitDelay bounds how long Wait lingers on pipes after the process
// is killed.
const DefaultWaitDelay = 5 * time.Second

// Adapter spawns one process per case.
type Adapter struct {
	command    []string
	repository string
	environ    []string
	waitDelay  time.Duration
	logger     logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRepository sets GITHUB_REPOSITORY for every run.
func WithRepository(repository string) Option {
	return func(a *Adapter) {
		a.repository = repository
	}
}

// WithEnviron sets the inherited environment. INPUT_* entries and the
// repository variable are dropped from it. Defaults to os.Environ.
func WithEnviron(environ []string) Option {
	return func(a *Adapter) {
		a.environ = environ
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.waitDelay = d
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New parses command with shell quoting rules. An empty command runs the
// current executable's "action" subcommand.
func New(command string, opts ...Option) (*Adapter, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("surface/action: parse command %q: %w", command, err)
	}
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("surface/action: resolve executable: %w", err)
		}
		argv = []string{self, "action"}
	}
	a := &Adapter{
		command:   argv,
		environ:   os.Environ(),
		waitDelay: DefaultWaitDelay,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

func (a *Adapter) Mode() model.Mode {
	return model.ModeAction
}

// Run executes tc. Stdout is the artifact when the case sets dryrun.
func (a *Adapter) Run(ctx context.Context, tc model.TestCase) surface.Result {
	inv := surface.NewInvocation(tc, model.ModeAction)
	ctx, cancel := surface.WithTimeout(ctx, tc)
	defer cancel()

	if err := inv.Dispatch(); err != nil {
		return inv.Fail(err)
	}
	env := append(a.inherited(), cardaction.Environ(options.Raw(tc.Inputs), a.repository)...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	cmd.Env = env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = a.waitDelay

	if err := cmd.Start(); err != nil {
		return inv.Fail(fmt.Errorf("surface/action: start %s: %w", a.command[0], err))
	}
	if err := inv.Await(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return inv.Fail(err)
	}

	err := cmd.Wait()
	if err != nil {
		detail := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = fmt.Sprintf("exit status %d", exitErr.ExitCode())
		}
		a.logger.Warn("action process failed", "case", tc.Name, "detail", detail, "stderr", strings.TrimSpace(stderr.String()))
		res := inv.Fail(model.NewError(model.KindProcessExitNonZero, tc.Name, detail, err))
		res.Stdout = stdout.String()
		res.Stderr = stderr.String()
		return res
	}

	res := inv.Succeed(stdout.String())
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

func (a *Adapter) inherited() []string {
	out := make([]string, 0, len(a.environ))
	for _, entry := range a.environ {
		if strings.HasPrefix(entry, cardaction.InputPrefix) || strings.HasPrefix(entry, cardaction.RepositoryVar+"=") {
			continue
		}
		out = append(out, entry)
	}
	return out
}

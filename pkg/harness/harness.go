// Package harness is the parity harness: it runs every catalog case against
// every template of a matrix on every surface and records which cases
// passed, failed or were skipped by the compatibility resolver.
package harness

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/gosimple/slug"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-cardgen/pkg/compat"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/surface"
)

// Template is one row of the template matrix. Query is the repository
// context the template is rendered with.
type Template struct {
	Name  string
	Query map[string]any
}

// DefaultMatrix is classic and terminal without context plus repository
// rendered for gh-metrics.
func DefaultMatrix() []Template {
	return []Template{
		{Name: "classic"},
		{Name: "terminal"},
		{Name: "repository", Query: map[string]any{"repo": "gh-metrics"}},
	}
}

// SurfaceDefaults returns the inputs layered under every case on mode.
func SurfaceDefaults(mode model.Mode) map[string]any {
	switch mode {
	case model.ModeAction:
		return map[string]any{
			options.KeyBase:               "",
			options.KeyPluginsErrorsFatal: true,
			"dryrun":                      true,
			"use_mocked_data":             true,
			"verify":                      true,
			options.KeyRetries:            1,
		}
	case model.ModeWeb:
		return map[string]any{
			options.KeyBase:               0,
			options.KeyPluginsErrorsFatal: true,
			"verify":                      true,
		}
	case model.ModePlaceholder:
		return map[string]any{options.KeyBase: 0}
	default:
		return map[string]any{}
	}
}

// SkippedTemplates names the templates a surface never renders.
func SkippedTemplates(mode model.Mode) []string {
	if mode == model.ModePlaceholder {
		return []string{"repository"}
	}
	return nil
}

// Starter is implemented by adapters that own a long-lived resource.
type Starter interface {
	Start(ctx context.Context) error
	Stop() error
}

// Harness drives the matrix.
type Harness struct {
	caps      compat.Capabilities
	cases     []model.TestCase
	matrix    []Template
	adapters  []surface.Adapter
	logger    logger.Logger
	artifacts afero.Fs
	dir       string
	parallel  int
	now       func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithMatrix replaces DefaultMatrix.
func WithMatrix(matrix ...Template) Option {
	return func(h *Harness) {
		h.matrix = matrix
	}
}

func WithLogger(l logger.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithArtifacts writes every successful artifact under dir on fsys.
func WithArtifacts(fsys afero.Fs, dir string) Option {
	return func(h *Harness) {
		h.artifacts = fsys
		h.dir = dir
	}
}

// WithParallelism bounds how many surfaces run at once. Cases of one
// template on one surface always run sequentially.
func WithParallelism(n int) Option {
	return func(h *Harness) {
		h.parallel = n
	}
}

// New builds a harness over the capability registry, the ordered catalog
// and the adapters to compare.
func New(caps compat.Capabilities, cases []model.TestCase, adapters []surface.Adapter, opts ...Option) (*Harness, error) {
	if caps == nil {
		return nil, fmt.Errorf("harness: capabilities are required")
	}
	h := &Harness{
		caps:     caps,
		cases:    cases,
		matrix:   DefaultMatrix(),
		adapters: adapters,
		logger:   logger.Nop(),
		parallel: 1,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Run executes the matrix on every adapter. Adapters implementing Starter
// are started first and stopped afterwards; when Start fails every case of
// that surface fails without being sent. The error is non-nil only when the
// harness itself could not evaluate the matrix.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	slots := make([][]CaseResult, len(h.adapters))
	g, gctx := errgroup.WithContext(ctx)
	if h.parallel > 0 {
		g.SetLimit(h.parallel)
	}
	for i, adapter := range h.adapters {
		g.Go(func() error {
			results, err := h.runSurface(gctx, adapter)
			slots[i] = results
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, results := range slots {
		report.Results = append(report.Results, results...)
	}
	return report, nil
}

func (h *Harness) runSurface(ctx context.Context, adapter surface.Adapter) ([]CaseResult, error) {
	mode := adapter.Mode()
	log := h.logger.With("surface", mode)

	var startErr error
	if starter, ok := adapter.(Starter); ok {
		startErr = starter.Start(ctx)
		defer func() {
			if err := starter.Stop(); err != nil {
				log.Warn("surface teardown failed", "error", err)
			}
		}()
		if startErr != nil {
			log.Error("surface failed to start", "error", startErr)
		}
	}

	var out []CaseResult
	for _, tmpl := range h.matrix {
		skipped := slices.Contains(SkippedTemplates(mode), tmpl.Name)
		skips := model.SkipSet{}
		if !skipped {
			var err error
			skips, err = compat.SkipSetFor(h.caps, tmpl.Name, h.cases, mode)
			if err != nil {
				return nil, fmt.Errorf("harness: %s on %s: %w", tmpl.Name, mode, err)
			}
		}

		for _, tc := range h.cases {
			res := CaseResult{Surface: mode, Template: tmpl.Name, Case: tc.Name}
			switch {
			case skipped:
				res.Status = Skipped
				res.Reason = fmt.Sprintf("surface %s does not render template %s", mode, tmpl.Name)
			case skips.Has(tc.Name):
				res.Status = Skipped
				res.Reason = skips[tc.Name]
			case startErr != nil:
				res.Status = Failed
				res.Err = startErr
			default:
				h.runCase(ctx, adapter, tmpl, tc, &res)
			}
			if res.Status == Failed {
				log.Warn("case failed", "template", tmpl.Name, "case", tc.Name, "error", res.Err)
			}
			out = append(out, res)
		}
	}
	return out, nil
}

func (h *Harness) runCase(ctx context.Context, adapter surface.Adapter, tmpl Template, tc model.TestCase, res *CaseResult) {
	inputs, err := Inputs(adapter.Mode(), tmpl, tc)
	if err != nil {
		res.Status = Failed
		res.Err = err
		return
	}
	run := tc
	run.Inputs = inputs

	started := h.now()
	outcome := adapter.Run(ctx, run)
	res.Duration = h.now().Sub(started)
	res.Result = outcome
	if !outcome.Succeeded() {
		res.Status = Failed
		res.Err = outcome.Err
		return
	}
	res.Status = Passed
	if h.artifacts == nil {
		return
	}
	name := ArtifactName(adapter.Mode(), tmpl.Name, tc.Name)
	if err := h.writeArtifact(name, outcome.Artifact); err != nil {
		h.logger.Warn("artifact not written", "name", name, "error", err)
		return
	}
	res.ArtifactPath = path.Join(h.dir, name)
}

func (h *Harness) writeArtifact(name, artifact string) error {
	if err := h.artifacts.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(h.artifacts, path.Join(h.dir, name), []byte(artifact), 0o644)
}

// Inputs layers the case inputs over the surface defaults, then pins the
// template and its query. A case value overrides a default even when it is
// empty, so `base: ""` still disables the header.
func Inputs(mode model.Mode, tmpl Template, tc model.TestCase) (map[string]any, error) {
	merged := SurfaceDefaults(mode)
	if len(tc.Inputs) > 0 {
		if err := mergo.Merge(&merged, maps.Clone(tc.Inputs), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("harness: merge inputs of %q: %w", tc.Name, err)
		}
	}
	merged[options.KeyTemplate] = tmpl.Name
	if tmpl.Query != nil {
		merged[options.KeyQuery] = maps.Clone(tmpl.Query)
	}
	return merged, nil
}

// ArtifactName is the file a case artifact is stored under.
func ArtifactName(mode model.Mode, template, name string) string {
	return slug.Make(strings.Join([]string{string(mode), template, name}, " ")) + ".svg"
}

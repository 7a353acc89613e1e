package gotemplate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-cardgen/pkg/render/template"
)

// DefaultExtension is appended to template names that carry none.
const DefaultExtension = ".tpl"

// Option configures New.
type Option func(*config)

type config struct {
	sources   fs.FS
	extension string
	globals   map[string]any
}

// WithFS sets the tree template names resolve against.
func WithFS(sources fs.FS) Option {
	return func(cfg *config) {
		cfg.sources = sources
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.extension = ext
	}
}

// WithGlobals seeds values, typically helper functions, visible to every
// render. Later calls override earlier keys.
func WithGlobals(values map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(values))
		}
		for name, value := range values {
			if name = strings.TrimSpace(name); name != "" {
				cfg.globals[name] = value
			}
		}
	}
}

// Engine renders pongo2 sources loaded lazily from an fs.FS. Compiled
// templates are cached per path, and an Engine is safe for concurrent
// renders.
type Engine struct {
	set *pongo2.TemplateSet
	ext string

	// mu guards set.Globals, which pongo2 reads while executing.
	mu       sync.RWMutex
	compiled sync.Map
}

var _ template.Renderer = (*Engine)(nil)

var registerFilters sync.Once

// New builds an Engine over the configured sources.
func New(opts ...Option) (*Engine, error) {
	cfg := config{extension: DefaultExtension}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.sources == nil {
		return nil, errors.New("gotemplate: a source filesystem is required")
	}

	registerFilters.Do(func() {
		_ = pongo2.RegisterFilter("humanize", filterHumanize)
		_ = pongo2.RegisterFilter("percent", filterPercent)
	})

	set := pongo2.NewSet("cardgen", pongo2.NewFSLoader(cfg.sources))
	set.Globals = pongo2.Context{}
	for name, value := range cfg.globals {
		set.Globals[name] = value
	}
	return &Engine{set: set, ext: cfg.extension}, nil
}

// RenderTemplate executes the source named name, adding the engine extension
// when name has none.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if !strings.HasSuffix(name, e.ext) {
		name += e.ext
	}
	tmpl, err := e.load(name)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, name, data, out)
}

// RenderString compiles and executes source without caching it.
func (e *Engine) RenderString(source string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.set.FromString(source)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse inline template: %w", err)
	}
	return e.execute(tmpl, "inline template", data, out)
}

// RegisterFilter installs fn under name. pongo2 filters are process wide,
// so a name that already exists is rejected.
func (e *Engine) RegisterFilter(name string, fn template.Filter) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gotemplate: filter name and function are required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var arg any
		if param != nil {
			arg = param.Interface()
		}
		result, err := fn(in.Interface(), arg)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// Globals merges values into the data every render sees.
func (e *Engine) Globals(values map[string]any) error {
	ctx, err := contextOf(values)
	if err != nil {
		return fmt.Errorf("gotemplate: globals: %w", err)
	}
	e.mu.Lock()
	e.set.Globals.Update(ctx)
	e.mu.Unlock()
	return nil
}

func (e *Engine) load(path string) (*pongo2.Template, error) {
	if cached, ok := e.compiled.Load(path); ok {
		return cached.(*pongo2.Template), nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", path, err)
	}
	actual, _ := e.compiled.LoadOrStore(path, tmpl)
	return actual.(*pongo2.Template), nil
}

func (e *Engine) execute(tmpl *pongo2.Template, label string, data any, out []io.Writer) (string, error) {
	ctx, err := contextOf(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: %s data: %w", label, err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", label, err)
	}

	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// contextOf turns data into plain maps, slices and scalars so templates
// address every value the same way whatever Go type a plugin returned.
// Numbers arrive as float64. Function values are kept as they are so helper
// globals stay callable.
func contextOf(data any) (pongo2.Context, error) {
	if data == nil {
		return pongo2.Context{}, nil
	}
	var funcs map[string]any
	if m, ok := data.(map[string]any); ok {
		plain := make(map[string]any, len(m))
		for key, value := range m {
			if isFunc(value) {
				if funcs == nil {
					funcs = map[string]any{}
				}
				funcs[key] = value
				continue
			}
			plain[key] = value
		}
		data = plain
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var plain map[string]any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("data must encode to an object: %w", err)
	}
	ctx := pongo2.Context(plain)
	if ctx == nil {
		ctx = pongo2.Context{}
	}
	for key, fn := range funcs {
		ctx[key] = fn
	}
	return ctx, nil
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func filterHumanize(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if !in.IsNumber() {
		return in, nil
	}
	return pongo2.AsValue(Humanize(in.Float())), nil
}

// filterPercent formats a 0..1 ratio with one decimal.
func filterPercent(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if !in.IsNumber() {
		return in, nil
	}
	return pongo2.AsValue(strconv.FormatFloat(in.Float()*100, 'f', 1, 64) + "%"), nil
}

// Humanize prints a counter the way cards show them: 999, 1.2k, 3.4M.
func Humanize(n float64) string {
	abs := math.Abs(n)
	switch {
	case abs >= 1e9:
		return oneDecimal(n/1e9) + "B"
	case abs >= 1e6:
		return oneDecimal(n/1e6) + "M"
	case abs >= 1e3:
		return oneDecimal(n/1e3) + "k"
	default:
		return strconv.FormatFloat(math.Round(n), 'f', 0, 64)
	}
}

func oneDecimal(n float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(n, 'f', 1, 64), ".0")
}

package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

const (
	pluginSuffix   = ".plugin.yml"
	templateSuffix = ".template.yml"
)

//go:embed fixtures/*.yml
var bundled embed.FS

// Entry is the on-disk shape of one case.
type Entry struct {
	Name    string         `yaml:"name" validate:"required"`
	With    map[string]any `yaml:"with,omitempty"`
	Modes   []string       `yaml:"modes,omitempty,flow" validate:"dive,required"`
	Timeout string         `yaml:"timeout,omitempty"`
}

// Catalog is the ordered list of cases across every fixture file.
type Catalog struct {
	cases []model.TestCase
	index map[string]int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bundled loads the fixtures shipped with the module.
func Bundled() (*Catalog, error) {
	sub, err := fs.Sub(bundled, "fixtures")
	if err != nil {
		return nil, fmt.Errorf("catalog: bundled fixtures: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS reads every fixture at the root of fsys. Files are visited in
// lexical order and cases keep their declaration order within a file.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("catalog: read fixtures: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := ownerFor(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	cat := &Catalog{index: map[string]int{}}
	for _, name := range names {
		owner, _ := ownerFor(name)
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		cases, err := Parse(data, owner)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", name, err)
		}
		for _, tc := range cases {
			if err := cat.add(tc); err != nil {
				return nil, fmt.Errorf("catalog: %s: %w", name, err)
			}
		}
	}
	return cat, nil
}

// New builds a catalog from cases already in memory.
func New(cases ...model.TestCase) (*Catalog, error) {
	cat := &Catalog{index: map[string]int{}}
	for _, tc := range cases {
		if _, err := options.Normalize(tc.Inputs); err != nil {
			return nil, fmt.Errorf("catalog: case %q: %w", tc.Name, err)
		}
		if err := cat.add(tc); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return cat, nil
}

func (c *Catalog) add(tc model.TestCase) error {
	if _, exists := c.index[tc.Name]; exists {
		return fmt.Errorf("case %q declared more than once", tc.Name)
	}
	c.index[tc.Name] = len(c.cases)
	c.cases = append(c.cases, tc)
	return nil
}

// Parse decodes one fixture document and tags its cases with owner.
func Parse(data []byte, owner model.Owner) ([]model.TestCase, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	cases := make([]model.TestCase, 0, len(entries))
	for i, entry := range entries {
		tc, err := entry.TestCase(owner)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

// TestCase validates the entry and converts it.
func (e Entry) TestCase(owner model.Owner) (model.TestCase, error) {
	if err := validate.Struct(e); err != nil {
		return model.TestCase{}, err
	}

	modes := make([]model.Mode, 0, len(e.Modes))
	for _, raw := range e.Modes {
		mode, err := model.ParseMode(raw)
		if err != nil {
			return model.TestCase{}, err
		}
		modes = append(modes, mode)
	}

	timeout, err := parseTimeout(e.Timeout)
	if err != nil {
		return model.TestCase{}, err
	}

	inputs := make(map[string]any, len(e.With))
	for key, value := range e.With {
		inputs[key] = value
	}
	if _, err := options.Normalize(inputs); err != nil {
		return model.TestCase{}, fmt.Errorf("case %q: %w", e.Name, err)
	}

	return model.TestCase{
		Name:    e.Name,
		Owner:   owner,
		Inputs:  inputs,
		Modes:   modes,
		Timeout: timeout,
	}, nil
}

// Bare numbers are milliseconds; anything else accepts day and week units
// on top of the time.ParseDuration grammar.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	timeout, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return timeout, nil
}

func ownerFor(file string) (model.Owner, bool) {
	base := path.Base(file)
	switch {
	case strings.HasSuffix(base, pluginSuffix):
		return model.Owner{Kind: model.OwnerPlugin, Name: strings.TrimSuffix(base, pluginSuffix)}, true
	case strings.HasSuffix(base, templateSuffix):
		return model.Owner{Kind: model.OwnerTemplate, Name: strings.TrimSuffix(base, templateSuffix)}, true
	default:
		return model.Owner{}, false
	}
}

// FileName returns the fixture file name for owner.
func FileName(owner model.Owner) string {
	if owner.Kind == model.OwnerTemplate {
		return owner.Name + templateSuffix
	}
	return owner.Name + pluginSuffix
}

// Cases returns the cases in catalog order. The slice is a copy.
func (c *Catalog) Cases() []model.TestCase {
	return append([]model.TestCase(nil), c.cases...)
}

// Len reports the number of cases.
func (c *Catalog) Len() int {
	return len(c.cases)
}

// Get looks a case up by name.
func (c *Catalog) Get(name string) (model.TestCase, bool) {
	i, ok := c.index[name]
	if !ok {
		return model.TestCase{}, false
	}
	return c.cases[i], true
}

// ForOwner returns the cases declared under owner, in order.
func (c *Catalog) ForOwner(owner model.Owner) []model.TestCase {
	out := []model.TestCase{}
	for _, tc := range c.cases {
		if tc.Owner == owner {
			out = append(out, tc)
		}
	}
	return out
}

// Without returns a copy of the catalog minus the named case.
func (c *Catalog) Without(name string) *Catalog {
	out := &Catalog{index: map[string]int{}}
	for _, tc := range c.cases {
		if tc.Name != name {
			_ = out.add(tc)
		}
	}
	return out
}

// ErrCaseExists is returned by Append when a case of the same name is
// already present in the target file.
var ErrCaseExists = errors.New("catalog: case already exists")

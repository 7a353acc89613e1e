package model

import (
	"sort"
	"time"
)

// OwnerKind tells whether a catalog entry was declared for a plugin or for
// a template.
type OwnerKind string

const (
	OwnerPlugin   OwnerKind = "plugin"
	OwnerTemplate OwnerKind = "template"
)

// Owner is the catalog entry a test case was declared under.
type Owner struct {
	Kind OwnerKind
	Name string
}

// TestCase is a declarative rendering scenario. Inputs are raw,
// environment-shaped keys. An empty Modes set means every surface.
type TestCase struct {
	Name    string
	Owner   Owner
	Inputs  map[string]any
	Modes   []Mode
	Timeout time.Duration
}

// AllowsMode reports whether the case may run on mode.
func (c TestCase) AllowsMode(mode Mode) bool {
	if len(c.Modes) == 0 {
		return true
	}
	for _, allowed := range c.Modes {
		if allowed == mode {
			return true
		}
	}
	return false
}

// SkipSet holds the names of cases excluded for one template.
type SkipSet map[string]string

// Add records name with the reason it was skipped.
func (s SkipSet) Add(name, reason string) {
	s[name] = reason
}

// Has reports whether name is skipped.
func (s SkipSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names lists the skipped case names in lexical order.
func (s SkipSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

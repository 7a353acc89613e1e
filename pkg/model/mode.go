package model

import (
	"fmt"
	"sort"
	"strings"
)

// Mode names an execution surface or an execution context a plugin can
// declare support for.
type Mode string

const (
	// ModeAction is the one-shot command line / action surface.
	ModeAction Mode = "action"
	// ModeWeb is the long-running HTTP service surface.
	ModeWeb Mode = "web"
	// ModePlaceholder is the in-process embedded surface.
	ModePlaceholder Mode = "placeholder"
	// ModeRepository is the repository execution context. It is never a
	// surface on its own; templates require it from the plugins they host.
	ModeRepository Mode = "repository"
)

var modeAliases = map[string]Mode{
	"action":            ModeAction,
	"cli":               ModeAction,
	"web":               ModeWeb,
	"service":           ModeWeb,
	"placeholder":       ModePlaceholder,
	"embedded":          ModePlaceholder,
	"repository":        ModeRepository,
	"repositorycontext": ModeRepository,
}

// Surfaces lists the three execution surfaces in their canonical order.
func Surfaces() []Mode {
	return []Mode{ModeAction, ModeWeb, ModePlaceholder}
}

// ParseMode resolves a mode name, accepting the surface aliases used by
// older fixtures (cli, service, embedded, repositoryContext).
func ParseMode(raw string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	mode, ok := modeAliases[key]
	if !ok {
		return "", fmt.Errorf("model: unknown mode %q", raw)
	}
	return mode, nil
}

// IsSurface reports whether the mode names one of the execution surfaces.
func (m Mode) IsSurface() bool {
	switch m {
	case ModeAction, ModeWeb, ModePlaceholder:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	return string(m)
}

// ModeSet is an unordered set of modes.
type ModeSet map[Mode]struct{}

// NewModeSet builds a set from the provided modes.
func NewModeSet(modes ...Mode) ModeSet {
	set := make(ModeSet, len(modes))
	for _, mode := range modes {
		set[mode] = struct{}{}
	}
	return set
}

// Has reports whether the set contains mode.
func (s ModeSet) Has(mode Mode) bool {
	_, ok := s[mode]
	return ok
}

// Sorted returns the members in lexical order.
func (s ModeSet) Sorted() []Mode {
	out := make([]Mode, 0, len(s))
	for mode := range s {
		out = append(out, mode)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

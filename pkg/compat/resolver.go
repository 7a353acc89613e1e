// Package compat decides which catalog cases must not run against a
// template. Every decision looks at one case only, so the result for a case
// never depends on the rest of the catalog or on evaluation order.
package compat

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

// Capabilities is the subset of the capability registry the resolver reads.
type Capabilities interface {
	Supports(plugin string, mode model.Mode) (bool, error)
	Compatible(template, plugin string) (bool, error)
	RequiredModes(template string) ([]model.Mode, error)
}

// Decision is the verdict for a single case.
type Decision struct {
	Skip   bool
	Reason string
}

func run() Decision {
	return Decision{}
}

func skip(format string, args ...any) Decision {
	return Decision{Skip: true, Reason: fmt.Sprintf(format, args...)}
}

// Decide evaluates one case against template under mode.
//
// A case is skipped when it belongs to another template, when its mode
// allow-list excludes mode, when the template is incompatible with one of the
// plugins the case requires, or when one of those plugins lacks support for
// mode or for a context the template requires.
func Decide(caps Capabilities, template string, tc model.TestCase, mode model.Mode) (Decision, error) {
	if caps == nil {
		return Decision{}, fmt.Errorf("compat: capabilities are required")
	}

	if tc.Owner.Kind == model.OwnerTemplate && tc.Owner.Name != template {
		return skip("case belongs to template %q", tc.Owner.Name), nil
	}

	if !tc.AllowsMode(mode) {
		return skip("mode %q not in case modes %v", mode, tc.Modes), nil
	}

	plugins, err := RequiredPlugins(tc)
	if err != nil {
		return Decision{}, fmt.Errorf("compat: case %q: %w", tc.Name, err)
	}

	contexts, err := caps.RequiredModes(template)
	if err != nil {
		return Decision{}, err
	}
	contexts = append([]model.Mode{mode}, contexts...)

	for _, plugin := range plugins {
		ok, err := caps.Compatible(template, plugin)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return skip("template %q is not compatible with plugin %q", template, plugin), nil
		}
		for _, ctx := range contexts {
			supported, err := caps.Supports(plugin, ctx)
			if err != nil {
				return Decision{}, err
			}
			if !supported {
				return skip("plugin %q does not support %q", plugin, ctx), nil
			}
		}
	}

	return run(), nil
}

// SkipSetFor computes the skip set of template over an ordered catalog.
func SkipSetFor(caps Capabilities, template string, catalog []model.TestCase, mode model.Mode) (model.SkipSet, error) {
	set := model.SkipSet{}
	for _, tc := range catalog {
		decision, err := Decide(caps, template, tc, mode)
		if err != nil {
			return nil, err
		}
		if decision.Skip {
			set.Add(tc.Name, decision.Reason)
		}
	}
	return set, nil
}

// RequiredPlugins lists the plugins a case exercises: its owning plugin plus
// every plugin its inputs activate.
func RequiredPlugins(tc model.TestCase) ([]string, error) {
	req, err := options.Normalize(options.Raw(tc.Inputs))
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	if tc.Owner.Kind == model.OwnerPlugin && tc.Owner.Name != "" {
		seen[tc.Owner.Name] = struct{}{}
	}
	for _, id := range req.EnabledPlugins() {
		seen[id] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

package model

import (
	"sort"
)

// ActivationState tags a plugin activation payload.
type ActivationState int

const (
	Disabled ActivationState = iota
	Enabled
	EnabledWithOptions
)

func (s ActivationState) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case EnabledWithOptions:
		return "enabled_with_options"
	default:
		return "disabled"
	}
}

// Activation is the tagged activation payload of a plugin. Raw keeps the
// value exactly as it was supplied so the request can be turned back into
// its environment-shaped form.
type Activation struct {
	State   ActivationState
	Options map[string]any
	Raw     any
}

// Active reports whether the plugin should run.
func (a Activation) Active() bool {
	return a.State != Disabled
}

// Request is the canonical, environment-agnostic rendering request.
//
// PluginOptions, Config and BaseOptions are flat maps keyed by dot-delimited
// paths without empty segments. A map value is stored whole under the path
// it was given at. Config and BaseOptions keys are stored without their
// "config." / "base." prefixes.
type Request struct {
	Template string
	User     string
	Avatar   string
	Version  string

	Plugins       map[string]Activation
	PluginOptions map[string]any
	Config        map[string]any
	BaseOptions   map[string]any

	// BaseSections lists the enabled sections of the base plugin. Nil means
	// "not specified" and lets the engine apply its defaults; an empty
	// non-nil slice disables every section.
	BaseSections []string
	Query        map[string]any

	PluginsErrorsFatal bool
	Retries            int

	// Residual holds keys the normalizer did not recognise. Only surface
	// transports read it; the rendering core ignores it.
	Residual map[string]any
}

// EnabledPlugins returns the ids of active plugins in lexical order.
func (r Request) EnabledPlugins() []string {
	ids := make([]string, 0, len(r.Plugins))
	for id, activation := range r.Plugins {
		if activation.Active() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep-enough copy: every map is duplicated so the clone
// can be mutated without touching the receiver.
func (r Request) Clone() Request {
	out := r
	if r.Plugins != nil {
		out.Plugins = make(map[string]Activation, len(r.Plugins))
		for id, activation := range r.Plugins {
			activation.Options = cloneMap(activation.Options)
			out.Plugins[id] = activation
		}
	}
	out.PluginOptions = cloneMap(r.PluginOptions)
	out.Config = cloneMap(r.Config)
	out.BaseOptions = cloneMap(r.BaseOptions)
	out.Query = cloneMap(r.Query)
	out.Residual = cloneMap(r.Residual)
	if r.BaseSections != nil {
		out.BaseSections = append([]string{}, r.BaseSections...)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		if nested, ok := value.(map[string]any); ok {
			out[key] = cloneMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}

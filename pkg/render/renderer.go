package render

import (
	"context"
)

// Plugin gathers the data one section of a card needs. Gather must be safe
// for concurrent use: the engine runs every enabled plugin of a request in
// parallel and may run the same plugin for concurrent requests.
type Plugin interface {
	Name() string
	Gather(ctx context.Context, in Input) (any, error)
}

// Template turns the gathered data bag into an artifact.
type Template interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View) (string, error)
}

// PluginFunc adapts a function to Plugin.
type PluginFunc struct {
	ID string
	Fn func(ctx context.Context, in Input) (any, error)
}

func (p PluginFunc) Name() string { return p.ID }

func (p PluginFunc) Gather(ctx context.Context, in Input) (any, error) {
	return p.Fn(ctx, in)
}

// Input is what a plugin sees of the request. Options, Config and Base are
// nested maps built from the flat request paths.
type Input struct {
	Template     string
	User         string
	Options      map[string]any
	Config       map[string]any
	Base         map[string]any
	BaseSections []string
	Query        map[string]any
	Attempt      int
}

// View is handed to the template once every plugin has finished. Plugins
// only holds the data of plugins that succeeded.
type View struct {
	Template     string
	User         string
	Avatar       string
	Version      string
	Plugins      map[string]any
	Enabled      []string
	Config       map[string]any
	Base         map[string]any
	BaseSections []string
	Query        map[string]any
}

// Has reports whether plugin produced data for this render.
func (v View) Has(plugin string) bool {
	_, ok := v.Plugins[plugin]
	return ok
}

// Result is a successful render.
type Result struct {
	Template    string
	ContentType string
	Artifact    string
	Plugins     []PluginResult
}

// PluginResult records how one plugin fared. Err is nil on success.
type PluginResult struct {
	Name     string
	Attempts int
	Err      error
}

// Failed lists plugins whose data was omitted.
func (r Result) Failed() []string {
	out := []string{}
	for _, p := range r.Plugins {
		if p.Err != nil {
			out = append(out, p.Name)
		}
	}
	return out
}

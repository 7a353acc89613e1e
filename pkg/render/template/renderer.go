package template

import (
	"io"
)

// Filter transforms a value inside a template expression. param is nil when
// the template passes no argument.
type Filter func(input, param any) (any, error)

// Renderer executes named card sources. Built-in templates render through it
// and callers can swap in their own engine with templates.WithRenderer.
type Renderer interface {
	// RenderTemplate executes the source stored under name. The result is
	// also copied to every writer in out.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	// RenderString executes an inline source.
	RenderString(source string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn Filter) error
	// Globals merges values visible to every render.
	Globals(values map[string]any) error
}

package capability

import (
	"sort"
	"sync"

	"github.com/goliatone/go-cardgen/pkg/manifest"
	"github.com/goliatone/go-cardgen/pkg/model"
)

// Registry is an immutable index of plugin and template metadata. It is safe
// for concurrent use once built.
type Registry struct {
	plugins   map[string]model.PluginMetadata
	templates map[string]model.TemplateMetadata
}

// New indexes the provided records. Duplicate ids and records without an id
// are reported as metadata load errors.
func New(plugins []model.PluginMetadata, templates []model.TemplateMetadata) (*Registry, error) {
	reg := &Registry{
		plugins:   make(map[string]model.PluginMetadata, len(plugins)),
		templates: make(map[string]model.TemplateMetadata, len(templates)),
	}
	for _, meta := range plugins {
		if meta.ID == "" {
			return nil, model.Errorf(model.KindMetadataLoad, "", "plugin id is required")
		}
		if _, exists := reg.plugins[meta.ID]; exists {
			return nil, model.Errorf(model.KindMetadataLoad, meta.ID, "plugin declared more than once")
		}
		if meta.SupportedModes == nil {
			meta.SupportedModes = model.NewModeSet()
		}
		reg.plugins[meta.ID] = meta
	}
	for _, meta := range templates {
		if meta.ID == "" {
			return nil, model.Errorf(model.KindMetadataLoad, "", "template id is required")
		}
		if _, exists := reg.templates[meta.ID]; exists {
			return nil, model.Errorf(model.KindMetadataLoad, meta.ID, "template declared more than once")
		}
		if meta.Compatibility == nil {
			meta.Compatibility = map[string]bool{}
		}
		reg.templates[meta.ID] = meta
	}
	return reg, nil
}

var loadBundled = sync.OnceValues(func() (*Registry, error) {
	return LoadFS(manifest.FS())
})

// Load returns the registry built from the bundled manifests. The manifests
// are parsed once per process; later calls share the result.
func Load() (*Registry, error) {
	return loadBundled()
}

// MustLoad panics when the bundled manifests are invalid.
func MustLoad() *Registry {
	reg, err := Load()
	if err != nil {
		panic(err)
	}
	return reg
}

// Plugin returns the metadata of a plugin.
func (r *Registry) Plugin(id string) (model.PluginMetadata, error) {
	meta, ok := r.plugins[id]
	if !ok {
		return model.PluginMetadata{}, model.Errorf(model.KindUnknownPlugin, id, "no metadata registered")
	}
	return meta, nil
}

// Template returns the metadata of a template.
func (r *Registry) Template(id string) (model.TemplateMetadata, error) {
	meta, ok := r.templates[id]
	if !ok {
		return model.TemplateMetadata{}, model.Errorf(model.KindUnknownTemplate, id, "no metadata registered")
	}
	return meta, nil
}

// Supports reports whether plugin declared support for mode.
func (r *Registry) Supports(plugin string, mode model.Mode) (bool, error) {
	meta, err := r.Plugin(plugin)
	if err != nil {
		return false, err
	}
	return meta.Supports(mode), nil
}

// Compatible reports whether template accepts plugin. A plugin the template
// does not list is incompatible. An unknown plugin is reported before an
// unknown template is considered compatible with anything.
func (r *Registry) Compatible(template, plugin string) (bool, error) {
	meta, err := r.Template(template)
	if err != nil {
		return false, err
	}
	if _, err := r.Plugin(plugin); err != nil {
		return false, err
	}
	return meta.Compatible(plugin), nil
}

// HasPlugin reports whether a plugin has metadata.
func (r *Registry) HasPlugin(id string) bool {
	_, ok := r.plugins[id]
	return ok
}

// HasTemplate reports whether a template has metadata.
func (r *Registry) HasTemplate(id string) bool {
	_, ok := r.templates[id]
	return ok
}

// Plugins lists plugin ids in lexical order.
func (r *Registry) Plugins() []string {
	return sortedKeys(r.plugins)
}

// Templates lists template ids in lexical order.
func (r *Registry) Templates() []string {
	return sortedKeys(r.templates)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RequiredModes lists the execution contexts template demands from every
// plugin it hosts.
func (r *Registry) RequiredModes(template string) ([]model.Mode, error) {
	meta, err := r.Template(template)
	if err != nil {
		return nil, err
	}
	return append([]model.Mode(nil), meta.Requires...), nil
}

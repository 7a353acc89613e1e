package options

import (
	"strings"

	"github.com/knadh/koanf/maps"

	"github.com/goliatone/go-cardgen/pkg/model"
)

// Unflatten collapses dotted paths into nested maps.
func Unflatten(flat map[string]any) map[string]any {
	if len(flat) == 0 {
		return map[string]any{}
	}
	return maps.Unflatten(flat, pathSeparator)
}

// Flatten expands nested maps into dotted paths. Empty nested maps are
// kept as leaves.
func Flatten(nested map[string]any) map[string]any {
	if len(nested) == 0 {
		return map[string]any{}
	}
	flat, _ := maps.Flatten(nested, nil, pathSeparator)
	return flat
}

// ForPlugin returns the nested options of plugin id: the plugin_<id>_*
// option paths merged with the options object of an EnabledWithOptions
// activation. Option paths win over the activation object.
func ForPlugin(req model.Request, id string) map[string]any {
	flat := make(map[string]any)
	if activation, ok := req.Plugins[id]; ok && activation.State == model.EnabledWithOptions {
		for path, value := range Flatten(activation.Options) {
			flat[path] = value
		}
	}
	prefix := id + pathSeparator
	for path, value := range req.PluginOptions {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		path = strings.TrimPrefix(path, prefix)
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			for sub, leaf := range Flatten(nested) {
				flat[path+pathSeparator+sub] = leaf
			}
			continue
		}
		flat[path] = value
	}
	return Unflatten(flat)
}

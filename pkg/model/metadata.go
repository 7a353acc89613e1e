package model

// PluginMetadata is the self-described capability record of a plugin.
type PluginMetadata struct {
	ID             string
	Name           string
	Category       string
	SupportedModes ModeSet
}

// Supports reports whether the plugin declared mode.
func (m PluginMetadata) Supports(mode Mode) bool {
	return m.SupportedModes.Has(mode)
}

// TemplateMetadata is the self-described record of a template.
//
// Compatibility is closed-world: a plugin absent from the map is
// incompatible. Requires lists the execution contexts every hosted plugin
// must support (the repository template requires ModeRepository).
type TemplateMetadata struct {
	ID            string
	Name          string
	Compatibility map[string]bool
	Readme        map[string]bool
	Requires      []Mode
}

// Compatible reports whether the template explicitly accepts plugin.
func (m TemplateMetadata) Compatible(plugin string) bool {
	return m.Compatibility[plugin]
}

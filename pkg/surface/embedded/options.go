package embedded

import (
	"sort"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

// Options is the structured value a host passes to Render. Config, plugin
// options and base options are nested objects, the way a page script would
// write them.
type Options struct {
	Templates TemplateOptions `json:"templates"`
	Plugins   PluginOptions   `json:"plugins"`
	Base      BaseOptions     `json:"base"`
	Config    map[string]any  `json:"config,omitempty"`
	Query     map[string]any  `json:"query,omitempty"`
	Version   string          `json:"version,omitempty"`
	User      string          `json:"user,omitempty"`
	Avatar    string          `json:"avatar,omitempty"`

	PluginsErrorsFatal bool `json:"pluginsErrorsFatal,omitempty"`
	Retries            int  `json:"retries,omitempty"`
}

type TemplateOptions struct {
	Selected string `json:"selected,omitempty"`
}

// PluginOptions holds activation values by plugin id and per plugin option
// trees, e.g. Options["stars"] = {"limit": 2}.
type PluginOptions struct {
	Enabled map[string]any `json:"enabled,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// BaseOptions configures the implicit base plugin. Nil Sections keeps the
// default sections; an empty slice disables them all.
type BaseOptions struct {
	Sections []string       `json:"sections,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// FromRequest converts a canonical request into structured options.
func FromRequest(req model.Request) Options {
	opts := Options{
		Templates:          TemplateOptions{Selected: req.Template},
		Config:             options.Unflatten(req.Config),
		Query:              req.Query,
		Version:            req.Version,
		User:               req.User,
		Avatar:             req.Avatar,
		PluginsErrorsFatal: req.PluginsErrorsFatal,
		Retries:            req.Retries,
		Base: BaseOptions{
			Sections: req.BaseSections,
			Options:  options.Unflatten(req.BaseOptions),
		},
		Plugins: PluginOptions{
			Enabled: make(map[string]any, len(req.Plugins)),
			Options: options.Unflatten(req.PluginOptions),
		},
	}
	for id, activation := range req.Plugins {
		opts.Plugins.Enabled[id] = options.ActivationValue(activation)
	}
	return opts
}

// Request converts structured options back into the canonical request,
// validating every option path on the way.
func (o Options) Request() (model.Request, error) {
	raw := options.Raw{}
	set := func(key, value string) {
		if value != "" {
			raw[key] = value
		}
	}
	set(options.KeyTemplate, o.Templates.Selected)
	set(options.KeyUser, o.User)
	set(options.KeyAvatar, o.Avatar)
	set(options.KeyVersion, o.Version)
	if o.PluginsErrorsFatal {
		raw[options.KeyPluginsErrorsFatal] = true
	}
	if o.Retries != 0 {
		raw[options.KeyRetries] = o.Retries
	}
	if o.Base.Sections != nil {
		raw[options.KeyBase] = append([]string(nil), o.Base.Sections...)
	}

	ids := make([]string, 0, len(o.Plugins.Enabled))
	for id := range o.Plugins.Enabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		key := options.PluginPrefix + id
		if !options.IsActivationKey(key) {
			return model.Request{}, model.Errorf(model.KindMalformedKey, id, "plugin id must be lowercase letters")
		}
		raw[key] = o.Plugins.Enabled[id]
	}

	req, err := options.Normalize(raw)
	if err != nil {
		return model.Request{}, err
	}
	if o.Query != nil {
		req.Query = o.Query
	}
	for _, tree := range []struct {
		dest   map[string]any
		nested map[string]any
	}{
		{req.PluginOptions, o.Plugins.Options},
		{req.Config, o.Config},
		{req.BaseOptions, o.Base.Options},
	} {
		for path, value := range options.Flatten(tree.nested) {
			if err := options.ValidatePath(path); err != nil {
				return model.Request{}, err
			}
			tree.dest[path] = value
		}
	}
	return req, nil
}

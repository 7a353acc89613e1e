package options

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-cardgen/pkg/model"
)

// Denormalize turns a canonical request back into its environment-shaped
// form. For every key Normalize accepted under the plugin_, config. and
// base. grammar, Denormalize(Normalize(x)) reproduces x; residual keys are
// copied verbatim.
func Denormalize(req model.Request) Raw {
	raw := make(Raw, len(req.Plugins)+len(req.PluginOptions)+len(req.Config)+len(req.BaseOptions)+len(req.Residual)+8)

	for key, value := range req.Residual {
		raw[key] = value
	}

	setIfNotEmpty(raw, KeyTemplate, req.Template)
	setIfNotEmpty(raw, KeyUser, req.User)
	setIfNotEmpty(raw, KeyAvatar, req.Avatar)
	setIfNotEmpty(raw, KeyVersion, req.Version)
	if req.PluginsErrorsFatal {
		raw[KeyPluginsErrorsFatal] = true
	}
	if req.Retries > 0 {
		raw[KeyRetries] = req.Retries
	}
	if req.Query != nil {
		if payload, err := json.Marshal(req.Query); err == nil {
			raw[KeyQuery] = string(payload)
		}
	}
	if req.BaseSections != nil {
		raw[KeyBase] = strings.Join(req.BaseSections, ",")
	}

	for id, activation := range req.Plugins {
		raw[PluginPrefix+id] = ActivationValue(activation)
	}
	for path, value := range req.PluginOptions {
		raw[pluginOptionKeyFor(path)] = value
	}
	for path, value := range req.Config {
		raw[ConfigPrefix+path] = value
	}
	for path, value := range req.BaseOptions {
		raw[BasePrefix+path] = value
	}
	return raw
}

// ActivationValue is the raw value an activation denormalizes to.
func ActivationValue(activation model.Activation) any {
	if activation.Raw != nil {
		return activation.Raw
	}
	switch activation.State {
	case model.EnabledWithOptions:
		return activation.Options
	case model.Enabled:
		return true
	default:
		return false
	}
}

func setIfNotEmpty(raw Raw, key, value string) {
	if value != "" {
		raw[key] = value
	}
}

// Strings renders raw values as strings, the shape environment variables
// and query strings carry. Maps and slices are JSON encoded.
func Strings(raw Raw) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		out[key] = StringValue(value)
	}
	return out
}

// StringValue renders a single raw value.
func StringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any, []string:
		payload, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(payload)
	default:
		return stringValue(v)
	}
}

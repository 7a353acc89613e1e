package options

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-cardgen/pkg/model"
)

const (
	PluginPrefix = "plugin_"
	ConfigPrefix = "config."
	BasePrefix   = "base."

	pathSeparator = "."
)

// Canonical scalar keys.
const (
	KeyTemplate           = "template"
	KeyUser               = "user"
	KeyAvatar             = "avatar"
	KeyVersion            = "version"
	KeyPluginsErrorsFatal = "plugins_errors_fatal"
	KeyRetries            = "retries"
	KeyQuery              = "query"
	KeyBase               = "base"
)

var (
	activationKey   = regexp.MustCompile(`^plugin_[a-z]+$`)
	pluginOptionKey = regexp.MustCompile(`^plugin_[a-z_]+$`)
)

// IsActivationKey reports whether key toggles a plugin (plugin_<name>).
func IsActivationKey(key string) bool {
	return activationKey.MatchString(key)
}

// PluginName extracts the plugin id from an activation key.
func PluginName(key string) (string, bool) {
	if !IsActivationKey(key) {
		return "", false
	}
	return strings.TrimPrefix(key, PluginPrefix), true
}

// ValidatePath checks that path is dot-delimited with no empty segments.
func ValidatePath(path string) error {
	if path == "" {
		return model.Errorf(model.KindMalformedKey, path, "empty path")
	}
	for _, segment := range strings.Split(path, pathSeparator) {
		if segment == "" {
			return model.Errorf(model.KindMalformedKey, path, "path has an empty segment")
		}
	}
	return nil
}

func pluginOptionPath(key string) (string, error) {
	if !pluginOptionKey.MatchString(key) {
		return "", model.Errorf(model.KindMalformedKey, key, "plugin keys must match plugin_[a-z_]+")
	}
	path := strings.ReplaceAll(strings.TrimPrefix(key, PluginPrefix), "_", pathSeparator)
	if err := ValidatePath(path); err != nil {
		return "", model.Errorf(model.KindMalformedKey, key, "plugin option path has an empty segment")
	}
	return path, nil
}

func pluginOptionKeyFor(path string) string {
	return PluginPrefix + strings.ReplaceAll(path, pathSeparator, "_")
}

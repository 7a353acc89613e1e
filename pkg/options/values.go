package options

import (
	"strings"

	"github.com/knadh/koanf/maps"
)

// Lookup reads a dotted path from a nested options map.
func Lookup(nested map[string]any, path string) (any, bool) {
	if len(nested) == 0 || path == "" {
		return nil, false
	}
	value := maps.Search(nested, strings.Split(path, pathSeparator))
	return value, value != nil
}

// Bool reads a flag, accepting the spellings activation values accept.
// Missing or unparseable values yield fallback.
func Bool(nested map[string]any, path string, fallback bool) bool {
	value, ok := Lookup(nested, path)
	if !ok {
		return fallback
	}
	flag, ok := truthy(value)
	if !ok {
		return fallback
	}
	return flag
}

// Int reads an integer. Missing or unparseable values yield fallback.
func Int(nested map[string]any, path string, fallback int) int {
	value, ok := Lookup(nested, path)
	if !ok {
		return fallback
	}
	n, err := intValue(value)
	if err != nil {
		return fallback
	}
	return n
}

// String reads a string, rendering scalars with fmt.
func String(nested map[string]any, path, fallback string) string {
	value, ok := Lookup(nested, path)
	if !ok {
		return fallback
	}
	if s := strings.TrimSpace(stringValue(value)); s != "" {
		return s
	}
	return fallback
}

// List reads a comma separated list or a sequence. Entries are trimmed and
// lower-cased.
func List(nested map[string]any, path string) []string {
	value, ok := Lookup(nested, path)
	if !ok {
		return nil
	}
	var items []string
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			items = append(items, stringValue(item))
		}
	case []string:
		items = v
	default:
		items = strings.Split(stringValue(v), ",")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package options

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-cardgen/pkg/model"
)

// Raw is an environment-shaped input map.
type Raw map[string]any

// Layer returns a copy of raw with every key of defaults it lacks. A key
// present in raw wins even when its value is empty or false.
func Layer(raw, defaults Raw) Raw {
	out := make(Raw, len(raw)+len(defaults))
	for key, value := range defaults {
		out[key] = value
	}
	for key, value := range raw {
		out[key] = value
	}
	return out
}

// Normalize converts raw input into a canonical request. Keys are processed
// in lexical order so the first malformed key reported is deterministic.
func Normalize(raw Raw) (model.Request, error) {
	req := model.Request{
		Plugins:       make(map[string]model.Activation),
		PluginOptions: make(map[string]any),
		Config:        make(map[string]any),
		BaseOptions:   make(map[string]any),
		Residual:      make(map[string]any),
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		var err error
		switch {
		case isCanonicalKey(key):
			err = applyCanonical(&req, key, value)
		case strings.HasPrefix(key, PluginPrefix):
			err = applyPluginKey(&req, key, value)
		case strings.HasPrefix(key, ConfigPrefix):
			err = applyPrefixed(req.Config, key, ConfigPrefix, value)
		case strings.HasPrefix(key, BasePrefix):
			err = applyPrefixed(req.BaseOptions, key, BasePrefix, value)
		default:
			req.Residual[key] = value
		}
		if err != nil {
			return model.Request{}, err
		}
	}

	for _, flat := range []map[string]any{req.PluginOptions, req.Config, req.BaseOptions} {
		if err := checkConflicts(flat); err != nil {
			return model.Request{}, err
		}
	}
	return req, nil
}

func isCanonicalKey(key string) bool {
	switch key {
	case KeyTemplate, KeyUser, KeyAvatar, KeyVersion, KeyPluginsErrorsFatal, KeyRetries, KeyQuery, KeyBase:
		return true
	default:
		return false
	}
}

func applyCanonical(req *model.Request, key string, value any) error {
	switch key {
	case KeyTemplate:
		req.Template = stringValue(value)
	case KeyUser:
		req.User = stringValue(value)
	case KeyAvatar:
		req.Avatar = stringValue(value)
	case KeyVersion:
		req.Version = stringValue(value)
	case KeyPluginsErrorsFatal:
		flag, ok := truthy(value)
		if !ok {
			return model.Errorf(model.KindMalformedKey, key, "expected a boolean, got %v", value)
		}
		req.PluginsErrorsFatal = flag
	case KeyRetries:
		retries, err := intValue(value)
		if err != nil || retries < 0 {
			return model.Errorf(model.KindMalformedKey, key, "expected a non-negative integer, got %v", value)
		}
		req.Retries = retries
	case KeyQuery:
		query, err := queryValue(value)
		if err != nil {
			return model.NewError(model.KindMalformedKey, key, "invalid query", err)
		}
		req.Query = query
	case KeyBase:
		sections, err := baseSections(value)
		if err != nil {
			return model.NewError(model.KindMalformedKey, key, "invalid base sections", err)
		}
		req.BaseSections = sections
	}
	return nil
}

func applyPluginKey(req *model.Request, key string, value any) error {
	if name, ok := PluginName(key); ok {
		activation, err := parseActivation(value)
		if err != nil {
			return model.NewError(model.KindMalformedKey, key, "invalid activation value", err)
		}
		req.Plugins[name] = activation
		return nil
	}
	path, err := pluginOptionPath(key)
	if err != nil {
		return err
	}
	return setLeaf(req.PluginOptions, path, key, value)
}

func applyPrefixed(dest map[string]any, key, prefix string, value any) error {
	path := strings.TrimPrefix(key, prefix)
	if err := ValidatePath(path); err != nil {
		return model.Errorf(model.KindMalformedKey, key, "path has an empty segment")
	}
	return setLeaf(dest, path, key, value)
}

// setLeaf stores value under path. A map value is kept whole so the key
// shape survives Denormalize; its keys must still form valid paths.
func setLeaf(dest map[string]any, path, key string, value any) error {
	if nested, ok := value.(map[string]any); ok {
		for subPath := range Flatten(nested) {
			if err := ValidatePath(path + pathSeparator + subPath); err != nil {
				return model.Errorf(model.KindMalformedKey, key, "nested value has an empty key")
			}
		}
	}
	dest[path] = value
	return nil
}

// checkConflicts rejects a flat map that holds both a path and one of its
// descendants, since unflattening it would drop one of them.
func checkConflicts(flat map[string]any) error {
	for path := range flat {
		segments := strings.Split(path, pathSeparator)
		for i := 1; i < len(segments); i++ {
			prefix := strings.Join(segments[:i], pathSeparator)
			if _, exists := flat[prefix]; exists {
				return model.Errorf(model.KindMalformedKey, path, "conflicts with %q", prefix)
			}
		}
	}
	return nil
}

func parseActivation(value any) (model.Activation, error) {
	switch v := value.(type) {
	case map[string]any:
		return model.Activation{State: model.EnabledWithOptions, Options: v, Raw: value}, nil
	default:
		flag, ok := truthy(value)
		if !ok {
			return model.Activation{}, fmt.Errorf("expected a boolean or an options object, got %T", value)
		}
		state := model.Disabled
		if flag {
			state = model.Enabled
		}
		return model.Activation{State: state, Raw: value}, nil
	}
}

func truthy(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, true
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, true
		case "false", "no", "off", "0", "":
			return false, true
		}
	}
	return false, false
}

func intValue(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.Atoi(strings.TrimSpace(v))
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func queryValue(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		out := map[string]any{}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

func baseSections(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return nil, nil
		}
		return []string{}, nil
	case int, int64, float64:
		if flag, _ := truthy(v); flag {
			return nil, nil
		}
		return []string{}, nil
	case string:
		return splitList(v), nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, strings.TrimSpace(stringValue(item)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

func splitList(raw string) []string {
	out := []string{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "0" || strings.EqualFold(trimmed, "false") {
		return out
	}
	for _, part := range strings.Split(trimmed, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

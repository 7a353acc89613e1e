package render

import (
	"sort"
	"sync"

	"github.com/goliatone/go-cardgen/pkg/model"
)

type named interface {
	Name() string
}

// Registry stores plugins or templates by name, providing discovery and
// duplicate-name safeguards.
type Registry[T named] struct {
	mu      sync.RWMutex
	entries map[string]T
	kind    model.Kind
	noun    string
}

type (
	PluginRegistry   = Registry[Plugin]
	TemplateRegistry = Registry[Template]
)

// NewPluginRegistry creates an empty plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &Registry[Plugin]{entries: map[string]Plugin{}, kind: model.KindUnknownPlugin, noun: "plugin"}
}

// NewTemplateRegistry creates an empty template registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &Registry[Template]{entries: map[string]Template{}, kind: model.KindUnknownTemplate, noun: "template"}
}

// Register adds an entry by its Name(). Duplicate names return an error.
func (r *Registry[T]) Register(entry T) error {
	if isNil(entry) {
		return model.Errorf(model.KindMetadataLoad, "", "%s is required", r.noun)
	}
	name := entry.Name()
	if name == "" {
		return model.Errorf(model.KindMetadataLoad, "", "%s name is required", r.noun)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return model.Errorf(model.KindMetadataLoad, name, "%s already registered", r.noun)
	}
	r.entries[name] = entry
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry[T]) MustRegister(entries ...T) {
	for _, entry := range entries {
		if err := r.Register(entry); err != nil {
			panic(err)
		}
	}
}

// Get retrieves an entry by name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		var zero T
		return zero, model.Errorf(r.kind, name, "%s not registered", r.noun)
	}
	return entry, nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]
	return ok
}

// List returns registered names in lexical order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isNil(v any) bool {
	return v == nil
}

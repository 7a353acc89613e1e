// Package action implements the CLI/Action surface: inputs arrive as
// INPUT_<KEY> environment variables, the artifact is printed or written, and
// the exit status reports the outcome.
package action

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cardgen/pkg/options"
)

const (
	// InputPrefix prefixes every input variable.
	InputPrefix = "INPUT_"
	// RepositoryVar names the acting owner/repository.
	RepositoryVar = "GITHUB_REPOSITORY"
)

//go:embed action.yml
var manifestYAML []byte

// Input describes one declared input.
type Input struct {
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
}

// Manifest is the parsed action.yml.
type Manifest struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Inputs      map[string]Input `yaml:"inputs"`
}

var loadManifest = sync.OnceValues(func() (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return Manifest{}, fmt.Errorf("action: parse action.yml: %w", err)
	}
	return m, nil
})

// LoadManifest returns the embedded action manifest.
func LoadManifest() (Manifest, error) {
	return loadManifest()
}

// Defaults maps every declared input to its default value.
func Defaults() map[string]string {
	m, err := loadManifest()
	if err != nil {
		panic(err)
	}
	out := make(map[string]string, len(m.Inputs))
	for key, input := range m.Inputs {
		out[key] = input.Default
	}
	return out
}

// Environ builds the process environment for vars layered over the
// declared defaults, plus the repository identity variable. Entries are
// sorted.
func Environ(vars options.Raw, repository string) []string {
	merged := make(map[string]string)
	for key, value := range Defaults() {
		merged[key] = value
	}
	for key, value := range options.Strings(vars) {
		merged[key] = value
	}

	env := make([]string, 0, len(merged)+1)
	for key, value := range merged {
		env = append(env, InputPrefix+strings.ToUpper(key)+"="+value)
	}
	if repository != "" {
		env = append(env, RepositoryVar+"="+repository)
	}
	sort.Strings(env)
	return env
}

// Inputs reads INPUT_* variables back into raw inputs with lower-cased keys.
func Inputs(environ []string) options.Raw {
	raw := options.Raw{}
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, InputPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, InputPrefix))
		if name == "" {
			continue
		}
		raw[name] = value
	}
	return raw
}

// Repository returns the value of GITHUB_REPOSITORY in environ.
func Repository(environ []string) string {
	for _, entry := range environ {
		if value, ok := strings.CutPrefix(entry, RepositoryVar+"="); ok {
			return value
		}
	}
	return ""
}

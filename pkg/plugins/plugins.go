// Package plugins holds the built-in data plugins. Each plugin reads from a
// source.Source and returns a JSON friendly struct that templates address by
// plugin id.
package plugins

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cardgen/pkg/render"
	"github.com/goliatone/go-cardgen/pkg/source"
)

// Option configures the built-in plugins.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock fixes the reference time used by time-windowed plugins.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// All returns every built-in plugin bound to src.
func All(src source.Source, opts ...Option) []render.Plugin {
	s := newSettings(opts)
	return []render.Plugin{
		&Base{src: src},
		&Followup{src: src},
		&Isocalendar{src: src, now: s.now},
		&Languages{src: src},
		&Lines{src: src},
		&Stars{src: src},
	}
}

// repositoryTarget resolves the repository a repository-context render is
// about. query.repo may be "name" (owned by the user) or "owner/name".
func repositoryTarget(in render.Input) (owner, name string, ok bool) {
	raw, _ := in.Query["repo"].(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	if owner, name, found := strings.Cut(raw, "/"); found {
		return owner, name, owner != "" && name != ""
	}
	return in.User, raw, true
}

func requireUser(plugin string, in render.Input) error {
	if strings.TrimSpace(in.User) == "" {
		return fmt.Errorf("plugins: %s: user is required", plugin)
	}
	return nil
}

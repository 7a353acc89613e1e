package cardgen

import (
	"io/fs"

	"github.com/goliatone/go-cardgen/pkg/manifest"
	"github.com/goliatone/go-cardgen/pkg/templates"
)

// EmbeddedTemplates exposes the built-in template sources so callers can
// reuse or extend them without importing the templates package directly.
func EmbeddedTemplates() fs.FS {
	return templates.FS()
}

// ManifestsFS exposes the bundled plugin and template manifests, laid out as
// plugins/<id>/metadata.yml and templates/<id>/metadata.yml.
//
// Typical use is building a registry that adds local manifests:
//
//	reg, err := capability.LoadFS(cardgen.ManifestsFS())
func ManifestsFS() fs.FS {
	return manifest.FS()
}

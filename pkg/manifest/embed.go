// Package manifest bundles the self-describing metadata of the built-in
// plugins and templates. The capability registry loads it once at startup.
package manifest

import (
	"embed"
	"io/fs"
)

//go:embed plugins/*/metadata.yml templates/*/metadata.yml
var embedded embed.FS

// FS exposes the bundled manifests rooted at the plugins/ and templates/
// directories.
func FS() fs.FS {
	return embedded
}

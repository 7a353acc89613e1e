// Package capability loads plugin and template metadata and answers the two
// questions the rest of the engine asks about it: does a plugin support a
// mode, and does a template accept a plugin.
//
// Metadata is read once per process from the bundled manifests. A registry
// can also be built from any fs.FS laid out as
//
//	plugins/<id>/metadata.yml
//	templates/<id>/metadata.yml
//
// which is how tests and extension bundles provide their own records.
package capability

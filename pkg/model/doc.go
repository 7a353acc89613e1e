// Package model holds the types shared by every layer of cardgen: the
// normalized render request, plugin and template metadata, catalog test
// cases, execution modes, per-surface outcomes and the typed error taxonomy.
//
// Errors carry a Kind so callers can branch on the failure class without
// matching strings:
//
//	if errors.Is(err, model.ErrUnknownPlugin) { ... }
//	switch model.KindOf(err) { ... }
package model

// Package options converts environment-shaped input (flat key/value pairs
// using the plugin_, config. and base. prefix conventions) into the
// canonical model.Request, and back.
//
// Key grammar:
//
//	plugin_<name>          plugin activation, name is [a-z]+
//	plugin_<a>_<b>_<c>     plugin option path a.b.c
//	config.<path>          template configuration
//	base.<path>            base plugin options
//
// A fixed set of canonical scalar keys (template, user, avatar, version,
// plugins_errors_fatal, retries, query, base) map onto request fields.
// Anything else is kept verbatim in Request.Residual.
package options

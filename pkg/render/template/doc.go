// Package template defines the contract card templates render through. The
// gotemplate subpackage implements it with pongo2 and registers the counter
// filters cards share (humanize, percent).
package template

// Package catalog loads the declarative test-case fixtures shared by every
// surface. Each fixture file is named after the plugin or template it
// exercises (<name>.plugin.yml or <name>.template.yml) and holds an ordered
// sequence of cases:
//
//	- name: Languages (default)
//	  with:
//	    plugin_languages: yes
//	  modes: [action, web]
//	  timeout: 30s
//
// Cases are immutable once loaded. Every case is tagged with the plugin or
// template its file belongs to.
package catalog

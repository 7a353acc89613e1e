// Package openapi describes the card service as an OpenAPI 3 document built
// from the capability registry, and reads such documents back so clients can
// check the routes a running service exposes.
package openapi

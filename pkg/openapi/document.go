package openapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	// Version is the OpenAPI revision of generated documents.
	Version = "3.0.3"

	// RenderOperation is the operation id of the card route.
	RenderOperation = "renderCard"
	// LivenessOperation is the operation id of the root probe.
	LivenessOperation = "liveness"
	// TemplateSourceOperation is the operation id of the template source route.
	TemplateSourceOperation = "templateSource"
)

// Capabilities lists the ids the service accepts.
type Capabilities interface {
	Plugins() []string
	Templates() []string
}

type describeOptions struct {
	title   string
	version string
	servers []string
}

// Option customises Describe.
type Option func(*describeOptions)

// WithTitle sets info.title.
func WithTitle(title string) Option {
	return func(o *describeOptions) {
		if title != "" {
			o.title = title
		}
	}
}

// WithVersion sets info.version.
func WithVersion(version string) Option {
	return func(o *describeOptions) {
		if version != "" {
			o.version = version
		}
	}
}

// WithServer appends a server URL.
func WithServer(url string) Option {
	return func(o *describeOptions) {
		if url != "" {
			o.servers = append(o.servers, url)
		}
	}
}

// Describe builds and validates the service document. Every plugin gets a
// plugin_<id> activation parameter and the template parameter is an enum of
// the registered templates.
func Describe(ctx context.Context, caps Capabilities, opts ...Option) (*openapi3.T, error) {
	if caps == nil {
		return nil, fmt.Errorf("openapi: capabilities are required")
	}
	cfg := describeOptions{title: "cardgen", version: "dev"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       cfg.title,
			Version:     cfg.version,
			Description: "Renders activity cards. Plugin option paths are passed as plugin_<id>_<path> query parameters.",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/", &openapi3.PathItem{Get: livenessOperation()}),
			openapi3.WithPath("/.templates/{name}", &openapi3.PathItem{Get: templateSourceOperation(caps)}),
			openapi3.WithPath("/{user}", &openapi3.PathItem{Get: renderOperation(caps)}),
		),
	}
	for _, url := range cfg.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

func livenessOperation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = LivenessOperation
	op.Summary = "Liveness probe"
	op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("service is up"))
	return op
}

func templateSourceOperation(caps Capabilities) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = TemplateSourceOperation
	op.Summary = "Template source"
	op.AddParameter(openapi3.NewPathParameter("name").WithSchema(enumSchema(caps.Templates())))
	op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("template source text"))
	op.AddResponse(http.StatusNotFound, openapi3.NewResponse().WithDescription("unknown template"))
	return op
}

func renderOperation(caps Capabilities) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = RenderOperation
	op.Summary = "Render a card"
	op.AddParameter(openapi3.NewPathParameter("user").WithSchema(openapi3.NewStringSchema().WithMinLength(1)))
	op.AddParameter(openapi3.NewQueryParameter("template").WithSchema(enumSchema(caps.Templates())))
	op.AddParameter(openapi3.NewQueryParameter("avatar").WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("version").WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("base").
		WithDescription("comma separated base sections, empty or 0 disables them").
		WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("query").
		WithDescription("JSON object with request context such as repo").
		WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("plugins_errors_fatal").WithSchema(openapi3.NewBoolSchema()))
	op.AddParameter(openapi3.NewQueryParameter("retries").WithSchema(openapi3.NewIntegerSchema().WithMin(0)))
	for _, plugin := range caps.Plugins() {
		op.AddParameter(openapi3.NewQueryParameter("plugin_" + plugin).
			WithDescription("enables the " + plugin + " plugin").
			WithSchema(openapi3.NewBoolSchema()))
	}

	op.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("rendered card").
		WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"image/svg+xml"})))
	op.AddResponse(http.StatusBadRequest, openapi3.NewResponse().WithDescription("malformed option key"))
	op.AddResponse(http.StatusUnprocessableEntity, openapi3.NewResponse().WithDescription("unknown or incompatible plugin or template"))
	op.AddResponse(http.StatusInternalServerError, openapi3.NewResponse().WithDescription("plugin or template failure"))
	return op
}

func enumSchema(values []string) *openapi3.Schema {
	schema := openapi3.NewStringSchema()
	if len(values) == 0 {
		return schema
	}
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return schema.WithEnum(enum...)
}

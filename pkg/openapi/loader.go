package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation summarises one operation of a loaded document.
type Operation struct {
	ID         string
	Method     string
	Path       string
	Parameters []string
}

// Load parses and validates a served document. External references are
// refused.
func Load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// Operations indexes the GET operations of doc by operation id. Operations
// without an id are keyed "get:<path>".
func Operations(doc *openapi3.T) map[string]Operation {
	out := make(map[string]Operation)
	if doc == nil || doc.Paths == nil {
		return out
	}
	for path, item := range doc.Paths.Map() {
		if item == nil || item.Get == nil {
			continue
		}
		op := Operation{ID: item.Get.OperationID, Method: "GET", Path: path}
		if op.ID == "" {
			op.ID = strings.ToLower(op.Method) + ":" + path
		}
		for _, ref := range item.Get.Parameters {
			if ref != nil && ref.Value != nil {
				op.Parameters = append(op.Parameters, ref.Value.Name)
			}
		}
		sort.Strings(op.Parameters)
		out[op.ID] = op
	}
	return out
}

// Accepts reports whether op declares every name in params.
func (op Operation) Accepts(params ...string) bool {
	for _, name := range params {
		idx := sort.SearchStrings(op.Parameters, name)
		if idx >= len(op.Parameters) || op.Parameters[idx] != name {
			return false
		}
	}
	return true
}

package tool

import (
	"context"
	"strings"

	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/mcp"
)

// DefaultExternalPrefix marks externally discovered tools so the executor can
// route them back through the MCP bridge.
const DefaultExternalPrefix = "mcp_"

const externalDescriptionSuffix = " (external tool via MCP)"

// CatalogSource lists the externally discovered tools. Implementations must
// not block on discovery.
type CatalogSource interface {
	Tools(ctx context.Context) []mcp.Tool
}

// Registry assembles the tool set offered to the model for one completion.
type Registry struct {
	// ModelMarker gates tool calling: only models whose name contains it
	// are offered tools at all.
	ModelMarker string

	// Catalog supplies external tools. Nil means built-ins only.
	Catalog CatalogSource

	// ExternalPrefix is prepended to external tool names. Defaults to
	// DefaultExternalPrefix when empty.
	ExternalPrefix string
}

// Available returns the tool definitions for a completion, or nil when the
// model does not support tool calling or the caller disabled tools. Built-ins
// come first, followed by the prefixed external catalog.
func (r *Registry) Available(ctx context.Context, model string, enabled bool) []llm.ToolDef {
	if !enabled || !strings.Contains(model, r.ModelMarker) {
		return nil
	}

	defs := Builtins()
	if r.Catalog == nil {
		return defs
	}

	prefix := r.ExternalPrefix
	if prefix == "" {
		prefix = DefaultExternalPrefix
	}
	for _, t := range r.Catalog.Tools(ctx) {
		defs = append(defs, llm.ToolDef{
			Name:        prefix + t.Name,
			Description: t.Description + externalDescriptionSuffix,
			Parameters:  t.InputSchema,
		})
	}
	return defs
}

package mcp

import (
	"fmt"
	"strings"
)

// Content part types. The set is closed; FlattenText matches exhaustively.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentResource = "resource"
)

// Tool is a capability exposed by the external MCP provider.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolCall is one invocation request forwarded to the provider.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ContentPart is one element of a tool result. Type selects which of the
// remaining fields are meaningful.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ToolResult is the normalized outcome of a tool execution. IsError results
// still carry human-readable content; they are fed back to the model as
// conversation text, never surfaced as protocol errors.
type ToolResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// TextResult wraps a plain string as a single-part result.
func TextResult(text string, isError bool) ToolResult {
	return ToolResult{
		Content: []ContentPart{{Type: ContentText, Text: text}},
		IsError: isError,
	}
}

// Text flattens all content parts into one blob. Non-text parts become a
// bracketed placeholder naming their media type so the model knows something
// was there.
func (r ToolResult) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, part := range r.Content {
		switch part.Type {
		case ContentText:
			parts = append(parts, part.Text)
		case ContentImage:
			parts = append(parts, fmt.Sprintf("[image content: %s]", orUnknown(part.MimeType)))
		case ContentResource:
			parts = append(parts, fmt.Sprintf("[resource content: %s]", orUnknown(part.MimeType)))
		default:
			parts = append(parts, fmt.Sprintf("[unsupported content type: %s]", part.Type))
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func orUnknown(mime string) string {
	if mime == "" {
		return "unknown"
	}
	return mime
}

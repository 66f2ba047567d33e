package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolResultText_FlattensParts(t *testing.T) {
	result := ToolResult{
		Content: []ContentPart{
			{Type: ContentText, Text: "first part"},
			{Type: ContentImage, MimeType: "image/png"},
			{Type: ContentResource, MimeType: "application/pdf"},
			{Type: ContentText, Text: "last part"},
		},
	}

	text := result.Text()
	assert.Equal(t, "first part\n[image content: image/png]\n[resource content: application/pdf]\nlast part", text)
}

func TestToolResultText_UnknownMime(t *testing.T) {
	result := ToolResult{Content: []ContentPart{{Type: ContentImage}}}
	assert.Equal(t, "[image content: unknown]", result.Text())
}

func TestToolResultText_UnrecognizedType(t *testing.T) {
	result := ToolResult{Content: []ContentPart{{Type: "audio"}}}
	assert.Equal(t, "[unsupported content type: audio]", result.Text())
}

func TestTextResult(t *testing.T) {
	result := TextResult("boom", true)
	assert.True(t, result.IsError)
	assert.Equal(t, "boom", result.Text())
}

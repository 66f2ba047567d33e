package tool

import "github.com/mickekring/berget-gpt/internal/llm"

// Built-in tool names.
const (
	SearchInternet  = "search_internet"
	SearchDocuments = "search_documents"
)

// Builtins returns the tool definitions shipped with the server. The slice
// is rebuilt on every call so callers may append to it freely.
func Builtins() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Name:        SearchInternet,
			Description: "Search the internet for current information, news, or any topic that requires up-to-date data",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query to look up on the internet",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        SearchDocuments,
			Description: "Search through uploaded documents to find relevant information and answer questions based on the document content",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The question or search query to look up in the uploaded documents",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

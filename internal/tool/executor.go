package tool

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mickekring/berget-gpt/internal/document"
	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/mcp"
	"github.com/mickekring/berget-gpt/internal/search"
)

// Messages handed back to the model when a tool cannot do its job. The model
// sees these as the tool result and phrases its answer around them.
const (
	msgSearchFailed   = "Search failed. Please try again."
	msgNoDocuments    = "No documents have been uploaded yet. Please upload some documents first to search through them."
	msgDocumentFailed = "Failed to search through documents. Please try again."
	msgNoRelevant     = "No relevant information found in the uploaded documents for this query."
	msgUnknown        = "Unknown function"
)

// Bridge forwards a call to an external tool provider.
type Bridge interface {
	Call(ctx context.Context, call mcp.ToolCall) mcp.ToolResult
}

// Executor dispatches tool calls to their implementations. Execute never
// fails: every error path collapses into a message the model can relay.
type Executor struct {
	Searcher search.Searcher
	Embedder llm.Embedder
	Bridge   Bridge

	// ExternalPrefix identifies bridged tools. Defaults to
	// DefaultExternalPrefix when empty.
	ExternalPrefix string

	// TopK bounds the document chunks returned per search. Zero means
	// document.DefaultTopK.
	TopK int
}

// Execute runs one tool call and returns its textual result. Arguments are
// the already-decoded call arguments; chunks are the session's uploaded
// document chunks.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}, chunks []document.Chunk) string {
	prefix := e.ExternalPrefix
	if prefix == "" {
		prefix = DefaultExternalPrefix
	}
	if strings.HasPrefix(name, prefix) {
		return e.executeExternal(ctx, strings.TrimPrefix(name, prefix), args)
	}

	switch name {
	case SearchInternet:
		return e.searchInternet(ctx, stringArg(args, "query"))
	case SearchDocuments:
		return e.searchDocuments(ctx, stringArg(args, "query"), chunks)
	default:
		return msgUnknown
	}
}

func (e *Executor) executeExternal(ctx context.Context, name string, args map[string]interface{}) string {
	if e.Bridge == nil {
		return msgUnknown
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	result := e.Bridge.Call(ctx, mcp.ToolCall{Name: name, Arguments: args})
	if result.IsError {
		slog.Warn("external tool call failed", "tool", name, "result", result.Text())
	}
	return result.Text()
}

func (e *Executor) searchInternet(ctx context.Context, query string) string {
	if e.Searcher == nil {
		return msgSearchFailed
	}
	resp, err := e.Searcher.Search(ctx, query)
	if err != nil {
		slog.Error("web search failed", "error", err)
		return msgSearchFailed
	}
	return search.Format(resp)
}

func (e *Executor) searchDocuments(ctx context.Context, query string, chunks []document.Chunk) string {
	if len(chunks) == 0 {
		return msgNoDocuments
	}
	if e.Embedder == nil {
		return msgDocumentFailed
	}

	vectors, err := e.Embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		slog.Error("query embedding failed", "error", err)
		return msgDocumentFailed
	}

	topK := e.TopK
	if topK <= 0 {
		topK = document.DefaultTopK
	}
	ranked, err := document.Rank(vectors[0], chunks, topK)
	if err != nil {
		slog.Error("document ranking failed", "error", err)
		return msgDocumentFailed
	}
	if len(ranked) == 0 {
		return msgNoRelevant
	}
	return document.Context(ranked)
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

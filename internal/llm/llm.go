package llm

import (
	"context"
)

// Message is one entry of a turn's transcript. Tool messages carry the id of
// the call they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a single tool invocation requested by the model. Arguments is
// the raw JSON string as emitted by the gateway.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef describes a callable capability attached to a completion request.
type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionRequest struct {
	Model    string
	Messages []Message
	Tools    []ToolDef
}

type CompletionResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Stream yields content deltas of an in-flight completion. Recv returns
// io.EOF once the upstream stream ends.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Completer is the LLM gateway as seen by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error)
}

// Embedder turns texts into fixed-length vectors, one per input, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

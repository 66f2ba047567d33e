package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/mickekring/berget-gpt/internal/document"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"
	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/tool"
)

// Request is one chat turn: the running conversation plus the session's
// uploaded document chunks.
type Request struct {
	Model        string
	Messages     []llm.Message
	Chunks       []document.Chunk
	ToolsEnabled bool
}

// Orchestrator drives a chat turn: decide whether a tool is needed, run it,
// and stream the answer. Tooling failures never surface to the caller; the
// turn degrades to a plain streamed answer instead.
type Orchestrator struct {
	Completer llm.Completer
	Registry  *tool.Registry
	Executor  *tool.Executor
}

// Run executes one turn and writes the answer to the emitter. An error is
// returned only when nothing has been emitted yet, so the caller can still
// send a proper HTTP error.
func (o *Orchestrator) Run(ctx context.Context, req Request, em *Emitter) error {
	log := slog.With("turn", ulid.Make().String(), "model", req.Model)

	var tools []llm.ToolDef
	if o.Registry != nil {
		tools = o.Registry.Available(ctx, req.Model, req.ToolsEnabled)
	}
	if len(tools) > 0 {
		handled, err := o.toolTurn(ctx, log, req, tools, em)
		if handled {
			return err
		}
	}
	return o.directTurn(ctx, log, req, em)
}

// toolTurn asks the model whether a tool is needed and, if so, executes it
// and streams the follow-up answer. handled reports whether the turn was
// emitted; false means the caller should fall back to a direct stream.
func (o *Orchestrator) toolTurn(ctx context.Context, log *slog.Logger, req Request, tools []llm.ToolDef, em *Emitter) (handled bool, err error) {
	resp, err := o.Completer.Complete(ctx, llm.CompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Tools:    tools,
	})
	if err != nil {
		log.Warn("tool decision failed, answering directly", "error", err)
		return false, nil
	}
	if len(resp.ToolCalls) == 0 {
		return false, nil
	}

	// The model may request several calls; only the first is honored.
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		log.Debug("multiple tool calls requested, executing first only",
			"requested", len(resp.ToolCalls), "tool", call.Name)
	}

	args := map[string]interface{}{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			log.Warn("tool arguments not decodable, answering directly",
				"tool", call.Name, "error", err)
			return false, nil
		}
	}

	log.Info("executing tool", "tool", call.Name, "chunks", len(req.Chunks))
	result := o.Executor.Execute(ctx, call.Name, args, req.Chunks)

	followup := make([]llm.Message, 0, len(req.Messages)+2)
	followup = append(followup, req.Messages...)
	followup = append(followup,
		llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls},
		llm.Message{Role: "tool", ToolCallID: call.ID, Content: result},
	)

	stream, err := o.Completer.StreamCompletion(ctx, llm.CompletionRequest{
		Model:    req.Model,
		Messages: followup,
	})
	if err != nil {
		log.Warn("tool follow-up stream failed, answering directly", "error", err)
		return false, nil
	}
	defer stream.Close()

	if err := em.FunctionCall(call.Name, args); err != nil {
		log.Debug("client disconnected before answer", "error", err)
		return true, nil
	}
	return true, pump(stream, em, log)
}

func (o *Orchestrator) directTurn(ctx context.Context, log *slog.Logger, req Request, em *Emitter) error {
	stream, err := o.Completer.StreamCompletion(ctx, llm.CompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
	})
	if err != nil {
		return fmt.Errorf("%w: starting completion stream: %v", apperrors.ErrUpstream, err)
	}
	defer stream.Close()

	return pump(stream, em, log)
}

// pump copies stream deltas to the emitter until the stream ends. A broken
// consumer ends the turn quietly; an interrupted upstream stream still gets
// a terminator so the client stops waiting.
func pump(stream llm.Stream, em *Emitter, log *slog.Logger) error {
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("completion stream interrupted", "error", err)
			break
		}
		if err := em.Content(delta); err != nil {
			log.Debug("client disconnected mid-stream", "error", err)
			return nil
		}
	}
	// A consumer gone just before the terminator is the same disconnect.
	if err := em.Done(); err != nil {
		log.Debug("client disconnected before terminator", "error", err)
	}
	return nil
}

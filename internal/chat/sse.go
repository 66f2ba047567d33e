package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// frame is the JSON payload of one SSE data line.
type frame struct {
	Content      string        `json:"content"`
	FunctionCall *functionCall `json:"function_call,omitempty"`
}

type functionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Emitter writes server-sent event frames. Writes flush immediately when the
// underlying writer supports it, so deltas reach the browser as they arrive.
type Emitter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Content emits one text delta. Empty deltas are dropped.
func (e *Emitter) Content(text string) error {
	if text == "" {
		return nil
	}
	return e.send(frame{Content: text})
}

// FunctionCall announces the tool invoked for this turn. It precedes the
// answer deltas so the client can render the tool activity up front.
func (e *Emitter) FunctionCall(name string, args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	return e.send(frame{Content: "", FunctionCall: &functionCall{Name: name, Arguments: args}})
}

// Done terminates the stream.
func (e *Emitter) Done() error {
	if _, err := io.WriteString(e.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Emitter) send(f frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Emitter) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

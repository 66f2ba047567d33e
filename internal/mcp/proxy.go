package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultCallTimeout bounds one bridge subprocess end to end.
const DefaultCallTimeout = 45 * time.Second

// callState tracks a bridge call through its lifecycle:
// Spawned -> AwaitingResponse -> Resolved | TimedOut | Crashed.
type callState int

const (
	stateSpawned callState = iota
	stateAwaitingResponse
	stateResolved
	stateTimedOut
	stateCrashed
)

func (s callState) String() string {
	switch s {
	case stateSpawned:
		return "spawned"
	case stateAwaitingResponse:
		return "awaiting_response"
	case stateResolved:
		return "resolved"
	case stateTimedOut:
		return "timed_out"
	case stateCrashed:
		return "crashed"
	}
	return "unknown"
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Proxy executes external tool calls by spawning a bridge program (mcp-remote
// or compatible), speaking JSON-RPC over its stdio. One subprocess per call;
// instances are safe for concurrent use.
type Proxy struct {
	Command   string
	Args      []string
	ServerURL string
	AuthToken string
	Timeout   time.Duration
}

func NewProxy(command string, args []string, serverURL, authToken string, timeout time.Duration) *Proxy {
	if command == "" {
		command = "npx"
	}
	if len(args) == 0 {
		args = []string{"mcp-remote"}
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Proxy{
		Command:   command,
		Args:      args,
		ServerURL: serverURL,
		AuthToken: authToken,
		Timeout:   timeout,
	}
}

// Call runs one tool invocation through the bridge. It never returns an
// error: every failure mode is folded into an IsError result so the outcome
// can be spliced back into the conversation.
func (p *Proxy) Call(ctx context.Context, call ToolCall) ToolResult {
	args := make([]string, 0, len(p.Args)+3)
	args = append(args, p.Args...)
	args = append(args, p.ServerURL)
	if p.AuthToken != "" {
		args = append(args, "--header", "Authorization: Bearer "+p.AuthToken)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.Command(p.Command, args...)

	request, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      call.Name,
			"arguments": call.Arguments,
		},
		"id": time.Now().UnixMilli(),
	})
	if err != nil {
		return TextResult(fmt.Sprintf("MCP Process Error: %v", err), true)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return TextResult(fmt.Sprintf("MCP Process Error: %v", err), true)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return TextResult(fmt.Sprintf("MCP Process Error: %v", err), true)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return TextResult(fmt.Sprintf("MCP Process Error: %v", err), true)
	}
	state := stateSpawned
	defer func() {
		slog.Debug("MCP bridge call finished", "tool", call.Name, "state", state.String())
	}()

	go func() {
		defer stdin.Close()
		stdin.Write(append(request, '\n'))
	}()

	// Scan stdout line-wise for the first well-formed JSON-RPC response
	// carrying a result. Everything else on the stream (banners, progress
	// noise from the bridge) is kept only for diagnostics.
	resolved := make(chan ToolResult, 1)
	scanDone := make(chan struct{})
	var captured bytes.Buffer
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			captured.WriteString(line)
			captured.WriteByte('\n')

			if !strings.Contains(line, `"jsonrpc":"2.0"`) && !strings.Contains(line, `"jsonrpc": "2.0"`) {
				continue
			}
			var resp rpcResponse
			if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &resp); err != nil {
				continue
			}
			if len(resp.Result) == 0 || string(resp.Result) == "null" {
				continue
			}
			resolved <- resultFromRPC(resp.Result)
			return
		}
	}()
	state = stateAwaitingResponse

	// Wait must not run until reads from the stdout pipe have finished, so
	// the reaper is sequenced behind the scanner. Killing the process closes
	// the pipe's write end, which unblocks the scanner promptly.
	done := make(chan error, 1)
	go func() {
		<-scanDone
		done <- cmd.Wait()
	}()

	kill := func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		// Reap the subprocess so it does not linger as a zombie.
		<-done
	}

	select {
	case result := <-resolved:
		// First valid response wins: kill immediately instead of waiting
		// for the bridge to exit on its own, which bounds tail latency.
		state = stateResolved
		kill()
		return result

	case <-ctx.Done():
		state = stateTimedOut
		kill()
		slog.Warn("MCP bridge call timed out", "tool", call.Name, "timeout", p.Timeout)
		return TextResult("MCP execution timed out - no response received from MCP server", true)

	case err := <-done:
		// The scanner has finished by the time Wait returns, so captured is
		// settled; a response found on the final lines still wins.
		select {
		case result := <-resolved:
			state = stateResolved
			return result
		default:
		}

		state = stateCrashed

		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if err != nil {
			return TextResult(fmt.Sprintf("MCP Process Error: %v", err), true)
		}

		output := strings.TrimSpace(captured.String())
		if output == "" {
			output = strings.TrimSpace(stderr.String())
		}
		if output == "" {
			output = "No output"
		}
		return TextResult(
			fmt.Sprintf("MCP execution completed with code %d. Output: %s", exitCode, output),
			exitCode != 0,
		)
	}
}

// resultFromRPC normalizes a JSON-RPC result payload: MCP-shaped results
// contribute their content parts, anything else is stringified into a single
// text part.
func resultFromRPC(raw json.RawMessage) ToolResult {
	var structured struct {
		Content []ContentPart `json:"content"`
		IsError bool          `json:"isError"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && len(structured.Content) > 0 {
		return ToolResult{Content: structured.Content, IsError: structured.IsError}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return TextResult(text, false)
}

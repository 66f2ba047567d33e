package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mickekring/berget-gpt/internal/config"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"

	"github.com/sashabaranov/go-openai"
)

const titleSystemPrompt = "Generate a very short, descriptive title (3-6 words) for this conversation. " +
	"The title should capture the main topic or question. Respond with ONLY the title, no quotes, no punctuation at the end."

// Client talks to the hosted LLM gateway and the embedding service, both
// OpenAI-compatible APIs that may live at different base URLs.
type Client struct {
	chat  *openai.Client
	embed *openai.Client

	temperature     float32
	maxTokens       int
	requestTimeout  time.Duration
	embeddingModel  string
	titleModel      string
	transcribeModel string
}

func New(gw config.GatewayConfig, emb config.EmbeddingsConfig) *Client {
	chatCfg := openai.DefaultConfig(gw.APIKey)
	if gw.BaseURL != "" {
		chatCfg.BaseURL = strings.TrimSuffix(gw.BaseURL, "/")
	}

	embCfg := openai.DefaultConfig(emb.APIKey)
	if emb.BaseURL != "" {
		embCfg.BaseURL = strings.TrimSuffix(emb.BaseURL, "/")
	}

	return &Client{
		chat:            openai.NewClientWithConfig(chatCfg),
		embed:           openai.NewClientWithConfig(embCfg),
		temperature:     gw.Temperature,
		maxTokens:       gw.MaxTokens,
		requestTimeout:  config.MustDuration(gw.RequestTimeout, config.DefaultGatewayTimeout),
		embeddingModel:  emb.Model,
		titleModel:      gw.TitleModel,
		transcribeModel: gw.TranscribeModel,
	}
}

// bound caps a non-streaming gateway call at the configured request timeout.
// Streaming calls run on the caller's context alone since a long answer can
// legitimately outlive any fixed bound.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func toChatMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toChatTools(defs []ToolDef) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// Complete issues a non-streaming completion. When tools are attached the
// gateway decides on its own whether to call one (tool_choice auto).
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toChatMessages(req.Messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if tools := toChatTools(req.Tools); tools != nil {
		chatReq.Tools = tools
		chatReq.ToolChoice = "auto"
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", apperrors.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", apperrors.ErrShapeMismatch)
	}

	choice := resp.Choices[0]
	result := &CompletionResponse{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

// StreamCompletion opens a streamed completion and hands back its delta
// stream. The caller owns the stream and must Close it.
func (c *Client) StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toChatMessages(req.Messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}

	stream, err := c.chat.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion stream: %v", apperrors.ErrUpstream, err)
	}
	return &chatStream{inner: stream}, nil
}

type chatStream struct {
	inner *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.Delta.Content == "" && choice.FinishReason != "" {
			return "", io.EOF
		}
		return choice.Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.inner.Close()
}

// Embed creates one vector per input text, in input order. It fails as a
// unit: a transport error or a response that does not line up one-to-one
// with the inputs yields no vectors at all.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", apperrors.ErrInvalidInput)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.embed.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %v", apperrors.ErrUpstream, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", apperrors.ErrShapeMismatch, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", apperrors.ErrShapeMismatch, item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", apperrors.ErrShapeMismatch, i)
		}
	}
	return out, nil
}

// Transcribe sends an audio blob to the gateway's speech-to-text endpoint.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.chat.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", apperrors.ErrUpstream, err)
	}
	return resp.Text, nil
}

// Title asks the gateway for a short conversation title based on the first
// few messages. Falls back to "New Chat" when the model returns nothing.
func (c *Client) Title(ctx context.Context, messages []Message) (string, error) {
	summary := make([]string, 0, 4)
	for i, m := range messages {
		if i >= 4 {
			break
		}
		content := m.Content
		if len(content) > 200 {
			content = content[:200]
		}
		summary = append(summary, m.Role+": "+content)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.titleModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(summary, "\n")},
		},
		Temperature: 0.7,
		MaxTokens:   20,
	})
	if err != nil {
		return "", fmt.Errorf("%w: title generation: %v", apperrors.ErrUpstream, err)
	}

	title := ""
	if len(resp.Choices) > 0 {
		title = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if title == "" {
		title = "New Chat"
	}
	return title, nil
}

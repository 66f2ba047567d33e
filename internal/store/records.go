package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

// isoTimestamp matches the ISO-8601 shape the store's existing rows use.
const isoTimestamp = "2006-01-02T15:04:05.000Z"

func now() string {
	return time.Now().UTC().Format(isoTimestamp)
}

// Flag tolerates the store's habit of returning booleans as 0/1.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

type User struct {
	ID           int    `json:"Id,omitempty"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	SystemPrompt string `json:"system_prompt"`
	Theme        string `json:"theme"`
	Language     string `json:"language"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type Conversation struct {
	ID           int    `json:"Id,omitempty"`
	UserID       int    `json:"user_id"`
	Title        string `json:"title"`
	ModelUsed    string `json:"model_used"`
	PromptUsed   string `json:"prompt_used"`
	MessageCount int    `json:"message_count"`
	IsArchived   Flag   `json:"is_archived"`
	CreatedAt    string `json:"CreatedAt,omitempty"`
	UpdatedAt    string `json:"UpdatedAt,omitempty"`
}

type Message struct {
	ID             int    `json:"Id,omitempty"`
	ConversationID int    `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	ModelUsed      string `json:"model_used"`
	PromptUsed     string `json:"prompt_used"`
	Metadata       string `json:"metadata"`
	Timestamp      string `json:"timestamp"`
}

type Prompt struct {
	ID        int    `json:"Id,omitempty"`
	UserID    int    `json:"user_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	IsDefault Flag   `json:"is_default"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// UserByUsername looks a user up by exact username.
func (c *Client) UserByUsername(ctx context.Context, username string) (*User, error) {
	query := url.Values{}
	query.Set("where", fmt.Sprintf("(username,eq,%s)", username))

	var users []User
	if err := c.list(ctx, usersTable, query, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %q", apperrors.ErrNotFound, username)
	}
	return &users[0], nil
}

// CreateUser inserts a user row. PasswordHash must already be hashed.
func (c *Client) CreateUser(ctx context.Context, user User) (*User, error) {
	if user.Theme == "" {
		user.Theme = "light"
	}
	if user.Language == "" {
		user.Language = "sv"
	}
	user.CreatedAt = now()
	user.UpdatedAt = now()

	var created User
	if err := c.create(ctx, usersTable, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser patches selected user columns. The password hash is never
// touched through this path.
func (c *Client) UpdateUser(ctx context.Context, id int, updates map[string]interface{}) (*User, error) {
	patch := make(map[string]interface{}, len(updates)+1)
	for key, value := range updates {
		if key == "password_hash" {
			continue
		}
		patch[key] = value
	}
	patch["updated_at"] = now()

	var updated User
	if err := c.update(ctx, usersTable, strconv.Itoa(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Conversations returns the user's most recent conversations, newest first.
func (c *Client) Conversations(ctx context.Context, userID int) ([]Conversation, error) {
	query := url.Values{}
	query.Set("where", fmt.Sprintf("(user_id,eq,%d)", userID))
	query.Set("sort", "-CreatedAt")
	query.Set("limit", "50")

	var conversations []Conversation
	if err := c.list(ctx, conversationsTable, query, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *Client) CreateConversation(ctx context.Context, userID int, title, model, prompt string) (*Conversation, error) {
	row := Conversation{
		UserID:     userID,
		Title:      title,
		ModelUsed:  model,
		PromptUsed: prompt,
	}

	var created Conversation
	if err := c.create(ctx, conversationsTable, row, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateConversation(ctx context.Context, id int, updates map[string]interface{}) (*Conversation, error) {
	var updated Conversation
	if err := c.update(ctx, conversationsTable, strconv.Itoa(id), updates, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteConversation removes a conversation and all of its messages. The
// store has no cascade, so messages go first.
func (c *Client) DeleteConversation(ctx context.Context, id int) error {
	messages, err := c.Messages(ctx, id)
	if err != nil {
		return err
	}
	for _, message := range messages {
		if err := c.delete(ctx, messagesTable, strconv.Itoa(message.ID)); err != nil {
			return err
		}
	}
	return c.delete(ctx, conversationsTable, strconv.Itoa(id))
}

// Messages returns a conversation's messages in chronological order.
func (c *Client) Messages(ctx context.Context, conversationID int) ([]Message, error) {
	query := url.Values{}
	query.Set("where", fmt.Sprintf("(conversation_id,eq,%d)", conversationID))
	query.Set("sort", "timestamp")
	query.Set("limit", "1000")

	var messages []Message
	if err := c.list(ctx, messagesTable, query, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateMessage appends a message and bumps the conversation's counter.
func (c *Client) CreateMessage(ctx context.Context, message Message) (*Message, error) {
	message.Timestamp = now()

	var created Message
	if err := c.create(ctx, messagesTable, message, &created); err != nil {
		return nil, err
	}
	c.adjustMessageCount(ctx, message.ConversationID, 1)
	return &created, nil
}

func (c *Client) UpdateMessage(ctx context.Context, id int, updates map[string]interface{}) (*Message, error) {
	var updated Message
	if err := c.update(ctx, messagesTable, strconv.Itoa(id), updates, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMessage removes one message and decrements the conversation counter.
func (c *Client) DeleteMessage(ctx context.Context, id, conversationID int) error {
	if err := c.delete(ctx, messagesTable, strconv.Itoa(id)); err != nil {
		return err
	}
	c.adjustMessageCount(ctx, conversationID, -1)
	return nil
}

// adjustMessageCount keeps the denormalized counter in step. The counter is
// advisory, so a failed adjustment never fails the write that triggered it.
func (c *Client) adjustMessageCount(ctx context.Context, conversationID, delta int) {
	var conversation Conversation
	if err := c.get(ctx, conversationsTable, strconv.Itoa(conversationID), &conversation); err != nil {
		return
	}
	count := conversation.MessageCount + delta
	if count < 0 {
		count = 0
	}
	c.update(ctx, conversationsTable, strconv.Itoa(conversationID),
		map[string]interface{}{"message_count": count}, nil)
}

// Prompts returns the user's saved prompts, default first.
func (c *Client) Prompts(ctx context.Context, userID int) ([]Prompt, error) {
	query := url.Values{}
	query.Set("where", fmt.Sprintf("(user_id,eq,%d)", userID))
	query.Set("sort", "-is_default")

	var prompts []Prompt
	if err := c.list(ctx, promptsTable, query, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// DefaultPrompt returns the user's default prompt, if any.
func (c *Client) DefaultPrompt(ctx context.Context, userID int) (*Prompt, error) {
	query := url.Values{}
	query.Set("where", fmt.Sprintf("(user_id,eq,%d)~and(is_default,eq,true)", userID))

	var prompts []Prompt
	if err := c.list(ctx, promptsTable, query, &prompts); err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: no default prompt for user %d", apperrors.ErrNotFound, userID)
	}
	return &prompts[0], nil
}

func (c *Client) PromptByID(ctx context.Context, id int) (*Prompt, error) {
	var prompt Prompt
	if err := c.get(ctx, promptsTable, strconv.Itoa(id), &prompt); err != nil {
		return nil, err
	}
	return &prompt, nil
}

func (c *Client) CreatePrompt(ctx context.Context, prompt Prompt) (*Prompt, error) {
	prompt.CreatedAt = now()
	prompt.UpdatedAt = now()

	var created Prompt
	if err := c.create(ctx, promptsTable, prompt, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdatePrompt(ctx context.Context, id int, updates map[string]interface{}) (*Prompt, error) {
	patch := make(map[string]interface{}, len(updates)+1)
	for key, value := range updates {
		patch[key] = value
	}
	patch["updated_at"] = now()

	var updated Prompt
	if err := c.update(ctx, promptsTable, strconv.Itoa(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePrompt(ctx context.Context, id int) error {
	return c.delete(ctx, promptsTable, strconv.Itoa(id))
}

// ConversationTitle derives a conversation title from its first user
// message: newlines collapsed, cut at 50 characters, preferring a word
// boundary when one falls late enough.
func ConversationTitle(firstMessage string) string {
	const maxLength = 50

	clean := strings.Join(strings.Fields(strings.TrimSpace(firstMessage)), " ")
	if len(clean) <= maxLength {
		return clean
	}

	truncated := clean[:maxLength]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLength*7/10 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}

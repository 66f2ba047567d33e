package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Token:      "secret-token",
		Base:       "BergetGPT",
	}
}

func TestUserByUsername(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/db/data/v1/BergetGPT/users", r.URL.Path)
		assert.Equal(t, "(username,eq,micke)", r.URL.Query().Get("where"))
		assert.Equal(t, "secret-token", r.Header.Get("xc-token"))

		fmt.Fprint(w, `{"list":[{"Id":7,"username":"micke","language":"sv"}]}`)
	})

	user, err := client.UserByUsername(context.Background(), "micke")
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "sv", user.Language)
}

func TestUserByUsername_NotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"list":[]}`)
	})

	_, err := client.UserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateUser_NeverPatchesPasswordHash(t *testing.T) {
	var patched map[string]interface{}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/db/data/v1/BergetGPT/users/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
		fmt.Fprint(w, `{"Id":7,"theme":"dark"}`)
	})

	updated, err := client.UpdateUser(context.Background(), 7, map[string]interface{}{
		"theme":         "dark",
		"password_hash": "evil",
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Theme)
	assert.NotContains(t, patched, "password_hash")
	assert.Contains(t, patched, "updated_at")
}

func TestConversations_QueryShape(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "(user_id,eq,7)", q.Get("where"))
		assert.Equal(t, "-CreatedAt", q.Get("sort"))
		assert.Equal(t, "50", q.Get("limit"))
		fmt.Fprint(w, `{"list":[{"Id":1,"title":"Chat","is_archived":0}]}`)
	})

	conversations, err := client.Conversations(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.False(t, bool(conversations[0].IsArchived))
}

func TestCreateMessage_BumpsConversationCounter(t *testing.T) {
	var patchedCount float64 = -1
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var row map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
			assert.NotEmpty(t, row["timestamp"])
			fmt.Fprint(w, `{"Id":10,"conversation_id":3,"role":"user","content":"hi"}`)
		case r.Method == http.MethodGet:
			fmt.Fprint(w, `{"Id":3,"message_count":4}`)
		case r.Method == http.MethodPatch:
			var patch map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			patchedCount = patch["message_count"].(float64)
			fmt.Fprint(w, `{}`)
		}
	})

	created, err := client.CreateMessage(context.Background(), Message{
		ConversationID: 3,
		Role:           "user",
		Content:        "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, created.ID)
	assert.Equal(t, float64(5), patchedCount)
}

func TestDeleteConversation_CascadesMessages(t *testing.T) {
	var deleted []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"list":[{"Id":21},{"Id":22}]}`)
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			fmt.Fprint(w, `{}`)
		}
	})

	require.NoError(t, client.DeleteConversation(context.Background(), 3))
	assert.Equal(t, []string{
		"/api/v1/db/data/v1/BergetGPT/messages/21",
		"/api/v1/db/data/v1/BergetGPT/messages/22",
		"/api/v1/db/data/v1/BergetGPT/conversations/3",
	}, deleted)
}

func TestDefaultPrompt_CombinedFilter(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "(user_id,eq,7)~and(is_default,eq,true)", r.URL.Query().Get("where"))
		fmt.Fprint(w, `{"list":[{"Id":2,"name":"Standard","is_default":1}]}`)
	})

	prompt, err := client.DefaultPrompt(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, bool(prompt.IsDefault))
}

func TestDo_UpstreamError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.Conversations(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "Short question", ConversationTitle("Short question"))
	assert.Equal(t, "Line one Line two", ConversationTitle("Line one\n\nLine two"))

	long := "This is a rather long first message that should be truncated nicely"
	title := ConversationTitle(long)
	assert.LessOrEqual(t, len(title), 53)
	assert.True(t, len(title) > 3)
	assert.Contains(t, title, "...")
}

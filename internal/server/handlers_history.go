package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mickekring/berget-gpt/internal/store"
)

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	conversations, err := s.records.Conversations(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("listing conversations failed", "userId", claims.UserID, "error", err)
		writeError(w, statusFor(err), "Failed to get conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"conversations": conversations,
	})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	var body struct {
		Title        string `json:"title"`
		FirstMessage string `json:"firstMessage"`
		ModelUsed    string `json:"modelUsed"`
		PromptUsed   string `json:"promptUsed"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if body.Title == "" {
		body.Title = store.ConversationTitle(body.FirstMessage)
	}
	if body.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	conversation, err := s.records.CreateConversation(r.Context(), claims.UserID, body.Title, body.ModelUsed, body.PromptUsed)
	if err != nil {
		slog.Error("creating conversation failed", "error", err)
		writeError(w, statusFor(err), "Failed to create conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"conversation": conversation,
	})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	messages, err := s.records.Messages(r.Context(), id)
	if err != nil {
		slog.Error("listing messages failed", "conversationId", id, "error", err)
		writeError(w, statusFor(err), "Failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	var body struct {
		Title      *string `json:"title"`
		IsArchived *bool   `json:"isArchived"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if body.Title != nil {
		updates["title"] = *body.Title
	}
	if body.IsArchived != nil {
		updates["is_archived"] = *body.IsArchived
	}

	conversation, err := s.records.UpdateConversation(r.Context(), id, updates)
	if err != nil {
		slog.Error("updating conversation failed", "conversationId", id, "error", err)
		writeError(w, statusFor(err), "Failed to update conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"conversation": conversation,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	if err := s.records.DeleteConversation(r.Context(), id); err != nil {
		slog.Error("deleting conversation failed", "conversationId", id, "error", err)
		writeError(w, statusFor(err), "Failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.Atoi(r.URL.Query().Get("conversationId"))
	if err != nil || conversationID <= 0 {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	messages, err := s.records.Messages(r.Context(), conversationID)
	if err != nil {
		slog.Error("listing messages failed", "conversationId", conversationID, "error", err)
		writeError(w, statusFor(err), "Failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConversationID int         `json:"conversationId"`
		Role           string      `json:"role"`
		Content        string      `json:"content"`
		ModelUsed      string      `json:"modelUsed"`
		PromptUsed     string      `json:"promptUsed"`
		Metadata       interface{} `json:"metadata"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ConversationID <= 0 || body.Role == "" {
		writeError(w, http.StatusBadRequest, "conversationId and role are required")
		return
	}

	metadata := ""
	if body.Metadata != nil {
		if encoded, err := json.Marshal(body.Metadata); err == nil {
			metadata = string(encoded)
		}
	}

	message, err := s.records.CreateMessage(r.Context(), store.Message{
		ConversationID: body.ConversationID,
		Role:           body.Role,
		Content:        body.Content,
		ModelUsed:      body.ModelUsed,
		PromptUsed:     body.PromptUsed,
		Metadata:       metadata,
	})
	if err != nil {
		slog.Error("creating message failed", "error", err)
		writeError(w, statusFor(err), "Failed to create message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	var body struct {
		Content  *string     `json:"content"`
		Metadata interface{} `json:"metadata"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if body.Content != nil {
		updates["content"] = *body.Content
	}
	if body.Metadata != nil {
		if encoded, err := json.Marshal(body.Metadata); err == nil {
			updates["metadata"] = string(encoded)
		}
	}

	message, err := s.records.UpdateMessage(r.Context(), id, updates)
	if err != nil {
		slog.Error("updating message failed", "messageId", id, "error", err)
		writeError(w, statusFor(err), "Failed to update message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	var body struct {
		ConversationID int `json:"conversationId"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ConversationID <= 0 {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	if err := s.records.DeleteMessage(r.Context(), id, body.ConversationID); err != nil {
		slog.Error("deleting message failed", "messageId", id, "error", err)
		writeError(w, statusFor(err), "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	prompts, err := s.records.Prompts(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("listing prompts failed", "userId", claims.UserID, "error", err)
		writeError(w, statusFor(err), "Failed to get prompts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"prompts": prompts,
	})
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	var body struct {
		Name      string `json:"name"`
		Content   string `json:"content"`
		IsDefault bool   `json:"isDefault"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Name == "" || body.Content == "" {
		writeError(w, http.StatusBadRequest, "Name and content are required")
		return
	}

	prompt, err := s.records.CreatePrompt(r.Context(), store.Prompt{
		UserID:    claims.UserID,
		Name:      body.Name,
		Content:   body.Content,
		IsDefault: store.Flag(body.IsDefault),
	})
	if err != nil {
		slog.Error("creating prompt failed", "error", err)
		writeError(w, statusFor(err), "Failed to create prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"prompt":  prompt,
	})
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid prompt id")
		return
	}

	var body struct {
		Name      *string `json:"name"`
		Content   *string `json:"content"`
		IsDefault *bool   `json:"isDefault"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if body.Name != nil {
		updates["name"] = *body.Name
	}
	if body.Content != nil {
		updates["content"] = *body.Content
	}
	if body.IsDefault != nil {
		updates["is_default"] = *body.IsDefault
	}

	prompt, err := s.records.UpdatePrompt(r.Context(), id, updates)
	if err != nil {
		slog.Error("updating prompt failed", "promptId", id, "error", err)
		writeError(w, statusFor(err), "Failed to update prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"prompt":  prompt,
	})
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid prompt id")
		return
	}

	prompt, err := s.records.PromptByID(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to delete prompt")
		return
	}
	if prompt.UserID != claims.UserID {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := s.records.DeletePrompt(r.Context(), id); err != nil {
		slog.Error("deleting prompt failed", "promptId", id, "error", err)
		writeError(w, statusFor(err), "Failed to delete prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

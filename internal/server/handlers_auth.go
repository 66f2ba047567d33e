package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mickekring/berget-gpt/internal/auth"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"
	"github.com/mickekring/berget-gpt/internal/store"
)

// userView is the user shape returned to the browser.
type userView struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	SystemPrompt string `json:"systemPrompt"`
	Theme        string `json:"theme"`
	Language     string `json:"language"`
}

func viewOf(user *store.User) userView {
	language := user.Language
	if language == "" {
		language = "sv"
	}
	return userView{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		SystemPrompt: user.SystemPrompt,
		Theme:        user.Theme,
		Language:     language,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := s.records.UserByUsername(r.Context(), body.Username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			slog.Error("user lookup failed", "error", err)
			writeError(w, statusFor(err), "Login failed")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		slog.Error("issuing session token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    viewOf(user),
		"token":   token,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    int    `json:"userId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{
		"first_name": body.FirstName,
		"last_name":  body.LastName,
	}
	if body.Email != "" {
		updates["email"] = body.Email
	}
	s.updateOwnUser(w, r, body.UserID, updates)
}

func (s *Server) handleUpdateLanguage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   int    `json:"userId"`
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Language == "" {
		writeError(w, http.StatusBadRequest, "Language is required")
		return
	}
	s.updateOwnUser(w, r, body.UserID, map[string]interface{}{"language": body.Language})
}

func (s *Server) handleUpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID       int    `json:"userId"`
		SystemPrompt string `json:"systemPrompt"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.updateOwnUser(w, r, body.UserID, map[string]interface{}{"system_prompt": body.SystemPrompt})
}

// updateOwnUser applies a patch after checking the caller only touches their
// own row.
func (s *Server) updateOwnUser(w http.ResponseWriter, r *http.Request, userID int, updates map[string]interface{}) {
	claims := mustClaims(r)
	if claims.UserID != userID {
		writeError(w, http.StatusUnauthorized, "Unauthorized - User ID mismatch")
		return
	}

	user, err := s.records.UpdateUser(r.Context(), userID, updates)
	if err != nil {
		slog.Error("user update failed", "userId", userID, "error", err)
		writeError(w, statusFor(err), "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    viewOf(user),
	})
}

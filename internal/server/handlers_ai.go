package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mickekring/berget-gpt/internal/chat"
	"github.com/mickekring/berget-gpt/internal/config"
	"github.com/mickekring/berget-gpt/internal/document"
	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/search"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages       []llm.Message    `json:"messages"`
		Model          string           `json:"model"`
		DocumentChunks []document.Chunk `json:"documentChunks"`
		ToolsEnabled   *bool            `json:"toolsEnabled"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Model == "" || len(body.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Model and messages are required")
		return
	}

	toolsEnabled := true
	if body.ToolsEnabled != nil {
		toolsEnabled = *body.ToolsEnabled
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := s.orch.Run(r.Context(), chat.Request{
		Model:        body.Model,
		Messages:     body.Messages,
		Chunks:       body.DocumentChunks,
		ToolsEnabled: toolsEnabled,
	}, chat.NewEmitter(w))
	if err != nil {
		// Nothing has been written yet, so a regular error response
		// still goes through.
		w.Header().Set("Content-Type", "application/json")
		slog.Error("chat turn failed", "error", err)
		writeError(w, statusFor(err), "Internal server error")
	}
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Texts []string `json:"texts"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Texts == nil {
		writeError(w, http.StatusBadRequest, "Invalid texts provided")
		return
	}
	if len(body.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "No texts provided")
		return
	}

	embeddings, err := s.gateway.Embed(r.Context(), body.Texts)
	if err != nil {
		slog.Error("embedding request failed", "texts", len(body.Texts), "error", err)
		writeError(w, statusFor(err), "Failed to create embeddings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"embeddings": embeddings,
		"model":      s.cfg.Embeddings.Model,
		"dimensions": s.cfg.Embeddings.Dimensions,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	resp, err := s.searcher.Search(r.Context(), body.Query)
	if err != nil {
		slog.Error("web search failed", "error", err)
		writeError(w, statusFor(err), "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content": search.Format(resp),
		"answer":  resp.Answer,
		"results": resp.Results,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	text, err := s.gateway.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		slog.Error("transcription failed", "file", header.Filename, "error", err)
		writeError(w, statusFor(err), "Transcription failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/plain") {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported file type: %s. Please upload plain text files.", contentType))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process file")
		return
	}

	content := strings.TrimSpace(string(raw))
	chunks := []document.Chunk{}
	if content == "" {
		content = fmt.Sprintf("File uploaded: %s\nSize: %d bytes\nNo text content could be extracted.",
			header.Filename, header.Size)
	} else {
		maxChunkSize := s.cfg.Documents.MaxChunkSize
		if maxChunkSize <= 0 {
			maxChunkSize = config.DefaultMaxChunkSize
		}
		overlap := s.cfg.Documents.Overlap
		if overlap <= 0 {
			overlap = config.DefaultChunkOverlap
		}
		chunks = document.Split(content, header.Filename, maxChunkSize, overlap)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":  content,
		"filename": header.Filename,
		"size":     header.Size,
		"type":     contentType,
		"chunks":   chunks,
	})
}

func (s *Server) handleMCPTools(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		tools, err := s.catalog.Refresh(r.Context())
		if err != nil {
			slog.Error("MCP catalog refresh failed", "error", err)
			writeError(w, http.StatusBadGateway, "Failed to refresh MCP tools")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"tools":       tools,
			"cached":      false,
			"lastUpdated": s.catalog.LastUpdated().UnixMilli(),
		})
		return
	}

	tools := s.catalog.Tools(r.Context())
	response := map[string]interface{}{
		"success":     true,
		"tools":       tools,
		"cached":      len(tools) > 0,
		"lastUpdated": s.catalog.LastUpdated().UnixMilli(),
	}
	if len(tools) == 0 {
		response["lastUpdated"] = time.Now().UnixMilli()
		response["message"] = "No tools available yet, initializing in background"
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Messages []llm.Message `json:"messages"`
	}
	if err := decodeJSON(r, &body); err != nil || len(body.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "No messages provided")
		return
	}

	title, err := s.gateway.Title(r.Context(), body.Messages)
	if err != nil {
		slog.Error("title generation failed", "error", err)
		writeError(w, statusFor(err), "Failed to generate title")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

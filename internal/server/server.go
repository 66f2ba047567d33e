package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mickekring/berget-gpt/internal/auth"
	"github.com/mickekring/berget-gpt/internal/chat"
	"github.com/mickekring/berget-gpt/internal/config"
	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/mcp"
	"github.com/mickekring/berget-gpt/internal/search"
	"github.com/mickekring/berget-gpt/internal/store"
)

// Gateway is the LLM provider surface the handlers need.
type Gateway interface {
	llm.Completer
	llm.Embedder
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	Title(ctx context.Context, messages []llm.Message) (string, error)
}

// Server exposes the chat backend over HTTP.
type Server struct {
	cfg      *config.Config
	gateway  Gateway
	searcher search.Searcher
	records  *store.Client
	tokens   *auth.Manager
	catalog  *mcp.Catalog
	orch     *chat.Orchestrator

	httpServer *http.Server
}

func New(cfg *config.Config, gateway Gateway, searcher search.Searcher, records *store.Client, tokens *auth.Manager, catalog *mcp.Catalog, orch *chat.Orchestrator) *Server {
	s := &Server{
		cfg:      cfg,
		gateway:  gateway,
		searcher: searcher,
		records:  records,
		tokens:   tokens,
		catalog:  catalog,
		orch:     orch,
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     s.Routes(),
		ReadTimeout: config.MustDuration(cfg.Server.ReadTimeout, config.DefaultServerReadTimeout),
		// WriteTimeout stays at its configured value; the default is zero
		// because SSE responses outlive any fixed bound.
		WriteTimeout: config.MustDuration(cfg.Server.WriteTimeout, config.DefaultServerWriteTimeout),
		IdleTimeout:  config.MustDuration(cfg.Server.IdleTimeout, config.DefaultServerIdleTimeout),
	}
	return s
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/update-profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("POST /api/auth/update-language", s.requireAuth(s.handleUpdateLanguage))
	mux.HandleFunc("POST /api/auth/update-system-prompt", s.requireAuth(s.handleUpdateSystemPrompt))

	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("POST /api/conversations", s.requireAuth(s.handleCreateConversation))
	mux.HandleFunc("GET /api/conversations/{id}", s.requireAuth(s.handleConversationMessages))
	mux.HandleFunc("PATCH /api/conversations/{id}", s.requireAuth(s.handleUpdateConversation))
	mux.HandleFunc("DELETE /api/conversations/{id}", s.requireAuth(s.handleDeleteConversation))

	mux.HandleFunc("GET /api/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("POST /api/messages", s.requireAuth(s.handleCreateMessage))
	mux.HandleFunc("PATCH /api/messages/{id}", s.requireAuth(s.handleUpdateMessage))
	mux.HandleFunc("DELETE /api/messages/{id}", s.requireAuth(s.handleDeleteMessage))

	mux.HandleFunc("GET /api/prompts", s.requireAuth(s.handleListPrompts))
	mux.HandleFunc("POST /api/prompts", s.requireAuth(s.handleCreatePrompt))
	mux.HandleFunc("PATCH /api/prompts/{id}", s.requireAuth(s.handleUpdatePrompt))
	mux.HandleFunc("DELETE /api/prompts/{id}", s.requireAuth(s.handleDeletePrompt))

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/embeddings", s.handleEmbeddings)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/mcp", s.handleMCPTools)
	mux.HandleFunc("POST /api/generate-title", s.handleGenerateTitle)

	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("Starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

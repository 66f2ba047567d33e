package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mickekring/berget-gpt/internal/auth"
	"github.com/mickekring/berget-gpt/internal/chat"
	"github.com/mickekring/berget-gpt/internal/config"
	"github.com/mickekring/berget-gpt/internal/llm"
	"github.com/mickekring/berget-gpt/internal/mcp"
	"github.com/mickekring/berget-gpt/internal/search"
	"github.com/mickekring/berget-gpt/internal/server"
	"github.com/mickekring/berget-gpt/internal/store"
	"github.com/mickekring/berget-gpt/internal/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		tokens, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth setup: %w", err)
		}

		gateway := llm.New(cfg.Gateway, cfg.Embeddings)
		searcher := search.New(cfg.Search)
		records := store.New(cfg.Store)

		catalog := mcp.NewCatalog(
			mcp.NewHTTPLister(cfg.MCP.ServerURL, cfg.MCP.AuthToken),
			config.MustDuration(cfg.MCP.CacheTTL, config.DefaultMCPCacheTTL),
		)
		bridge := mcp.NewProxy(
			cfg.MCP.Command,
			cfg.MCP.Args,
			cfg.MCP.ServerURL,
			cfg.MCP.AuthToken,
			config.MustDuration(cfg.MCP.CallTimeout, config.DefaultMCPCallTimeout),
		)

		orch := &chat.Orchestrator{
			Completer: gateway,
			Registry: &tool.Registry{
				ModelMarker: cfg.Gateway.ToolModelMarker,
				Catalog:     catalog,
			},
			Executor: &tool.Executor{
				Searcher: searcher,
				Embedder: gateway,
				Bridge:   bridge,
				TopK:     cfg.Documents.TopK,
			},
		}

		srv := server.New(cfg, gateway, searcher, records, tokens, catalog, orch)
		srv.Start()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		slog.Info("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(),
			config.MustDuration(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout))
		defer cancel()
		return srv.Stop(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

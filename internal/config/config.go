package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Gateway    GatewayConfig    `koanf:"gateway"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Search     SearchConfig     `koanf:"search"`
	MCP        MCPConfig        `koanf:"mcp"`
	Store      StoreConfig      `koanf:"store"`
	Auth       AuthConfig       `koanf:"auth"`
	Documents  DocumentsConfig  `koanf:"documents"`
}

type ServerConfig struct {
	Addr            string `koanf:"addr"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// GatewayConfig points at the hosted LLM gateway (an OpenAI-compatible API).
type GatewayConfig struct {
	BaseURL         string  `koanf:"base_url"`
	APIKey          string  `koanf:"api_key"`
	Temperature     float32 `koanf:"temperature"`
	MaxTokens       int     `koanf:"max_tokens"`
	RequestTimeout  string  `koanf:"request_timeout"`
	ToolModelMarker string  `koanf:"tool_model_marker"`
	TitleModel      string  `koanf:"title_model"`
	TranscribeModel string  `koanf:"transcribe_model"`
}

type EmbeddingsConfig struct {
	BaseURL    string `koanf:"base_url"`
	APIKey     string `koanf:"api_key"`
	Model      string `koanf:"model"`
	Dimensions int    `koanf:"dimensions"`
}

type SearchConfig struct {
	BaseURL    string `koanf:"base_url"`
	APIKey     string `koanf:"api_key"`
	MaxResults int    `koanf:"max_results"`
	Timeout    string `koanf:"timeout"`
}

type MCPConfig struct {
	ServerURL   string   `koanf:"server_url"`
	AuthToken   string   `koanf:"auth_token"`
	Command     string   `koanf:"command"`
	Args        []string `koanf:"args"`
	CallTimeout string   `koanf:"call_timeout"`
	CacheTTL    string   `koanf:"cache_ttl"`
}

type StoreConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
	Base    string `koanf:"base"`
	Timeout string `koanf:"timeout"`
}

type AuthConfig struct {
	Secret   string `koanf:"secret"`
	TokenTTL string `koanf:"token_ttl"`
}

type DocumentsConfig struct {
	MaxChunkSize int `koanf:"max_chunk_size"`
	Overlap      int `koanf:"overlap"`
	TopK         int `koanf:"top_k"`
}

const (
	DefaultServerAddr            = ":8080"
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "30s"
	DefaultServerWriteTimeout    = "0s" // SSE responses stay open past any fixed bound
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"
	DefaultGatewayBaseURL        = "https://api.berget.ai/v1"
	DefaultGatewayTemperature    = 0.7
	DefaultGatewayMaxTokens      = 2000
	DefaultGatewayTimeout        = "120s"
	DefaultToolModelMarker       = "Llama"
	DefaultTitleModel            = "meta-llama/Llama-3.3-70B-Instruct"
	DefaultTranscribeModel       = "KBLab/kb-whisper-large"
	DefaultEmbeddingsBaseURL     = "https://api.openai.com/v1"
	DefaultEmbeddingsModel       = "text-embedding-3-small"
	DefaultEmbeddingsDimensions  = 1536
	DefaultSearchBaseURL         = "https://api.tavily.com"
	DefaultSearchMaxResults      = 5
	DefaultSearchTimeout         = "15s"
	DefaultMCPCommand            = "npx"
	DefaultMCPCallTimeout        = "45s"
	DefaultMCPCacheTTL           = "5m"
	DefaultStoreBaseURL          = "https://nocodb.labbytan.se"
	DefaultStoreBase             = "BergetGPT"
	DefaultStoreTimeout          = "10s"
	DefaultAuthTokenTTL          = "168h"
	DefaultMaxChunkSize          = 300
	DefaultChunkOverlap          = 50
	DefaultTopK                  = 5
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded defaults
	defaults := map[string]interface{}{
		"server.addr":               DefaultServerAddr,
		"server.log_level":          DefaultServerLogLevel,
		"server.read_timeout":       DefaultServerReadTimeout,
		"server.write_timeout":      DefaultServerWriteTimeout,
		"server.idle_timeout":       DefaultServerIdleTimeout,
		"server.shutdown_timeout":   DefaultServerShutdownTimeout,
		"gateway.base_url":          DefaultGatewayBaseURL,
		"gateway.temperature":       DefaultGatewayTemperature,
		"gateway.max_tokens":        DefaultGatewayMaxTokens,
		"gateway.request_timeout":   DefaultGatewayTimeout,
		"gateway.tool_model_marker": DefaultToolModelMarker,
		"gateway.title_model":       DefaultTitleModel,
		"gateway.transcribe_model":  DefaultTranscribeModel,
		"embeddings.base_url":       DefaultEmbeddingsBaseURL,
		"embeddings.model":          DefaultEmbeddingsModel,
		"embeddings.dimensions":     DefaultEmbeddingsDimensions,
		"search.base_url":           DefaultSearchBaseURL,
		"search.max_results":        DefaultSearchMaxResults,
		"search.timeout":            DefaultSearchTimeout,
		"mcp.command":               DefaultMCPCommand,
		"mcp.args":                  []string{"mcp-remote"},
		"mcp.call_timeout":          DefaultMCPCallTimeout,
		"mcp.cache_ttl":             DefaultMCPCacheTTL,
		"store.base_url":            DefaultStoreBaseURL,
		"store.base":                DefaultStoreBase,
		"store.timeout":             DefaultStoreTimeout,
		"auth.token_ttl":            DefaultAuthTokenTTL,
		"documents.max_chunk_size":  DefaultMaxChunkSize,
		"documents.overlap":         DefaultChunkOverlap,
		"documents.top_k":           DefaultTopK,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".bergetgpt", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment variables. Keys are two levels deep, so only the first
	// underscore separates section from field (GATEWAY_API_KEY -> gateway.api_key).
	k.Load(env.Provider("BERGETGPT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BERGETGPT_")), "_", ".", 1)
	}), nil)

	// CLI flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the intake backend.
// Environment variables are parsed from the SCAMWATCH_ prefix.
type Config struct {
	// DBDriver selects the relational store: postgres, sqlite, or auto
	// (postgres when a DSN is set, sqlite otherwise).
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/scamwatch.db"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Vector index
	WeaviateURL string `envconfig:"WEAVIATE_URL" default:"localhost:8081"`

	// Embedding Configuration
	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`

	// Agent Configuration
	ChatProvider        string `envconfig:"CHAT_PROVIDER" default:"ollama"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"granite3.2:8b"`
	AgentTimeoutSeconds int    `envconfig:"AGENT_TIMEOUT_SECONDS" default:"60"`

	// Retrieval Configuration
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	// RagLogPath enables the append-only retrieval invocation log when set.
	RagLogPath string `envconfig:"RAG_LOG_PATH" default:""`

	// Health Configuration
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults derives DBDriver when set to "auto" and validates choices.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	if c.EmbedProvider != "ollama" {
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}
	if c.ChatProvider != "ollama" {
		return fmt.Errorf("unsupported CHAT_PROVIDER: %s", c.ChatProvider)
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be >= 1")
	}
	return nil
}

// New creates a new Config by parsing SCAMWATCH_-prefixed environment
// variables, e.g. SCAMWATCH_HTTP_PORT, SCAMWATCH_POSTGRES_DSN.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SCAMWATCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("weaviate_url", cfg.WeaviateURL).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("chat_model", cfg.ChatModel).
		Int("retrieval_top_k", cfg.RetrievalTopK).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/config"
	emb "github.com/scamwatch/scamwatch-backend/internal/embeddings"
	"github.com/scamwatch/scamwatch-backend/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates the embedding provider from config and
// kicks off an async warmup so the first real request is not the one that
// pays the model-load cost.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) emb.Provider {
	var provider emb.Provider
	switch cfg.EmbedProvider {
	case "", "ollama":
		provider = ollama.New(cfg.EmbedModel)
	default:
		log.Warn().Str("provider", cfg.EmbedProvider).Msg("unknown embedding provider; using ollama")
		provider = ollama.New(cfg.EmbedModel)
	}

	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if vec, err := provider.Embed(warmupCtx, "factory-warmup-check"); err != nil || len(vec) == 0 {
			log.Warn().Err(err).Str("model", cfg.EmbedModel).Msg("embedding provider warmup failed")
		} else {
			log.Debug().Str("model", cfg.EmbedModel).Msg("embedding provider warmup completed")
		}
	}()

	return provider
}

package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/config"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
)

// NewSearchIndex creates the Weaviate-backed index. Schema bootstrap runs
// asynchronously so startup is not blocked on a cold Weaviate.
func NewSearchIndex(ctx context.Context, cfg *config.Config, log zerolog.Logger) (searchindex.Index, error) {
	if cfg.WeaviateURL == "" {
		return nil, fmt.Errorf("SCAMWATCH_WEAVIATE_URL is required")
	}

	idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL)
	if err != nil {
		return nil, err
	}

	go func() {
		bctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := searchindex.EnsureSchema(bctx, cfg.WeaviateURL); err != nil {
			log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("search index bootstrap failed")
		} else {
			log.Debug().Str("url", cfg.WeaviateURL).Msg("search index bootstrap completed")
		}
	}()

	return idx, nil
}

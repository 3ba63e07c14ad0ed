// Package factory constructs the service's dependencies from config.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/config"
	storepkg "github.com/scamwatch/scamwatch-backend/internal/store"
	storepg "github.com/scamwatch/scamwatch-backend/internal/store/postgres"
	storelite "github.com/scamwatch/scamwatch-backend/internal/store/sqlite"
)

// NewStore returns the configured store.Store. The schema is ensured
// synchronously so health probes and first requests see a ready database.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("SCAMWATCH_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return storepg.New(db), nil

	case "sqlite":
		db, err := storelite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := storelite.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return storelite.New(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}

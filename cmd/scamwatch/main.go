package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scamwatch/scamwatch-backend/chatservice"
	"github.com/scamwatch/scamwatch-backend/internal/config"
	"github.com/scamwatch/scamwatch-backend/internal/factory"
	"github.com/scamwatch/scamwatch-backend/internal/logger"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/reports"
	"github.com/scamwatch/scamwatch-backend/internal/searchindex"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

var rootCmd = &cobra.Command{
	Use:   "scamwatch",
	Short: "Scam report intake backend",
}

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the intake HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return chatservice.Run()
		},
	}
	rootCmd.AddCommand(serveCmd)

	initIndexCmd := &cobra.Command{
		Use:   "init-index",
		Short: "Create the vector index schema and reindex all stored reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitIndex(cmd.Context())
		},
	}
	rootCmd.AddCommand(initIndexCmd)

	seedCmd := &cobra.Command{
		Use:   "seed-strategies <file.json>",
		Short: "Load questioning strategies from a JSON seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedStrategies(cmd.Context(), args[0])
		},
	}
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInitIndex(ctx context.Context) error {
	log := logger.New("scamwatch-init-index")
	cfg, err := config.New()
	if err != nil {
		return err
	}

	bctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := searchindex.EnsureSchema(bctx, cfg.WeaviateURL); err != nil {
		return fmt.Errorf("ensure index schema: %w", err)
	}

	st, err := factory.NewStore(bctx, cfg, log)
	if err != nil {
		return err
	}
	idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL)
	if err != nil {
		return err
	}
	embProvider := factory.NewEmbeddingProvider(bctx, cfg, log)
	vectors := vector.New(embProvider, idx, log)
	svc := reports.NewService(st, vectors, idx, log)

	n, err := svc.ReindexAll(bctx)
	if err != nil {
		return fmt.Errorf("reindex reports: %w", err)
	}
	log.Info().Int("indexed", n).Msg("index initialized")
	return nil
}

// seedStrategy mirrors the strategy seed file layout.
type seedStrategy struct {
	StrategyType string          `json:"strategy_type"`
	Response     string          `json:"response"`
	SuccessScore float64         `json:"success_score"`
	UserProfile  json.RawMessage `json:"user_profile"`
}

func runSeedStrategies(ctx context.Context, path string) error {
	log := logger.New("scamwatch-seed")
	cfg, err := config.New()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seeds []seedStrategy
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	st, err := factory.NewStore(sctx, cfg, log)
	if err != nil {
		return err
	}

	for i, seed := range seeds {
		profile, dropped := model.ParseProfile(seed.UserProfile)
		if len(dropped) > 0 {
			log.Warn().Int("entry", i).Strs("dimensions", dropped).
				Msg("ignoring unrecognized profile dimensions in seed")
		}
		if _, err := st.Strategies().Create(sctx, &model.Strategy{
			StrategyType: seed.StrategyType,
			Response:     seed.Response,
			SuccessScore: seed.SuccessScore,
			Profile:      profile,
		}); err != nil {
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	log.Info().Int("strategies", len(seeds)).Msg("strategies seeded")
	return nil
}

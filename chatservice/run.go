// Package chatservice wires configuration, storage, retrieval, and the
// HTTP API into the runnable intake service.
package chatservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/api"
	"github.com/scamwatch/scamwatch-backend/internal/config"
	"github.com/scamwatch/scamwatch-backend/internal/conversation"
	"github.com/scamwatch/scamwatch-backend/internal/factory"
	"github.com/scamwatch/scamwatch-backend/internal/health"
	"github.com/scamwatch/scamwatch-backend/internal/logger"
	"github.com/scamwatch/scamwatch-backend/internal/raglog"
	"github.com/scamwatch/scamwatch-backend/internal/reports"
	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/strategy"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
	"github.com/scamwatch/scamwatch-backend/internal/vector"
)

// Run starts the intake service HTTP server and blocks until shutdown or
// error.
func Run() error {
	log := logger.New("scamwatch-backend")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("weaviate_url", cfg.WeaviateURL).
		Str("embed_model", cfg.EmbedModel).
		Str("chat_model", cfg.ChatModel).
		Msg("Intake service starting")

	ctx, stop := newServerContext()
	defer stop()

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	router := api.NewRouter(deps.registry, deps.reports, deps.store)

	svcHealth := startHealthCheckers(ctx, cfg, log, deps)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second, // agent turns can be slow
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// dependencies bundles everything the router and health checkers need.
type dependencies struct {
	store    store.Store
	index    health.HealthPinger
	embedder health.HealthPinger
	registry *conversation.Registry
	reports  *reports.Service
}

func buildDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("store unavailable")
		return nil, err
	}

	idx, err := factory.NewSearchIndex(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("search index unavailable")
		return nil, err
	}

	embProvider := factory.NewEmbeddingProvider(ctx, cfg, log)
	if embProvider == nil {
		return nil, fmt.Errorf("embedding provider not configured")
	}

	agentFactory, err := factory.NewAgentFactory(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("agent factory unavailable")
		return nil, err
	}

	vectors := vector.New(embProvider, idx, log)
	strategies := strategy.New(st, log)
	invLog := raglog.New(cfg.RagLogPath, log)
	toolset := tools.New(vectors, strategies, invLog, log, cfg.ChatModel)

	deps := &dependencies{
		store:    st,
		registry: conversation.NewRegistry(st, agentFactory, toolset, log),
		reports:  reports.NewService(st, vectors, idx, log),
	}
	if p, ok := idx.(health.HealthPinger); ok {
		deps.index = p
	}
	if p, ok := embProvider.(health.HealthPinger); ok {
		deps.embedder = p
	}
	return deps, nil
}

// startHealthCheckers starts component checkers and the service-level
// aggregator, and binds the health endpoint to it.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker
	if p, ok := deps.store.(health.HealthPinger); ok {
		c := health.NewProbeChecker("store", p, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}
	if deps.index != nil {
		c := health.NewProbeChecker("searchindex", deps.index, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}
	if deps.embedder != nil {
		c := health.NewProbeChecker("embedder", deps.embedder, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// startupHealthTimeout is interval*2 with a floor of 60 seconds, giving
// checkers time to complete their first probe cycle.
func startupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is green or the startup
// window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := startupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

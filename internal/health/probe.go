package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ProbeChecker turns any HealthPinger into a named component checker with
// a cached status updated by periodic probes. Components start unhealthy
// until the first successful probe.
type ProbeChecker struct {
	name         string
	pinger       HealthPinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

func NewProbeChecker(name string, pinger HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *ProbeChecker {
	pc := &ProbeChecker{name: name, pinger: pinger, log: log, probeTimeout: probeTimeout}
	pc.healthy.Store(0)
	return pc
}

func (pc *ProbeChecker) Name() string { return pc.name }

// IsHealthy returns the cached health status (non-blocking).
func (pc *ProbeChecker) IsHealthy() bool { return pc.healthy.Load() == 1 }

// Start begins periodic health checking until the context is cancelled.
func (pc *ProbeChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		to := pc.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		if err := pc.pinger.HealthPing(checkCtx); err != nil {
			pc.log.Error().Str("checker", pc.name).Err(err).Msg("component health check failed")
			pc.healthy.Store(0)
			return
		}
		pc.healthy.Store(1)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s *stubPinger) HealthPing(context.Context) error { return s.err }

func TestProbeCheckerTransitions(t *testing.T) {
	p := &stubPinger{}
	pc := NewProbeChecker("store", p, zerolog.Nop(), time.Second)
	assert.False(t, pc.IsHealthy(), "starts unhealthy before first probe")

	ctx, cancel := context.WithCancel(context.Background())
	go pc.Start(ctx, 10*time.Millisecond)

	assert.Eventually(t, pc.IsHealthy, time.Second, 5*time.Millisecond)

	p.err = errors.New("connection refused")
	assert.Eventually(t, func() bool { return !pc.IsHealthy() }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestServiceHealthAggregates(t *testing.T) {
	up := NewProbeChecker("a", &stubPinger{}, zerolog.Nop(), time.Second)
	down := NewProbeChecker("b", &stubPinger{err: errors.New("down")}, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go up.Start(ctx, 10*time.Millisecond)
	go down.Start(ctx, 10*time.Millisecond)

	svc := NewServiceHealthChecker(zerolog.Nop(), up, down)
	go svc.Start(ctx, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, svc.IsHealthy())

	one := NewServiceHealthChecker(zerolog.Nop(), up)
	go one.Start(ctx, 10*time.Millisecond)
	assert.Eventually(t, one.IsHealthy, time.Second, 5*time.Millisecond)
}

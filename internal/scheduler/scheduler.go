// Package scheduler runs the three cooperative loops that drive the
// detector end to end: discovery, signal evaluation, and broadcast.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/hub"
	"github.com/charleschow/mispricing-detector/internal/paper"
	"github.com/charleschow/mispricing-detector/internal/resolver"
	"github.com/charleschow/mispricing-detector/internal/signaler"
	"github.com/charleschow/mispricing-detector/internal/store"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// Connector is implemented by every venue adapter (direct or routed).
type Connector interface {
	Name() string
	DiscoverMarkets(ctx context.Context, force bool) ([]canonical.VenueMarket, error)
}

// Config controls loop cadence and feature toggles.
type Config struct {
	DiscoveryInterval   time.Duration
	SignalInterval      time.Duration
	BroadcastInterval   time.Duration
	ResolveConfig       resolver.Config
	DemoMarketsEnabled  bool
	SportsEnabled       map[canonical.Sport]bool
}

// Scheduler owns the three loops and the snapshot hub.
type Scheduler struct {
	st         *store.Store
	connA      Connector
	connB      Connector
	overrides  *resolver.Overrides
	signaler   *signaler.Engine
	sim        *paper.Simulator
	hub        *hub.Hub
	cfg        Config

	mu       sync.RWMutex
	snapshot Snapshot
}

func New(st *store.Store, connA, connB Connector, overrides *resolver.Overrides, sig *signaler.Engine, sim *paper.Simulator, h *hub.Hub, cfg Config) *Scheduler {
	return &Scheduler{st: st, connA: connA, connB: connB, overrides: overrides, signaler: sig, sim: sim, hub: h, cfg: cfg}
}

// Run starts all three loops and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		s.loop(ctx, "discovery", s.cfg.DiscoveryInterval, s.runDiscoveryCycle)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "signal", s.cfg.SignalInterval, s.runSignalCycle)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "broadcast", s.cfg.BroadcastInterval, s.runBroadcastCycle)
	}()

	wg.Wait()
}

// loop runs fn immediately, then on every tick, until ctx is cancelled.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		if err := fn(ctx); err != nil {
			telemetry.Warnf("scheduler: %s cycle error: %v", name, err)
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runSignalCycle runs refresh_signals -> auto_close -> mark_to_market in
// that fixed order every tick. Each step commits its own upserts
// atomically; they are not wrapped in one outer transaction (that would
// require threading a shared *sql.Tx through signaler/paper, which isn't
// worth the coupling for a cycle that already reruns from scratch on the
// next tick if interrupted).
func (s *Scheduler) runSignalCycle(ctx context.Context) error {
	if err := s.signaler.Refresh(ctx); err != nil {
		return err
	}
	if err := s.sim.AutoClose(ctx, time.Now().UTC()); err != nil {
		return err
	}
	return s.sim.MarkToMarket(ctx)
}

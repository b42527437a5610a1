package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charleschow/mispricing-detector/internal/apisrv"
	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/config"
	"github.com/charleschow/mispricing-detector/internal/connectors/kalshirest"
	"github.com/charleschow/mispricing-detector/internal/connectors/kalshiws"
	"github.com/charleschow/mispricing-detector/internal/connectors/polygamma"
	"github.com/charleschow/mispricing-detector/internal/connectors/polyrouter"
	"github.com/charleschow/mispricing-detector/internal/events"
	"github.com/charleschow/mispricing-detector/internal/fanoutws"
	"github.com/charleschow/mispricing-detector/internal/hub"
	"github.com/charleschow/mispricing-detector/internal/ingest"
	"github.com/charleschow/mispricing-detector/internal/paper"
	"github.com/charleschow/mispricing-detector/internal/resolver"
	"github.com/charleschow/mispricing-detector/internal/scheduler"
	"github.com/charleschow/mispricing-detector/internal/signaler"
	"github.com/charleschow/mispricing-detector/internal/store"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
	"github.com/charleschow/mispricing-detector/internal/venueauth"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting cross-exchange mispricing detector")

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		telemetry.Errorf("store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	overrides, err := resolver.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		telemetry.Errorf("overrides: %v", err)
		os.Exit(1)
	}

	bus := events.NewBus()

	// ── Venue connectors ───────────────────────────────────────
	var connA, connB scheduler.Connector
	if cfg.RouterEnabled {
		g := polyrouter.NewGate(cfg.RouterReqPerMin)
		connA = polyrouter.New(cfg.RouterBaseURL, cfg.RouterAPIKey, canonical.VenueA, g)
		connB = polyrouter.New(cfg.RouterBaseURL, cfg.RouterAPIKey, canonical.VenueB, g)
	} else {
		connA = polygamma.New(cfg.VenueABaseURL, cfg.VenueAAPIKey)

		venueBSigner, err := venueauth.NewRSASignerFromFile(cfg.VenueBKeyID, cfg.VenueBKeyFile)
		if err != nil {
			telemetry.Errorf("venue B auth: %v", err)
			os.Exit(1)
		}
		connB = kalshirest.New(cfg.VenueBBaseURL, venueBSigner, cfg.SportsEnabled)

		if venueBSigner.Enabled() {
			wsClient := kalshiws.NewClient(cfg.VenueBWSURL, venueBSigner, bus)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := wsClient.Connect(ctx); err != nil {
				telemetry.Warnf("venue B WS: %v", err)
			}
		} else {
			telemetry.Warnf("venue B credentials missing; running on REST polling only")
		}
	}

	ingest.NewSubscriber(st, canonical.VenueB).Register(bus)

	// ── Signal + paper engines ─────────────────────────────────
	sig := signaler.New(st, signaler.Config{
		SlippageK:         cfg.SlippageK,
		MaxNotionalUSD:    cfg.MaxNotionalUSD,
		DepthMultiplier:   cfg.DepthMultiplier,
		FeeBpsVenueA:      cfg.FeeBpsVenueA,
		FeeBpsVenueB:      cfg.FeeBpsVenueB,
		MinEdgeAfterCosts: cfg.MinEdgeAfterCosts,
		MinSecondsToStart: cfg.MinSecondsToStart,
	})
	sim := paper.New(st)
	h := hub.New()

	sportsEnabled := make(map[canonical.Sport]bool, len(cfg.SportsEnabled))
	for _, s := range cfg.SportsEnabled {
		sportsEnabled[canonical.Sport(s)] = true
	}

	sched := scheduler.New(st, connA, connB, overrides, sig, sim, h, scheduler.Config{
		DiscoveryInterval:  cfg.DiscoveryInterval(),
		SignalInterval:     cfg.SignalInterval(),
		BroadcastInterval:  cfg.WSBroadcastInterval(),
		ResolveConfig: resolver.Config{
			AutoThreshold:      cfg.AutoThreshold,
			ReviewThreshold:    cfg.ReviewThreshold,
			ResolveWindowHours: cfg.ResolveWindowHours,
		},
		DemoMarketsEnabled: cfg.DemoMarketsEnabled,
		SportsEnabled:      sportsEnabled,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	// ── HTTP surface ────────────────────────────────────────────
	fanout := fanoutws.NewServer(h)
	handlers := apisrv.NewHandlers(st, sim, sched, fanout)
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		telemetry.Infof("HTTP surface listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	telemetry.Infof("Shutdown complete  markets_discovered=%d  signals_emitted=%d  paper_fills=%d",
		telemetry.Metrics.MarketsDiscovered.Value(),
		telemetry.Metrics.SignalsEmitted.Value(),
		telemetry.Metrics.PaperFills.Value(),
	)
}

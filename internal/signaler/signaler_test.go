package signaler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "signaler_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedBoundPair(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.UpsertCanonicalEvent(ctx, canonical.CanonicalEvent{
		ID: "evt-1", Sport: canonical.SportNBA, Competition: canonical.CompetitionNBA,
		HomeTeam: "los angeles lakers", AwayTeam: "boston celtics", StartTimeUTC: now.Add(time.Hour), CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	for _, b := range []canonical.MarketBinding{
		{CanonicalEventID: "evt-1", Venue: canonical.VenueA, MarketID: "a1", MarketType: canonical.MarketWinnerBinary, Status: canonical.BindingAuto, ResolvedAt: now},
		{CanonicalEventID: "evt-1", Venue: canonical.VenueB, MarketID: "b1", MarketType: canonical.MarketWinnerBinary, Status: canonical.BindingAuto, ResolvedAt: now},
	} {
		if err := st.UpsertBinding(ctx, b); err != nil {
			t.Fatalf("seed binding: %v", err)
		}
	}
}

func cfg() Config {
	return Config{
		SlippageK:         0.2,
		MaxNotionalUSD:    250,
		DepthMultiplier:   1.5,
		FeeBpsVenueA:      40,
		FeeBpsVenueB:      35,
		MinEdgeAfterCosts: 0.008,
		MinSecondsToStart: 60,
	}
}

func TestRefreshEmitsSignalAboveThreshold(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedBoundPair(t, st)

	if err := st.UpsertOrderBookTop(ctx, canonical.VenueA, "a1", "YES", 0.40, 0.42, 1000, 1000); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertOrderBookTop(ctx, canonical.VenueB, "b1", "YES", 0.55, 0.57, 1000, 1000); err != nil {
		t.Fatal(err)
	}

	eng := New(st, cfg())
	if err := eng.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	signals, err := st.ActiveSignals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) == 0 {
		t.Fatal("expected at least one active signal for a wide cross-venue spread")
	}

	found := false
	for _, s := range signals {
		if s.Outcome == "YES" && s.BuyVenue == string(canonical.VenueA) && s.SellVenue == string(canonical.VenueB) {
			found = true
			if s.EdgeAfterCosts < cfg().MinEdgeAfterCosts {
				t.Fatalf("signal edge %v below threshold %v", s.EdgeAfterCosts, cfg().MinEdgeAfterCosts)
			}
		}
	}
	if !found {
		t.Fatal("expected a buy-A/sell-B YES signal")
	}
}

func TestRefreshClearsSignalWhenEdgeClosesUp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedBoundPair(t, st)

	if err := st.UpsertOrderBookTop(ctx, canonical.VenueA, "a1", "YES", 0.40, 0.42, 1000, 1000); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertOrderBookTop(ctx, canonical.VenueB, "b1", "YES", 0.55, 0.57, 1000, 1000); err != nil {
		t.Fatal(err)
	}

	eng := New(st, cfg())
	if err := eng.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := st.ActiveSignals(ctx)
	if len(before) == 0 {
		t.Fatal("expected a signal before narrowing the spread")
	}

	if err := st.UpsertOrderBookTop(ctx, canonical.VenueB, "b1", "YES", 0.42, 0.43, 1000, 1000); err != nil {
		t.Fatal(err)
	}
	if err := eng.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	after, err := st.ActiveSignals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range after {
		if s.Outcome == "YES" && s.BuyVenue == string(canonical.VenueA) && s.SellVenue == string(canonical.VenueB) {
			t.Fatal("expected the buy-A/sell-B YES signal to be cleared once the edge closed")
		}
	}
}

func TestRefreshSizeRespectsDepthMultiplier(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedBoundPair(t, st)

	if err := st.UpsertOrderBookTop(ctx, canonical.VenueA, "a1", "YES", 0.40, 0.42, 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertOrderBookTop(ctx, canonical.VenueB, "b1", "YES", 0.55, 0.57, 3, 3); err != nil {
		t.Fatal(err)
	}

	eng := New(st, cfg())
	if err := eng.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	signals, err := st.ActiveSignals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range signals {
		if s.Outcome == "YES" && s.BuyVenue == string(canonical.VenueA) && s.SellVenue == string(canonical.VenueB) {
			found = true
			// visible depth is 3, so with depth_multiplier 1.5 the suggested
			// size must stay at or below 3/1.5 = 2, never the raw depth.
			if s.SuggestedSize > 2.0001 {
				t.Fatalf("suggested size %v exceeds visible/depth_multiplier (2)", s.SuggestedSize)
			}
			if s.SuggestedSize*cfg().DepthMultiplier > 3.0001 {
				t.Fatalf("size*depth_multiplier %v exceeds visible depth (3)", s.SuggestedSize*cfg().DepthMultiplier)
			}
		}
	}
	if !found {
		t.Fatal("expected a buy-A/sell-B YES signal")
	}
}

func TestRefreshNoQuoteYieldsNoSignal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedBoundPair(t, st)

	eng := New(st, cfg())
	if err := eng.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	signals, err := st.ActiveSignals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no signals without any quotes, got %d", len(signals))
	}
}

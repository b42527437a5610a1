// Package signaler evaluates bound cross-venue market pairs for arbitrage
// edge and upserts MispricingSignal rows for anything that clears the
// threshold with sufficient depth.
package signaler

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/pricing"
	"github.com/charleschow/mispricing-detector/internal/store"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// Config holds the thresholds the evaluation loop needs.
type Config struct {
	SlippageK         float64
	MaxNotionalUSD    float64
	DepthMultiplier   float64
	FeeBpsVenueA      int
	FeeBpsVenueB      int
	MinEdgeAfterCosts float64
	MinSecondsToStart int
}

// Engine evaluates every bound pair on each signal cycle.
type Engine struct {
	st  *store.Store
	cfg Config
}

func New(st *store.Store, cfg Config) *Engine {
	return &Engine{st: st, cfg: cfg}
}

// Refresh evaluates all bound pairs and upserts/clears signals. It is the
// "refresh_signals" step of the scheduler's signal cycle; each store write
// it makes commits on its own.
func (e *Engine) Refresh(ctx context.Context) error {
	pairs, err := e.st.BoundPairs(ctx)
	if err != nil {
		return fmt.Errorf("load bound pairs: %w", err)
	}

	for _, pair := range pairs {
		if err := e.evaluatePair(ctx, pair); err != nil {
			telemetry.Warnf("signaler: event %s: %v", pair.EventID, err)
		}
	}
	return nil
}

func (e *Engine) evaluatePair(ctx context.Context, pair store.BoundPair) error {
	// Only events starting more than MinSecondsToStart from now are evaluated.
	evt, ok, err := e.st.GetCanonicalEvent(ctx, pair.EventID)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(time.Duration(e.cfg.MinSecondsToStart) * time.Second)
	if !ok || !evt.StartTimeUTC.After(cutoff) {
		return nil
	}
	for _, outcome := range []string{"YES", "NO"} {
		if err := e.evaluateOutcome(ctx, pair, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) evaluateOutcome(ctx context.Context, pair store.BoundPair, outcome string) error {
	qa, okA, err := e.quoteFor(ctx, canonical.VenueA, pair.A.MarketID, outcome)
	if err != nil {
		return err
	}
	qb, okB, err := e.quoteFor(ctx, canonical.VenueB, pair.B.MarketID, outcome)
	if err != nil {
		return err
	}
	if !okA || !okB {
		return nil // no quote yet on one side, nothing to evaluate
	}

	qa.FeeBps = e.cfg.FeeBpsVenueA
	qb.FeeBps = e.cfg.FeeBpsVenueB

	edgeAB := pricing.ComputeEdge(qa, qb, e.cfg.SlippageK) // buy A, sell B
	edgeBA := pricing.ComputeEdge(qb, qa, e.cfg.SlippageK) // buy B, sell A

	var buyVenue, sellVenue canonical.Venue
	var buyQuote, sellQuote pricing.Quote
	var edge pricing.Edge
	var buyMarketID, sellMarketID string

	// Ties favor buy-A/sell-B.
	if edgeAB.EdgeAfterCosts >= edgeBA.EdgeAfterCosts {
		buyVenue, sellVenue = canonical.VenueA, canonical.VenueB
		buyQuote, sellQuote = qa, qb
		edge = edgeAB
		buyMarketID, sellMarketID = pair.A.MarketID, pair.B.MarketID
	} else {
		buyVenue, sellVenue = canonical.VenueB, canonical.VenueA
		buyQuote, sellQuote = qb, qa
		edge = edgeBA
		buyMarketID, sellMarketID = pair.B.MarketID, pair.A.MarketID
	}

	signalID := fmt.Sprintf("%s:%s:%s:%s", pair.EventID, outcome, buyVenue, sellVenue)

	if edge.EdgeAfterCosts < e.cfg.MinEdgeAfterCosts {
		return e.st.ClearSignal(ctx, signalID)
	}

	size := pricing.SuggestedSize(buyQuote, sellQuote, e.cfg.MaxNotionalUSD, e.cfg.DepthMultiplier)
	if size <= 0 {
		return e.st.ClearSignal(ctx, signalID)
	}
	if buyQuote.AskSize < size*e.cfg.DepthMultiplier || sellQuote.BidSize < size*e.cfg.DepthMultiplier {
		return e.st.ClearSignal(ctx, signalID)
	}

	now := time.Now().UTC()
	return e.st.UpsertSignal(ctx, store.Signal{
		ID:               signalID,
		CanonicalEventID: pair.EventID,
		Outcome:          outcome,
		BuyVenue:         string(buyVenue),
		SellVenue:        string(sellVenue),
		BuyMarketID:      buyMarketID,
		SellMarketID:     sellMarketID,
		EdgeRaw:          edge.EdgeRaw,
		Fees:             edge.Fees,
		Slippage:         edge.Slippage,
		EdgeAfterCosts:   edge.EdgeAfterCosts,
		SuggestedSize:    size,
		BuyPrice:         buyQuote.Ask,
		SellPrice:        sellQuote.Bid,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (e *Engine) quoteFor(ctx context.Context, venue canonical.Venue, marketID, outcome string) (pricing.Quote, bool, error) {
	row, ok, err := e.st.GetOrderBookTop(ctx, venue, marketID, outcome)
	if err != nil || !ok {
		if outcome == "NO" && err == nil {
			// Derive NO conservatively from YES when the venue doesn't quote it
			// directly: NO.bid = 1 - YES.ask, NO.ask = 1 - YES.bid.
			yes, okYes, yerr := e.st.GetOrderBookTop(ctx, venue, marketID, "YES")
			if yerr != nil || !okYes {
				return pricing.Quote{}, false, yerr
			}
			return pricing.Quote{
				Bid: 1 - yes.Ask, Ask: 1 - yes.Bid,
				BidSize: yes.AskSize, AskSize: yes.BidSize,
			}, true, nil
		}
		return pricing.Quote{}, false, err
	}
	return pricing.Quote{Bid: row.Bid, Ask: row.Ask, BidSize: row.BidSize, AskSize: row.AskSize}, true, nil
}

// Package paper simulates fills for mispricing signals so strategies can be
// evaluated without touching either venue's live order book.
package paper

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/store"
)

// ErrInvalidArgument is returned by Simulator methods on bad caller input
// (unknown signal/position id, non-positive size) so HTTP handlers can map
// it to a 400/404 instead of a 500.
var ErrInvalidArgument = errors.New("paper: invalid argument")

// Simulator drives the paper-trading lifecycle: simulate a fill for a
// signal, mark open positions to market, and auto-close positions whose
// event has started.
type Simulator struct {
	st *store.Store
}

func New(st *store.Store) *Simulator {
	return &Simulator{st: st}
}

// fillProbability ladders down from certain (the resting limit crosses the
// opposing touch) to rare (the limit sits far off the book), modeling how
// likely a resting limit order would actually have filled by the time the
// signal is simulated.
const (
	probAtTouch = 0.60
	probMid     = 0.12
	probFar     = 0.03
)

// priceEps absorbs float round-off when comparing a signal's recorded entry
// price against the current touch (both are multiples of pricing.Tick).
const priceEps = 1e-9

// seededRNG derives a deterministic RNG from "signalID:size" so the same
// signal simulated twice with the same size reproduces the same fill
// decision. Go's math/rand takes an int64 seed, not a string, so the
// derivation string is hashed with FNV-1a first.
func seededRNG(signalID string, size float64) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%v", signalID, size)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// legFill is the outcome of simulating one leg (buy or sell) of a position.
type legFill struct {
	size  float64
	price float64
	prob  float64
}

// simulateBuyLeg fills a buy leg resting at limit against the venue's
// current best_bid/best_ask. A limit at or above the ask crosses the book
// immediately; otherwise the fill is a probabilistic draw based on how
// close the limit sits to the touch.
func simulateBuyLeg(rng *rand.Rand, requested, limit, bestBid, bestAsk, askDepth float64) legFill {
	if limit >= bestAsk-priceEps {
		return legFill{size: math.Min(requested, askDepth), price: bestAsk, prob: 1}
	}

	p := probFar
	switch {
	case math.Abs(limit-bestBid) <= priceEps:
		p = probAtTouch
	case limit > bestBid && limit < bestAsk:
		p = probMid
	}

	if rng.Float64() <= p {
		return legFill{size: math.Min(requested, askDepth*p), price: limit, prob: p}
	}
	return legFill{size: 0, price: limit, prob: p}
}

// simulateSellLeg is the mirror image of simulateBuyLeg: a limit at or
// below the bid crosses immediately; otherwise a limit resting at the ask
// gets probAtTouch, one strictly inside the spread probMid, and one above
// the ask probFar.
func simulateSellLeg(rng *rand.Rand, requested, limit, bestBid, bestAsk, bidDepth float64) legFill {
	if limit <= bestBid+priceEps {
		return legFill{size: math.Min(requested, bidDepth), price: bestBid, prob: 1}
	}

	p := probFar
	switch {
	case math.Abs(limit-bestAsk) <= priceEps:
		p = probAtTouch
	case limit > bestBid && limit < bestAsk:
		p = probMid
	}

	if rng.Float64() <= p {
		return legFill{size: math.Min(requested, bidDepth*p), price: limit, prob: p}
	}
	return legFill{size: 0, price: limit, prob: p}
}

// SimulateSignal attempts a simulated fill for a signal at the given size
// (defaulting to, and clamped at, the signal's suggested size when
// sizeOverride <= 0 or exceeds it). Each leg rests at the price the signal
// was generated at (signal.buy_price/sell_price) and is filled against the
// venue's quote as of the call. Returns the created position id, or
// ErrInvalidArgument wrapped with context when the signal doesn't exist,
// the size is non-positive, a quote is missing, or either leg fills zero.
func (s *Simulator) SimulateSignal(ctx context.Context, signalID string, sizeOverride float64) (int64, error) {
	sig, ok, err := s.st.GetSignal(ctx, signalID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: unknown signal %q", ErrInvalidArgument, signalID)
	}

	size := sig.SuggestedSize
	if sizeOverride > 0 {
		size = math.Min(sizeOverride, sig.SuggestedSize)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: non-positive size", ErrInvalidArgument)
	}

	buyVenue := canonical.Venue(sig.BuyVenue)
	sellVenue := canonical.Venue(sig.SellVenue)

	buyQuote, okBuy, err := s.st.GetOrderBookTop(ctx, buyVenue, sig.BuyMarketID, sig.Outcome)
	if err != nil {
		return 0, err
	}
	sellQuote, okSell, err := s.st.GetOrderBookTop(ctx, sellVenue, sig.SellMarketID, sig.Outcome)
	if err != nil {
		return 0, err
	}
	if !okBuy || !okSell {
		return 0, fmt.Errorf("%w: no current quote for signal %q", ErrInvalidArgument, signalID)
	}

	rng := seededRNG(signalID, size)

	buyFill := simulateBuyLeg(rng, size, sig.BuyPrice, buyQuote.Bid, buyQuote.Ask, buyQuote.AskSize)
	sellFill := simulateSellLeg(rng, size, sig.SellPrice, sellQuote.Bid, sellQuote.Ask, sellQuote.BidSize)

	filled := math.Min(buyFill.size, sellFill.size)
	if filled <= 0 {
		return 0, fmt.Errorf("%w: simulated fill missed", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	pos := store.Position{
		SignalID:      signalID,
		Size:          filled,
		BuyFillPrice:  buyFill.price,
		SellFillPrice: sellFill.price,
		FillRatio:     filled / size,
		OpenedAt:      now,
	}

	fills := []store.Fill{
		{
			Venue: string(buyVenue), Side: "buy",
			LimitPrice: sig.BuyPrice, Price: buyFill.price,
			RequestedSize: size, Size: buyFill.size, Probability: buyFill.prob,
			FilledAt: now,
		},
		{
			Venue: string(sellVenue), Side: "sell",
			LimitPrice: sig.SellPrice, Price: sellFill.price,
			RequestedSize: size, Size: sellFill.size, Probability: sellFill.prob,
			FilledAt: now,
		},
	}

	return s.st.InsertPosition(ctx, pos, fills)
}

// MarkToMarket re-prices every open position against the latest quotes and
// records unrealized PnL. A position whose current quotes are unavailable
// (or whose signal has been pruned) marks flat rather than stale. Intended
// to run as the "mark_to_market" step of the scheduler's signal cycle,
// after refresh_signals and auto-close.
func (s *Simulator) MarkToMarket(ctx context.Context) error {
	positions, err := s.st.OpenPositions(ctx)
	if err != nil {
		return err
	}
	for _, p := range positions {
		unrealized, err := s.markPosition(ctx, p)
		if err != nil {
			return err
		}
		if err := s.st.MarkToMarket(ctx, p.ID, unrealized); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) markPosition(ctx context.Context, p store.Position) (float64, error) {
	sig, ok, err := s.st.GetSignal(ctx, p.SignalID)
	if err != nil || !ok {
		return 0, err
	}

	buyTop, okBuy, err := s.st.GetOrderBookTop(ctx, canonical.Venue(sig.BuyVenue), sig.BuyMarketID, sig.Outcome)
	if err != nil {
		return 0, err
	}
	sellTop, okSell, err := s.st.GetOrderBookTop(ctx, canonical.Venue(sig.SellVenue), sig.SellMarketID, sig.Outcome)
	if err != nil {
		return 0, err
	}
	if !okBuy || !okSell {
		return 0, nil
	}

	return (buyTop.Bid-p.BuyFillPrice)*p.Size + (p.SellFillPrice-sellTop.Ask)*p.Size, nil
}

// ClosePosition manually closes a position. If both legs still quote,
// realized PnL re-prices against the current touch; otherwise it falls
// back to the locked entry spread (the same settlement AutoClose uses for
// an event that has already started).
func (s *Simulator) ClosePosition(ctx context.Context, positionID int64) error {
	pos, ok, err := s.st.GetPosition(ctx, positionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown position %d", ErrInvalidArgument, positionID)
	}
	if pos.Status != store.PositionOpen {
		return fmt.Errorf("%w: position %d not open", ErrInvalidArgument, positionID)
	}

	realized := (pos.SellFillPrice - pos.BuyFillPrice) * pos.Size

	sig, okSig, err := s.st.GetSignal(ctx, pos.SignalID)
	if err != nil {
		return err
	}
	if okSig {
		buyTop, okBuy, err := s.st.GetOrderBookTop(ctx, canonical.Venue(sig.BuyVenue), sig.BuyMarketID, sig.Outcome)
		if err != nil {
			return err
		}
		sellTop, okSell, err := s.st.GetOrderBookTop(ctx, canonical.Venue(sig.SellVenue), sig.SellMarketID, sig.Outcome)
		if err != nil {
			return err
		}
		if okBuy && okSell {
			realized = (buyTop.Bid-pos.BuyFillPrice)*pos.Size + (pos.SellFillPrice-sellTop.Ask)*pos.Size
		}
	}

	return s.st.ClosePosition(ctx, positionID, realized)
}

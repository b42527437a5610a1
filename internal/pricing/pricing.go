// Package pricing computes after-cost arbitrage edge and order sizing for a
// cross-venue buy/sell pair on the same outcome.
package pricing

import "math"

// Tick is the minimum price increment both venues quote in.
const Tick = 0.01

// Quote is one venue's top-of-book for an outcome.
type Quote struct {
	Bid      float64
	Ask      float64
	BidSize  float64 // contracts/shares visible at Bid
	AskSize  float64 // contracts/shares visible at Ask
	FeeBps   int     // venue's taker fee, basis points
}

// Edge is the result of evaluating one buy/sell direction.
type Edge struct {
	EdgeRaw        float64
	Spread         float64
	Slippage       float64
	Fees           float64
	EdgeAfterCosts float64
}

// ComputeEdge evaluates buying the outcome on buy (at its ask) and selling
// it on sell (at its bid). slippageK scales the wider of the two venues'
// spreads into an expected slippage cost, floored at one tick so a
// perfectly tight book never reports zero slippage.
func ComputeEdge(buy, sell Quote, slippageK float64) Edge {
	edgeRaw := sell.Bid - buy.Ask

	spreadBuy := buy.Ask - buy.Bid
	spreadSell := sell.Ask - sell.Bid
	spread := math.Max(0, math.Max(spreadBuy, spreadSell))

	slippage := math.Max(Tick, spread*slippageK)

	fees := (buy.Ask + sell.Bid) * float64(buy.FeeBps+sell.FeeBps) / 10000.0

	return Edge{
		EdgeRaw:        edgeRaw,
		Spread:         spread,
		Slippage:       slippage,
		Fees:           fees,
		EdgeAfterCosts: edgeRaw - fees - slippage,
	}
}

// SuggestedSize caps the tradeable size at the thinner of the two venues'
// visible depth — scaled down by depthMultiplier for sizing conservatism —
// and a notional-dollar ceiling, floored (never rounded) to four decimal
// places so the suggestion never overstates what the book can actually
// fill. depthMultiplier below 1 is treated as 1.
func SuggestedSize(buy, sell Quote, maxNotionalUSD, depthMultiplier float64) float64 {
	visible := math.Min(buy.AskSize, sell.BidSize)
	if visible <= 0 {
		return 0
	}

	byDepth := visible / math.Max(depthMultiplier, 1)
	byNotional := maxNotionalUSD / math.Max(buy.Ask, 0.01)
	size := math.Min(byDepth, byNotional)
	if size <= 0 {
		return 0
	}

	return math.Floor(size*10000) / 10000
}

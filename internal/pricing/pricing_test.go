package pricing

import "testing"

func TestComputeEdge(t *testing.T) {
	cases := []struct {
		name      string
		buy, sell Quote
		slippageK float64
		wantEdge  float64
	}{
		{
			name:      "clean arbitrage",
			buy:       Quote{Bid: 0.40, Ask: 0.42, FeeBps: 0},
			sell:      Quote{Bid: 0.50, Ask: 0.52, FeeBps: 0},
			slippageK: 0,
			wantEdge:  0.08, // 0.50 - 0.42
		},
		{
			name:      "no edge when venues agree",
			buy:       Quote{Bid: 0.50, Ask: 0.51, FeeBps: 0},
			sell:      Quote{Bid: 0.49, Ask: 0.50, FeeBps: 0},
			slippageK: 0,
			wantEdge:  -0.02,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			edge := ComputeEdge(tc.buy, tc.sell, tc.slippageK)
			if diff := edge.EdgeRaw - tc.wantEdge; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("EdgeRaw = %v, want %v", edge.EdgeRaw, tc.wantEdge)
			}
		})
	}
}

func TestComputeEdgeSlippageFloor(t *testing.T) {
	buy := Quote{Bid: 0.4999, Ask: 0.50, FeeBps: 0}
	sell := Quote{Bid: 0.5001, Ask: 0.5002, FeeBps: 0}

	edge := ComputeEdge(buy, sell, 0.2)
	if edge.Slippage != Tick {
		t.Fatalf("expected slippage floored at one tick (%v), got %v", Tick, edge.Slippage)
	}
}

func TestComputeEdgeFeesSubtractFromEdge(t *testing.T) {
	buy := Quote{Bid: 0.40, Ask: 0.42, FeeBps: 100} // 1%
	sell := Quote{Bid: 0.50, Ask: 0.52, FeeBps: 100}

	edge := ComputeEdge(buy, sell, 0)
	wantFees := (0.42 + 0.50) * 200 / 10000.0
	if diff := edge.Fees - wantFees; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Fees = %v, want %v", edge.Fees, wantFees)
	}
	wantAfterCosts := edge.EdgeRaw - edge.Fees - edge.Slippage
	if edge.EdgeAfterCosts != wantAfterCosts {
		t.Fatalf("EdgeAfterCosts = %v, want %v", edge.EdgeAfterCosts, wantAfterCosts)
	}
}

func TestSuggestedSizeCapsAtThinnerDepth(t *testing.T) {
	buy := Quote{Ask: 0.50, AskSize: 10}
	sell := Quote{Bid: 0.55, BidSize: 4}

	size := SuggestedSize(buy, sell, 10000, 1)
	if size != 4 {
		t.Fatalf("expected size capped at thinner depth (4), got %v", size)
	}
}

func TestSuggestedSizeAppliesDepthMultiplier(t *testing.T) {
	buy := Quote{Ask: 0.50, AskSize: 10}
	sell := Quote{Bid: 0.55, BidSize: 4}

	size := SuggestedSize(buy, sell, 10000, 1.5)
	want := 4.0 / 1.5
	wantFloored := float64(int(want*10000)) / 10000
	if size != wantFloored {
		t.Fatalf("size = %v, want %v", size, wantFloored)
	}
}

func TestSuggestedSizeDepthMultiplierBelowOneTreatedAsOne(t *testing.T) {
	buy := Quote{Ask: 0.50, AskSize: 10}
	sell := Quote{Bid: 0.55, BidSize: 4}

	size := SuggestedSize(buy, sell, 10000, 0.5)
	if size != 4 {
		t.Fatalf("expected depth_multiplier < 1 to be treated as 1 (size 4), got %v", size)
	}
}

func TestSuggestedSizeCapsAtNotional(t *testing.T) {
	buy := Quote{Ask: 0.50, AskSize: 1000}
	sell := Quote{Bid: 0.55, BidSize: 1000}

	size := SuggestedSize(buy, sell, 100, 1)
	want := 100.0 / 0.50
	if diff := size - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("size = %v, want ~%v", size, want)
	}
}

func TestSuggestedSizeZeroDepth(t *testing.T) {
	buy := Quote{Ask: 0.5, AskSize: 0}
	sell := Quote{Bid: 0.5, BidSize: 10}
	if size := SuggestedSize(buy, sell, 1000, 1); size != 0 {
		t.Fatalf("expected 0 size with zero depth, got %v", size)
	}
}

func TestSuggestedSizeFloorsAskAtOneCent(t *testing.T) {
	buy := Quote{Ask: 0, AskSize: 10}
	sell := Quote{Bid: 0, BidSize: 10}

	size := SuggestedSize(buy, sell, 1000, 1)
	if size != 10 {
		t.Fatalf("expected visible depth (10) to be the binding constraint once ask is floored at 0.01, got %v", size)
	}
}

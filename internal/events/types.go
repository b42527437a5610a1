package events

// MarketTick is published when a venue's WebSocket feed reports a price
// change. Prices are already coerced to [0,1] probabilities by the
// connector before publishing.
type MarketTick struct {
	MarketID string  `json:"market_id"`
	Outcome  string  `json:"outcome"` // "YES" or "NO"
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	BidSize  float64 `json:"bid_size"`
	AskSize  float64 `json:"ask_size"`
}

// WSStatusEvent signals a venue WebSocket's connect/disconnect state.
type WSStatusEvent struct {
	Connected bool `json:"connected"`
}

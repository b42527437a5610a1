package kalshiws

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/charleschow/mispricing-detector/internal/connectors/shared"
	"github.com/charleschow/mispricing-detector/internal/events"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// wsMessage represents a raw message from venue B's WebSocket.
type wsMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
	SID  int64           `json:"sid"`
}

type tickerMsg struct {
	MarketTicker  string  `json:"market_ticker"`
	YesAsk        float64 `json:"yes_ask"`
	YesBid        float64 `json:"yes_bid"`
	NoAsk         float64 `json:"no_ask"`
	NoBid         float64 `json:"no_bid"`
	YesAskDollars string  `json:"yes_ask_dollars"`
	YesBidDollars string  `json:"yes_bid_dollars"`
	NoAskDollars  string  `json:"no_ask_dollars"`
	NoBidDollars  string  `json:"no_bid_dollars"`
}

// ParseMessage converts a raw WebSocket frame into domain events. A
// single ticker update yields a YES event, plus a NO event when the frame
// carries a non-zero NO bid or ask, since the signaler treats YES and NO
// as independently quoted legs.
func ParseMessage(data []byte) []events.Event {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		telemetry.Warnf("kalshiws: parse error: %v", err)
		return nil
	}

	switch msg.Type {
	case "ticker":
		return parseTickerUpdate(msg.Msg)
	case "subscribed", "unsubscribed", "ok", "error":
		if msg.Type == "error" {
			telemetry.Warnf("kalshiws: server error: %s", string(msg.Msg))
		}
		return nil
	default:
		return nil
	}
}

func parseTickerUpdate(raw json.RawMessage) []events.Event {
	var t tickerMsg
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	if t.MarketTicker == "" {
		return nil
	}

	yesAsk := centsOrDollars(t.YesAsk, t.YesAskDollars)
	yesBid := centsOrDollars(t.YesBid, t.YesBidDollars)
	noAsk := centsOrDollars(t.NoAsk, t.NoAskDollars)
	noBid := centsOrDollars(t.NoBid, t.NoBidDollars)

	now := time.Now()
	out := []events.Event{
		{
			ID:        t.MarketTicker + ":YES",
			Type:      events.EventMarketTick,
			Venue:     "venue_b",
			Timestamp: now,
			Payload: events.MarketTick{
				MarketID: t.MarketTicker,
				Outcome:  "YES",
				Bid:      shared.CoercePrice(yesBid),
				Ask:      shared.CoercePrice(yesAsk),
			},
		},
	}
	if noAsk != 0 || noBid != 0 {
		out = append(out, events.Event{
			ID:        t.MarketTicker + ":NO",
			Type:      events.EventMarketTick,
			Venue:     "venue_b",
			Timestamp: now,
			Payload: events.MarketTick{
				MarketID: t.MarketTicker,
				Outcome:  "NO",
				Bid:      shared.CoercePrice(noBid),
				Ask:      shared.CoercePrice(noAsk),
			},
		})
	}
	return out
}

func centsOrDollars(cents float64, dollars string) float64 {
	if cents != 0 || dollars == "" {
		return cents
	}
	v, err := strconv.ParseFloat(dollars, 64)
	if err != nil {
		return 0
	}
	return v * 100
}

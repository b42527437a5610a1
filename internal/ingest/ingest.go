// Package ingest wires the event bus to the store: every WebSocket tick
// published by a connector lands as an order-book-top row. It is the only
// path by which quotes reach the store; the REST connectors' TopOfBook
// methods have no caller.
package ingest

import (
	"context"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/events"
	"github.com/charleschow/mispricing-detector/internal/store"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// Subscriber persists MarketTick events for one venue.
type Subscriber struct {
	st    *store.Store
	venue canonical.Venue
}

func NewSubscriber(st *store.Store, venue canonical.Venue) *Subscriber {
	return &Subscriber{st: st, venue: venue}
}

// Register attaches this subscriber's handlers to bus. Call once per
// venue WebSocket client during startup.
func (s *Subscriber) Register(bus *events.Bus) {
	bus.Subscribe(events.EventMarketTick, s.onMarketTick)
	bus.Subscribe(events.EventWSStatus, s.onWSStatus)
}

func (s *Subscriber) onMarketTick(e events.Event) error {
	tick, ok := e.Payload.(events.MarketTick)
	if !ok {
		return nil
	}
	ctx := context.Background()
	return s.st.UpsertOrderBookTop(ctx, s.venue, tick.MarketID, tick.Outcome, tick.Bid, tick.Ask, tick.BidSize, tick.AskSize)
}

func (s *Subscriber) onWSStatus(e events.Event) error {
	status, ok := e.Payload.(events.WSStatusEvent)
	if !ok {
		return nil
	}
	if status.Connected {
		telemetry.Infof("ingest: %s feed connected", s.venue)
	} else {
		telemetry.Warnf("ingest: %s feed disconnected", s.venue)
	}
	return nil
}

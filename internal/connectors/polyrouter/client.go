// Package polyrouter talks to a unified router that aggregates listings
// from both venues behind one API, trading request volume for simplicity:
// one client, one rate budget, one payload shape to parse.
package polyrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/connectors/shared"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// listing is the router's unified payload shape: one row per outcome, with
// both venues' native ids carried alongside so we can still key order-book
// lookups by the real venue market id downstream.
type listing struct {
	LookupID    string  `json:"lookup_id"`
	VenueANativeID string `json:"polymarket_id"`
	VenueBNativeID string `json:"kalshi_ticker"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle"`
	Sport       string  `json:"sport"`
	StartTime   string  `json:"start_time"`
	Outcomes    []string `json:"outcomes"`
	Bid         float64  `json:"bid"`
	Ask         float64  `json:"ask"`
	BidSize     float64  `json:"bid_size"`
	AskSize     float64  `json:"ask_size"`
}

type listingsResponse struct {
	Listings []listing `json:"listings"`
}

// gate serializes requests behind a mutex and a monotonic last-request
// timestamp so starts are spaced at least minInterval apart, mirroring the
// upstream router client's own rate-limiting approach more directly than a
// generic token bucket would: the router's budget is a flat requests-per-
// minute cap, not a bursty one.
type gate struct {
	mu       sync.Mutex
	last     time.Time
	minInterval time.Duration
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	elapsed := time.Since(g.last)
	if elapsed < g.minInterval {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.minInterval - elapsed):
		}
	}
	g.last = time.Now()
	return nil
}

// Client is the unified-router connector for one venue side (A or B): the
// router returns both venues in one payload, so a single Client instance
// can serve as both of scheduler's Connector slots by filtering for its
// own venue on DiscoverMarkets.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	venue   canonical.Venue
	gate    *gate

	cacheTTL  time.Duration
	lastFetch time.Time
	cached    []canonical.VenueMarket
	cachedRaw []listing
}

// newGate builds a gate that both venue-side Client instances pointed at
// the same router can share as one rate budget, since the limit is
// per-account, not per-logical-connector.
func newGate(reqPerMin int) *gate {
	if reqPerMin <= 0 {
		reqPerMin = 60
	}
	return &gate{minInterval: time.Minute / time.Duration(reqPerMin)}
}

// New constructs a router-backed connector for one venue side. Pass the
// same *gate to both sides' New calls to share one rate budget against a
// single router account.
func New(baseURL, apiKey string, venue canonical.Venue, g *gate) *Client {
	if g == nil {
		g = newGate(60)
	}
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		apiKey:   apiKey,
		venue:    venue,
		gate:     g,
		cacheTTL: 30 * time.Second,
	}
}

// NewGate exposes gate construction so callers can share one rate budget
// across both venue-side clients against a single router account.
func NewGate(reqPerMin int) *gate { return newGate(reqPerMin) }

func (c *Client) Name() string { return "router_" + string(c.venue) }

func (c *Client) DiscoverMarkets(ctx context.Context, force bool) ([]canonical.VenueMarket, error) {
	if !force && time.Since(c.lastFetch) < c.cacheTTL && c.cached != nil {
		return c.venueFiltered(c.cached), nil
	}

	raw, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	var markets []canonical.VenueMarket
	for _, l := range raw {
		if isNoiseOrEmpty(l) {
			continue
		}
		outcomes, marketType := shared.ClassifyOutcomes(l.Outcomes)
		sport := canonical.DetectSport(l.Sport)

		for _, venue := range []canonical.Venue{canonical.VenueA, canonical.VenueB} {
			nativeID := l.VenueANativeID
			if venue == canonical.VenueB {
				nativeID = l.VenueBNativeID
			}
			if nativeID == "" {
				continue
			}
			m := canonical.BuildMarket(venue, nativeID, l.Title, l.Subtitle, sport, l.Sport, l.StartTime, outcomes)
			m.MarketType = marketType
			markets = append(markets, m)
		}
	}
	markets = shared.FilterScope(markets, nil)

	c.cached = markets
	c.cachedRaw = raw
	c.lastFetch = time.Now()
	return c.venueFiltered(markets), nil
}

func (c *Client) venueFiltered(markets []canonical.VenueMarket) []canonical.VenueMarket {
	out := make([]canonical.VenueMarket, 0, len(markets))
	for _, m := range markets {
		if m.Venue == c.venue {
			out = append(out, m)
		}
	}
	return out
}

func isNoiseOrEmpty(l listing) bool {
	return shared.IsNoise(l.Title) || (l.VenueANativeID == "" && l.VenueBNativeID == "")
}

const defaultDepth = 100.0

// TopOfBook looks up a quote by the venue-native market id the router
// exposed it under.
func (c *Client) TopOfBook(marketID string) (bid, ask, bidSize, askSize float64, ok bool) {
	for _, l := range c.cachedRaw {
		if l.VenueANativeID == marketID || l.VenueBNativeID == marketID {
			return shared.CoercePrice(l.Bid), shared.CoercePrice(l.Ask), orDefault(l.BidSize), orDefault(l.AskSize), true
		}
	}
	return 0, 0, 0, 0, false
}

func orDefault(v float64) float64 {
	if v <= 0 {
		return defaultDepth
	}
	return v
}

func (c *Client) fetchAll(ctx context.Context) ([]listing, error) {
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/listings", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		resp, err = c.http.Do(req)
		if err == nil && resp.StatusCode != 429 && resp.StatusCode < 500 {
			break
		}
		if attempt >= 4 {
			if err != nil {
				return nil, fmt.Errorf("router fetch: %w", err)
			}
			return nil, fmt.Errorf("router fetch: status %d", resp.StatusCode)
		}
		telemetry.Warnf("polyrouter: retrying fetch (attempt %d)", attempt)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read router response: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("router fetch: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse router response: %w", err)
	}
	return parsed.Listings, nil
}

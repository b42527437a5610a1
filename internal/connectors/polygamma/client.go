// Package polygamma discovers and quotes venue-A markets via its public
// Gamma-style listings API.
package polygamma

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/connectors/shared"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
	"github.com/charleschow/mispricing-detector/internal/venueauth"
)

// gammaMarket is the JSON shape of one listing as the Gamma API returns it.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
	EndDate       string `json:"endDate"`
	Outcomes      string `json:"outcomes"`      // JSON-encoded array, e.g. `["Yes","No"]`
	OutcomePrices string `json:"outcomePrices"` // JSON-encoded array of string prices
	ClobTokenIds  string `json:"clobTokenIds"`  // JSON-encoded array of token ids
	BestBid       float64 `json:"bestBid"`
	BestAsk       float64 `json:"bestAsk"`
	Series        string  `json:"seriesSlug"`
}

const (
	pageSize = 100
	maxPages = 50
)

// Client polls the listings endpoint and caches results briefly so repeated
// discovery cycles within the cache TTL don't hammer the venue.
type Client struct {
	http      *resty.Client
	signer    *venueauth.APIKeySigner
	cacheTTL  time.Duration
	lastFetch time.Time
	cached    []canonical.VenueMarket
	cachedRaw []gammaMarket

	// sf coalesces concurrent force-refresh calls (HTTP handler triggering
	// a manual refresh while the discovery loop is mid-cycle) into one
	// underlying fetch instead of hammering the venue twice at once.
	sf singleflight.Group
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(time.Second),
		signer:   venueauth.NewAPIKeySigner(apiKey),
		cacheTTL: 30 * time.Second,
	}
}

func (c *Client) Name() string { return "venue_a_direct" }

// DiscoverMarkets fetches all active listings, classifies them, and runs
// them through the shared filter pipeline. force bypasses the cache.
func (c *Client) DiscoverMarkets(ctx context.Context, force bool) ([]canonical.VenueMarket, error) {
	if !force && time.Since(c.lastFetch) < c.cacheTTL && c.cached != nil {
		return c.cached, nil
	}

	v, err, _ := c.sf.Do("fetch", func() (any, error) { return c.fetchAll(ctx) })
	if err != nil {
		return nil, err
	}
	raw := v.([]gammaMarket)

	var markets []canonical.VenueMarket
	for _, gm := range raw {
		if !gm.Active || gm.Closed {
			continue
		}
		outcomes := decodeJSONArray(gm.Outcomes)
		outcomes, marketType := shared.ClassifyOutcomes(outcomes)

		sport := canonical.DetectSport(gm.Series)
		m := canonical.BuildMarket(canonical.VenueA, gm.ID, gm.Question, "", sport, gm.Series, gm.EndDate, outcomes)
		m.MarketType = marketType
		markets = append(markets, m)
	}

	markets = shared.FilterScope(markets, nil)

	c.cached = markets
	c.cachedRaw = raw
	c.lastFetch = time.Now()
	return markets, nil
}

// defaultDepth approximates visible size when the listings endpoint doesn't
// expose order-book depth directly (the separate CLOB book endpoint does,
// but isn't wired here).
const defaultDepth = 100.0

// TopOfBook returns the cached best-bid/best-ask for a market's YES
// outcome. The NO side is derived conservatively by the signaler from YES
// when not directly quoted.
func (c *Client) TopOfBook(marketID string) (bid, ask, bidSize, askSize float64, ok bool) {
	for _, gm := range c.cachedRaw {
		if gm.ID == marketID {
			return shared.CoercePrice(gm.BestBid), shared.CoercePrice(gm.BestAsk), defaultDepth, defaultDepth, true
		}
	}
	return 0, 0, 0, 0, false
}

func (c *Client) fetchAll(ctx context.Context) ([]gammaMarket, error) {
	var all []gammaMarket
	offset := 0
	pages := 0

	for attempt := 0; ; {
		var page []gammaMarket
		req := c.http.R().SetContext(ctx).SetQueryParams(map[string]string{
			"limit":  strconv.Itoa(pageSize),
			"offset": strconv.Itoa(offset),
			"active": "true",
			"closed": "false",
		}).SetResult(&page)
		if c.signer.Enabled() {
			req.SetHeader("Authorization", "Bearer "+c.signer.Key())
		}

		resp, err := req.Get("/markets")
		if err != nil || resp.StatusCode() >= 500 || resp.StatusCode() == 429 {
			attempt++
			if attempt >= 4 {
				return nil, fmt.Errorf("fetch venue A markets page %d: exhausted retries: %v", offset, err)
			}
			wait := time.Duration(attempt) * time.Second
			telemetry.Warnf("polygamma: retrying page %d in %s (attempt %d)", offset, wait, attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("fetch venue A markets: status %d", resp.StatusCode())
		}

		all = append(all, page...)
		attempt = 0
		pages++
		if len(page) < pageSize || pages >= maxPages {
			break
		}
		offset += pageSize
	}

	return all, nil
}

func decodeJSONArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

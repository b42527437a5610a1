// Package kalshirest discovers and quotes venue-B markets via its signed
// REST trade API.
package kalshirest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/connectors/shared"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
	"github.com/charleschow/mispricing-detector/internal/venueauth"
)

// market is the JSON shape of one listing as the venue's markets endpoint
// returns it.
type market struct {
	Ticker                 string  `json:"ticker"`
	EventTicker            string  `json:"event_ticker"`
	Title                  string  `json:"title"`
	Subtitle               string  `json:"subtitle"`
	YesSubTitle            string  `json:"yes_sub_title"`
	Status                 string  `json:"status"`
	CloseTime              string  `json:"close_time"`
	ExpectedExpirationTime string  `json:"expected_expiration_time"`
	YesBid                 int     `json:"yes_bid"` // cents
	YesAsk                 int     `json:"yes_ask"`
	NoBid                  int     `json:"no_bid"`
	NoAsk                  int     `json:"no_ask"`
}

type marketsResponse struct {
	Markets []market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

const maxPages = 50

// Client polls one or more series tickers and caches the union of their
// open markets.
type Client struct {
	http    *http.Client
	baseURL string
	signer  *venueauth.RSASigner
	readLim *rate.Limiter

	series   []string
	cacheTTL time.Duration

	lastFetch time.Time
	cached    []canonical.VenueMarket
	cachedRaw []market
}

func New(baseURL string, signer *venueauth.RSASigner, series []string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		signer:   signer,
		readLim:  rate.NewLimiter(rate.Limit(20), 20),
		series:   series,
		cacheTTL: 30 * time.Second,
	}
}

func (c *Client) Name() string { return "venue_b_direct" }

func (c *Client) DiscoverMarkets(ctx context.Context, force bool) ([]canonical.VenueMarket, error) {
	if !force && time.Since(c.lastFetch) < c.cacheTTL && c.cached != nil {
		return c.cached, nil
	}

	var rawAll []market
	for _, series := range c.series {
		ms, err := c.fetchSeries(ctx, series)
		if err != nil {
			telemetry.Warnf("kalshirest: fetch series %s: %v", series, err)
			continue
		}
		rawAll = append(rawAll, ms...)
	}

	var markets []canonical.VenueMarket
	for _, m := range rawAll {
		if m.Status != "active" && m.Status != "open" {
			continue
		}
		outcomes := []string{"Yes", "No"}
		sport := canonical.DetectSport(m.EventTicker)
		startRaw := firstNonEmpty(m.ExpectedExpirationTime, m.CloseTime)
		vm := canonical.BuildMarket(canonical.VenueB, m.Ticker, m.Title, m.Subtitle, sport, m.EventTicker, startRaw, outcomes)
		markets = append(markets, vm)
	}
	markets = shared.FilterScope(markets, nil)

	c.cached = markets
	c.cachedRaw = rawAll
	c.lastFetch = time.Now()
	return markets, nil
}

const defaultDepth = 100.0

// TopOfBook returns the cached best-bid/best-ask for a market's YES
// outcome, converting cents to [0,1] probabilities.
func (c *Client) TopOfBook(marketID string) (bid, ask, bidSize, askSize float64, ok bool) {
	for _, m := range c.cachedRaw {
		if m.Ticker == marketID {
			return shared.CoercePrice(float64(m.YesBid)), shared.CoercePrice(float64(m.YesAsk)), defaultDepth, defaultDepth, true
		}
	}
	return 0, 0, 0, 0, false
}

func (c *Client) fetchSeries(ctx context.Context, series string) ([]market, error) {
	var all []market
	cursor := ""
	seen := map[string]bool{}

	for page := 0; page < maxPages; page++ {
		resp, err := c.get(ctx, fmt.Sprintf("/trade-api/v2/markets?series_ticker=%s&cursor=%s", series, cursor))
		if err != nil {
			return nil, err
		}

		var parsed marketsResponse
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("parse markets response: %w", err)
		}

		all = append(all, parsed.Markets...)
		if parsed.Cursor == "" || seen[parsed.Cursor] {
			break
		}
		seen[parsed.Cursor] = true
		cursor = parsed.Cursor
	}

	return all, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.readLim.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if err := c.signer.SignRequest(req); err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= 4 {
				return nil, fmt.Errorf("http do: %w", err)
			}
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode == 429 && attempt < 4 {
			time.Sleep(time.Duration(attempt) * time.Second)
			continue
		}
		if resp.StatusCode != 200 {
			if attempt < 4 {
				time.Sleep(time.Duration(attempt) * time.Second)
				continue
			}
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

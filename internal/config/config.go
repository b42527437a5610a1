package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the detector reads from its environment.
// Values mirror the constants and knobs named throughout SPEC_FULL.md.
type Config struct {
	// Storage
	StorePath string

	// Venue A (continuous order book, Gamma-style)
	VenueAMode    string // "direct" or "router"
	VenueABaseURL string
	VenueAAPIKey  string

	// Venue B (ticker market, Kalshi-style)
	VenueBMode    string // "demo" or "prod"
	VenueBBaseURL string
	VenueBWSURL   string
	VenueBKeyID   string
	VenueBKeyFile string // path to RSA PEM private key

	// Unified router (optional aggregator in front of both venues)
	RouterEnabled     bool
	RouterBaseURL     string
	RouterAPIKey      string
	RouterReqPerMin   int
	RouterMaxPageSize int

	// Resolver
	OverridesPath       string
	AutoThreshold       float64
	ReviewThreshold     float64
	ResolveWindowHours  float64
	MinSecondsToStart   int

	// Pricing
	MinEdgeAfterCosts float64
	SlippageK         float64
	MaxNotionalUSD    float64
	DepthMultiplier   float64
	FeeBpsVenueA      int
	FeeBpsVenueB      int

	// Scheduler intervals
	DiscoveryIntervalSec   int
	SignalIntervalSec      int
	WSBroadcastIntervalSec int
	DemoMarketsEnabled     bool
	SportsEnabled          []string

	// Fanout / HTTP surface
	HTTPAddr    string
	WSPingSec   int

	// Rate limiting
	RateDivisor int

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	venueBMode := envStr("VENUE_B_MODE", "prod")

	var keyID, keyFile, baseURL, wsURL string
	if venueBMode == "prod" {
		keyID = envStr("VENUE_B_PROD_KEYID", "")
		keyFile = envStr("VENUE_B_PROD_KEYFILE", "")
		baseURL = envStr("VENUE_B_BASE_URL", "https://api.elections.kalshi.com")
		wsURL = envStr("VENUE_B_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2")
	} else {
		keyID = envStr("VENUE_B_DEMO_KEYID", "")
		keyFile = envStr("VENUE_B_DEMO_KEYFILE", "")
		baseURL = envStr("VENUE_B_BASE_URL", "https://demo-api.kalshi.co")
		wsURL = envStr("VENUE_B_WS_URL", "wss://demo-api.kalshi.co/trade-api/ws/v2")
	}

	return &Config{
		StorePath: envStr("STORE_PATH", "data/detector.db"),

		VenueAMode:    envStr("VENUE_A_MODE", "direct"),
		VenueABaseURL: envStr("VENUE_A_BASE_URL", "https://gamma-api.polymarket.com"),
		VenueAAPIKey:  envStr("VENUE_A_API_KEY", ""),

		VenueBMode:    venueBMode,
		VenueBBaseURL: baseURL,
		VenueBWSURL:   wsURL,
		VenueBKeyID:   keyID,
		VenueBKeyFile: keyFile,

		RouterEnabled:     envStr("ROUTER_ENABLED", "false") == "true",
		RouterBaseURL:     envStr("ROUTER_BASE_URL", ""),
		RouterAPIKey:      envStr("ROUTER_API_KEY", ""),
		RouterReqPerMin:   envInt("ROUTER_REQ_PER_MIN", 60),
		RouterMaxPageSize: envInt("ROUTER_MAX_PAGE_SIZE", 200),

		OverridesPath:      envStr("OVERRIDES_PATH", "internal/resolver/overrides.yaml"),
		AutoThreshold:      envFloat("RESOLVE_AUTO_THRESHOLD", 0.86),
		ReviewThreshold:    envFloat("RESOLVE_REVIEW_THRESHOLD", 0.80),
		ResolveWindowHours: envFloat("RESOLVE_WINDOW_HOURS", 6.0),
		MinSecondsToStart:  envInt("MIN_SECONDS_TO_START", 60),

		MinEdgeAfterCosts: envFloat("MIN_EDGE", 0.008),
		SlippageK:         envFloat("SLIPPAGE_K", 0.20),
		MaxNotionalUSD:    envFloat("MAX_NOTIONAL_USD", 250.0),
		DepthMultiplier:   envFloat("DEPTH_MULTIPLIER", 1.5),
		FeeBpsVenueA:      envInt("FEE_BPS_VENUE_A", 40),
		FeeBpsVenueB:      envInt("FEE_BPS_VENUE_B", 35),

		DiscoveryIntervalSec:   envInt("DISCOVERY_INTERVAL_SEC", 60),
		SignalIntervalSec:      envInt("SIGNAL_INTERVAL_SEC", 5),
		WSBroadcastIntervalSec: envInt("WS_BROADCAST_INTERVAL_SEC", 2),
		DemoMarketsEnabled:     envStr("DEMO_MARKETS_ENABLED", "false") == "true",
		SportsEnabled:          envList("SPORTS_ENABLED", []string{"NBA", "NFL", "SOCCER"}),

		HTTPAddr:  envStr("HTTP_ADDR", ":8080"),
		WSPingSec: envInt("WS_PING_SEC", 20),

		RateDivisor: envInt("RATE_DIVISOR", 1),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// DiscoveryInterval, SignalInterval, WSBroadcastInterval return the
// configured intervals as time.Duration for use by the scheduler.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.DiscoveryIntervalSec) * time.Second
}

func (c *Config) SignalInterval() time.Duration {
	return time.Duration(c.SignalIntervalSec) * time.Second
}

func (c *Config) WSBroadcastInterval() time.Duration {
	return time.Duration(c.WSBroadcastIntervalSec) * time.Second
}

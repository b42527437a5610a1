// Package canonical normalizes venue-specific market listings into a
// shared event/market vocabulary that the resolver, store, and pricing
// layers operate on.
package canonical

import "time"

// Sport is a tagged string enum, persisted as its string form.
type Sport string

const (
	SportNBA        Sport = "NBA"
	SportNFL        Sport = "NFL"
	SportNHL        Sport = "NHL"
	SportMLB        Sport = "MLB"
	SportSoccer     Sport = "SOCCER"
	SportUnknown    Sport = "UNKNOWN"
)

// Competition identifies the league/competition within a sport.
type Competition string

const (
	CompetitionNBA        Competition = "NBA"
	CompetitionNFL        Competition = "NFL"
	CompetitionNHL        Competition = "NHL"
	CompetitionMLB        Competition = "MLB"
	CompetitionEPL        Competition = "EPL"
	CompetitionUCL        Competition = "UCL"
	CompetitionUEL        Competition = "UEL"
	CompetitionLaLiga     Competition = "LALIGA"
	CompetitionUnknown    Competition = "UNKNOWN"
)

// Venue identifies which exchange a market was listed on.
type Venue string

const (
	VenueA Venue = "POLY"   // continuous order book, token-denominated
	VenueB Venue = "KALSHI" // ticker market, binary/event-contract denominated
)

// MarketType classifies a market by its outcome shape.
type MarketType string

const (
	MarketWinnerBinary MarketType = "WINNER_BINARY"
	MarketWinner3Way   MarketType = "WINNER_3WAY"
	MarketOther        MarketType = "OTHER"
)

// BindingStatus is the resolver's disposition for a candidate match.
type BindingStatus string

const (
	BindingAuto     BindingStatus = "AUTO"
	BindingOverride BindingStatus = "OVERRIDE"
	BindingReview   BindingStatus = "REVIEW"
	BindingRejected BindingStatus = "REJECTED"
)

// VenueMarket is a single listing as reported by a connector, before
// resolution into a CanonicalEvent. Prices are probabilities in [0,1];
// connectors are responsible for dividing integer-cent inputs by 100.
type VenueMarket struct {
	Venue        Venue
	MarketID     string // venue-native identifier (token id, ticker, etc.)
	Title        string
	Subtitle     string
	Sport        Sport
	Competition  Competition
	HomeTeam     string
	AwayTeam     string
	StartTimeUTC time.Time
	MarketType   MarketType
	Outcomes     []string // e.g. ["Yes", "No"] or three-way team/draw labels
	RawPayload   map[string]any
}

// CanonicalEvent is the cross-venue event both markets get bound to.
type CanonicalEvent struct {
	ID           string // deterministic UUIDv5
	Sport        Sport
	Competition  Competition
	HomeTeam     string
	AwayTeam     string
	StartTimeUTC time.Time
	CreatedAt    time.Time
}

// MarketBinding links one venue market to a canonical event.
type MarketBinding struct {
	ID               int64
	CanonicalEventID string
	Venue            Venue
	MarketID         string
	MarketType       MarketType
	Status           BindingStatus
	Score            float64
	TeamScore        float64
	TimeScore        float64
	TitleScore       float64
	ResolvedAt       time.Time
}

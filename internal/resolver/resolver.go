// Package resolver pairs venue markets into canonical events and decides
// whether the pairing is strong enough to trade on automatically.
package resolver

import (
	"math"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
)

// Config controls the scoring thresholds and resolution window.
type Config struct {
	AutoThreshold      float64 // score >= this: BindingAuto
	ReviewThreshold    float64 // score >= this: BindingReview
	ResolveWindowHours float64 // candidate pairs must start within this many hours of each other
}

// Candidate is a pairing of two venue markets under evaluation.
type Candidate struct {
	A canonical.VenueMarket
	B canonical.VenueMarket
}

// Decision is the scored outcome of evaluating one candidate pair.
type Decision struct {
	Status     canonical.BindingStatus
	Score      float64
	TeamScore  float64
	TimeScore  float64
	TitleScore float64
	Reason     string
}

// Resolve scores a candidate pair and assigns it a BindingStatus following
// the decision ladder: manual override first, then reject non-binary or
// mismatched market types to REVIEW, then an orientation flip (teams
// swapped home/away across venues) to REVIEW, then a missing start time to
// REVIEW, and finally the score thresholds (>=Auto -> AUTO, >=Review ->
// REVIEW, else REJECTED).
func Resolve(cfg Config, overrides *Overrides, c Candidate) Decision {
	if overrides != nil {
		if ov, ok := overrides.Lookup(c.A.MarketID, c.B.MarketID); ok {
			return Decision{Status: canonical.BindingOverride, Score: 1.0, Reason: "manual override: " + ov}
		}
	}

	if c.A.MarketType != canonical.MarketWinnerBinary || c.B.MarketType != canonical.MarketWinnerBinary {
		return Decision{Status: canonical.BindingReview, Reason: "non-binary or mismatched market type"}
	}

	teamScore := teamPairScore(c.A, c.B)
	timeScore := timeScore(c.A.StartTimeUTC, c.B.StartTimeUTC, cfg.ResolveWindowHours)
	titleScore := TokenSetSimilarity(c.A.Title, c.B.Title)

	score := 0.5*teamScore + 0.3*timeScore + 0.2*titleScore

	if isOrientationFlip(c.A, c.B) {
		return Decision{Status: canonical.BindingReview, Score: score, TeamScore: teamScore, TimeScore: timeScore, TitleScore: titleScore, Reason: "home/away orientation flipped across venues"}
	}

	if c.A.StartTimeUTC.IsZero() || c.B.StartTimeUTC.IsZero() {
		return Decision{Status: canonical.BindingReview, Score: score, TeamScore: teamScore, TimeScore: timeScore, TitleScore: titleScore, Reason: "missing start time on one side"}
	}

	switch {
	case score >= cfg.AutoThreshold:
		return Decision{Status: canonical.BindingAuto, Score: score, TeamScore: teamScore, TimeScore: timeScore, TitleScore: titleScore}
	case score >= cfg.ReviewThreshold:
		return Decision{Status: canonical.BindingReview, Score: score, TeamScore: teamScore, TimeScore: timeScore, TitleScore: titleScore, Reason: "score below auto threshold"}
	default:
		return Decision{Status: canonical.BindingRejected, Score: score, TeamScore: teamScore, TimeScore: timeScore, TitleScore: titleScore, Reason: "score below review threshold"}
	}
}

// teamPairScore averages the best home match and best away match, trying
// both orientations and keeping whichever is higher (straight pairing or
// swapped), so a home/away swap that is otherwise a clean match still
// scores well on the team dimension alone — the orientation-flip check
// downstream is what actually demotes it to REVIEW.
func teamPairScore(a, b canonical.VenueMarket) float64 {
	straight := (TokenSetSimilarity(a.HomeTeam, b.HomeTeam) + TokenSetSimilarity(a.AwayTeam, b.AwayTeam)) / 2
	swapped := (TokenSetSimilarity(a.HomeTeam, b.AwayTeam) + TokenSetSimilarity(a.AwayTeam, b.HomeTeam)) / 2
	if swapped > straight {
		return swapped
	}
	return straight
}

// isOrientationFlip reports whether the pair's best team alignment is the
// swapped orientation rather than the straight one, beyond a small margin.
func isOrientationFlip(a, b canonical.VenueMarket) bool {
	straight := (TokenSetSimilarity(a.HomeTeam, b.HomeTeam) + TokenSetSimilarity(a.AwayTeam, b.AwayTeam)) / 2
	swapped := (TokenSetSimilarity(a.HomeTeam, b.AwayTeam) + TokenSetSimilarity(a.AwayTeam, b.HomeTeam)) / 2
	return swapped > straight+0.05
}

// timeScore decays linearly from 1.0 (identical start times) to 0.0 at the
// edge of the resolution window, and is 0 past it.
func timeScore(a, b time.Time, windowHours float64) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	diff := math.Abs(a.Sub(b).Hours())
	if windowHours <= 0 {
		windowHours = 6
	}
	if diff >= windowHours {
		return 0
	}
	return 1 - diff/windowHours
}

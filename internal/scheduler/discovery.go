package scheduler

import (
	"context"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/resolver"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// runDiscoveryCycle fetches listings from both venues, resolves pairs into
// canonical events, and persists events/bindings in that order (event
// before binding) so a binding never references a nonexistent event.
func (s *Scheduler) runDiscoveryCycle(ctx context.Context) error {
	marketsA, err := s.connA.DiscoverMarkets(ctx, false)
	if err != nil {
		telemetry.Warnf("scheduler: discovery venue A: %v", err)
	}
	marketsB, err := s.connB.DiscoverMarkets(ctx, false)
	if err != nil {
		telemetry.Warnf("scheduler: discovery venue B: %v", err)
	}

	if s.cfg.DemoMarketsEnabled && len(marketsA) == 0 && len(marketsB) == 0 {
		marketsA, marketsB = demoMarkets()
	}

	marketsA = s.filterEnabledSports(marketsA)
	marketsB = s.filterEnabledSports(marketsB)

	telemetry.Infof("scheduler: discovery cycle venueA=%d venueB=%d", len(marketsA), len(marketsB))

	for _, candidate := range candidatePairs(marketsA, marketsB, s.cfg.ResolveConfig.ResolveWindowHours) {
		decision := resolver.Resolve(s.cfg.ResolveConfig, s.overrides, candidate)
		if decision.Status == canonical.BindingRejected {
			continue
		}

		eventID := canonical.DeterministicEventID(candidate.A.Sport, candidate.A.Competition, candidate.A.StartTimeUTC, candidate.A.HomeTeam, candidate.A.AwayTeam)
		now := time.Now().UTC()

		event := canonical.CanonicalEvent{
			ID: eventID, Sport: candidate.A.Sport, Competition: candidate.A.Competition,
			HomeTeam: candidate.A.HomeTeam, AwayTeam: candidate.A.AwayTeam,
			StartTimeUTC: candidate.A.StartTimeUTC, CreatedAt: now,
		}
		if err := s.st.UpsertCanonicalEvent(ctx, event); err != nil {
			telemetry.Warnf("scheduler: upsert event %s: %v", eventID, err)
			continue
		}

		for _, m := range []canonical.VenueMarket{candidate.A, candidate.B} {
			binding := canonical.MarketBinding{
				CanonicalEventID: eventID, Venue: m.Venue, MarketID: m.MarketID,
				MarketType: m.MarketType, Status: decision.Status, Score: decision.Score,
				TeamScore: decision.TeamScore, TimeScore: decision.TimeScore, TitleScore: decision.TitleScore,
				ResolvedAt: now,
			}
			if err := s.st.UpsertBinding(ctx, binding); err != nil {
				telemetry.Warnf("scheduler: upsert binding %s/%s: %v", m.Venue, m.MarketID, err)
			}
		}
	}

	return nil
}

func (s *Scheduler) filterEnabledSports(markets []canonical.VenueMarket) []canonical.VenueMarket {
	if len(s.cfg.SportsEnabled) == 0 {
		return markets
	}
	out := markets[:0]
	for _, m := range markets {
		if s.cfg.SportsEnabled[m.Sport] {
			out = append(out, m)
		}
	}
	return out
}

// candidatePairs builds the cross-product of venue A and venue B markets
// that share a sport and fall within the resolve window, the candidate set
// the resolver scores. A naive cross-product is fine at this scale: a
// single discovery cycle's listings per venue number in the hundreds, not
// the tens of thousands.
func candidatePairs(marketsA, marketsB []canonical.VenueMarket, windowHours float64) []resolver.Candidate {
	var out []resolver.Candidate
	for _, a := range marketsA {
		for _, b := range marketsB {
			if a.Sport != b.Sport {
				continue
			}
			if a.Sport == canonical.SportSoccer && a.Competition != b.Competition {
				continue
			}
			if !a.StartTimeUTC.IsZero() && !b.StartTimeUTC.IsZero() {
				if absHours(a.StartTimeUTC.Sub(b.StartTimeUTC)) > windowHours {
					continue
				}
			}
			out = append(out, resolver.Candidate{A: a, B: b})
		}
	}
	return out
}

func absHours(d time.Duration) float64 {
	h := d.Hours()
	if h < 0 {
		return -h
	}
	return h
}

// demoMarkets returns a small hardcoded fixture pair so the pipeline can be
// exercised end to end without live venue credentials.
func demoMarkets() ([]canonical.VenueMarket, []canonical.VenueMarket) {
	start := time.Now().Add(2 * time.Hour).UTC()
	a := canonical.BuildMarket(canonical.VenueA, "demo-a-1", "Lakers vs Celtics", "", canonical.SportNBA, "NBA", start.Format(time.RFC3339), []string{"Yes", "No"})
	b := canonical.BuildMarket(canonical.VenueB, "demo-b-1", "Celtics at Lakers", "", canonical.SportNBA, "NBA", start.Format(time.RFC3339), []string{"Yes", "No"})
	return []canonical.VenueMarket{a}, []canonical.VenueMarket{b}
}

package resolver

import (
	"testing"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
)

func testConfig() Config {
	return Config{AutoThreshold: 0.86, ReviewThreshold: 0.80, ResolveWindowHours: 6.0}
}

func market(venue canonical.Venue, id, title, home, away string, start time.Time) canonical.VenueMarket {
	return canonical.VenueMarket{
		Venue:        venue,
		MarketID:     id,
		Title:        title,
		HomeTeam:     home,
		AwayTeam:     away,
		StartTimeUTC: start,
		MarketType:   canonical.MarketWinnerBinary,
	}
}

// Scenario: clean match, same teams, same kickoff -> AUTO.
func TestResolveCleanMatchAuto(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Los Angeles Lakers vs Boston Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.Status != canonical.BindingAuto {
		t.Fatalf("got status=%v score=%v reason=%q", d.Status, d.Score, d.Reason)
	}
}

// Scenario: home/away swapped across venues -> REVIEW even though team
// names individually match well.
func TestResolveOrientationFlipReview(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Celtics vs Lakers", "boston celtics", "los angeles lakers", start)

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.Status != canonical.BindingReview {
		t.Fatalf("got status=%v reason=%q", d.Status, d.Reason)
	}
}

// Scenario: missing start time on one side -> REVIEW regardless of score.
func TestResolveMissingStartTimeReview(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", time.Time{})

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.Status != canonical.BindingReview {
		t.Fatalf("got status=%v reason=%q", d.Status, d.Reason)
	}
}

// Scenario: unrelated teams -> REJECTED.
func TestResolveUnrelatedTeamsRejected(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Warriors vs Nets", "golden state warriors", "brooklyn nets", start)

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.Status != canonical.BindingRejected {
		t.Fatalf("got status=%v score=%v", d.Status, d.Score)
	}
}

func TestResolveManualOverrideWins(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Warriors vs Nets", "golden state warriors", "brooklyn nets", start)

	ov := &Overrides{byKey: map[[2]string]string{{"a1", "b1"}: "manual pairing, title mismatch known"}}

	d := Resolve(testConfig(), ov, Candidate{A: a, B: b})
	if d.Status != canonical.BindingOverride {
		t.Fatalf("got status=%v, want OVERRIDE", d.Status)
	}
}

func TestResolveNonBinaryMarketTypeReview(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b.MarketType = canonical.MarketWinner3Way

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.Status != canonical.BindingReview {
		t.Fatalf("got status=%v, want REVIEW for mismatched market type", d.Status)
	}
}

func TestResolveOutsideWindowScoresZeroTime(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	later := start.Add(12 * time.Hour)
	a := market(canonical.VenueA, "a1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", start)
	b := market(canonical.VenueB, "b1", "Lakers vs Celtics", "los angeles lakers", "boston celtics", later)

	d := Resolve(testConfig(), nil, Candidate{A: a, B: b})
	if d.TimeScore != 0 {
		t.Fatalf("expected TimeScore=0 outside the resolve window, got %v", d.TimeScore)
	}
}

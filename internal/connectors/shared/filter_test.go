package shared

import (
	"testing"

	"github.com/charleschow/mispricing-detector/internal/canonical"
)

func TestIsNoiseCatchesPropMarkets(t *testing.T) {
	cases := []string{
		"Lakers vs Celtics Spread -4.5",
		"Total O/U 221.5",
		"LeBron James Over 27.5 Points",
		"Most Rebounds: Jokic Over 11.5",
		"Will there be a Double-Double for Embiid?",
		"Lakers 1H Winner",
	}
	for _, title := range cases {
		if !IsNoise(title) {
			t.Errorf("IsNoise(%q) = false, want true", title)
		}
	}
}

func TestIsWinnerMarketAcceptsCanonicalPhrasings(t *testing.T) {
	cases := []struct {
		title    string
		outcomes []string
	}{
		{"Lakers vs Celtics Winner?", []string{"Yes", "No"}},
		{"Who will be the NBA Finals winner?", []string{"Lakers", "Celtics"}},
		{"Will this match end in a draw?", []string{"Yes", "No"}},
		{"Will the Lakers win on the road?", []string{"Yes", "No"}},
		{"Will the Lakers win tonight?", []string{"Yes", "No"}},
	}
	for _, tc := range cases {
		if !IsWinnerMarket(tc.title, tc.outcomes) {
			t.Errorf("IsWinnerMarket(%q) = false, want true", tc.title)
		}
	}
}

func TestIsWinnerMarketTwoOutcomeVsPhrasing(t *testing.T) {
	if !IsWinnerMarket("Real Madrid vs Barcelona", []string{"Real Madrid", "Barcelona"}) {
		t.Fatal("expected vs-phrased two-outcome market to qualify")
	}
	if !IsWinnerMarket("Celtics at Lakers", []string{"Celtics", "Lakers"}) {
		t.Fatal("expected at-phrased two-outcome market to qualify")
	}
}

func TestIsWinnerMarketRejectsYesNoAndOverUnderPairs(t *testing.T) {
	if IsWinnerMarket("Will it rain during the Lakers vs Celtics game?", []string{"Yes", "No"}) {
		t.Fatal("expected plain yes/no pair without a winner phrase to be rejected")
	}
	if IsWinnerMarket("Total Points Over/Under vs Line", []string{"Over", "Under"}) {
		t.Fatal("expected over/under pair to be rejected")
	}
}

func TestIsWinnerMarketRejectsUnrelatedProps(t *testing.T) {
	if IsWinnerMarket("LeBron James Assists Leader", []string{"Yes", "No"}) {
		t.Fatal("expected prop market with no winner phrasing to be rejected")
	}
}

func TestClassifyOutcomesRewritesDrawLegToCanonicalLabels(t *testing.T) {
	outcomes, mt := ClassifyOutcomes([]string{"Team A", "Draw", "Team B"})
	if mt != canonical.MarketWinner3Way {
		t.Fatalf("got market type %q", mt)
	}
	want := []string{"HOME", "DRAW", "AWAY"}
	if len(outcomes) != len(want) {
		t.Fatalf("got %v", outcomes)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("got %v, want %v", outcomes, want)
		}
	}
}

func TestClassifyOutcomesBinaryUnchanged(t *testing.T) {
	outcomes, mt := ClassifyOutcomes([]string{"Yes", "No"})
	if mt != canonical.MarketWinnerBinary {
		t.Fatalf("got %q", mt)
	}
	if outcomes[0] != "Yes" || outcomes[1] != "No" {
		t.Fatalf("expected binary outcomes untouched, got %v", outcomes)
	}
}

func TestFilterScopeRejectsUnsupportedSoccerCompetition(t *testing.T) {
	markets := []canonical.VenueMarket{
		{Sport: canonical.SportSoccer, Competition: canonical.CompetitionUnknown, Title: "LA Galaxy vs Seattle Sounders Winner?", Outcomes: []string{"Yes", "No"}},
		{Sport: canonical.SportSoccer, Competition: canonical.CompetitionEPL, Title: "Arsenal vs Chelsea Winner?", Outcomes: []string{"Yes", "No"}},
	}
	out := FilterScope(markets, nil)
	if len(out) != 1 || out[0].Competition != canonical.CompetitionEPL {
		t.Fatalf("got %+v", out)
	}
}

func TestFilterScopeRejectsNBAMarketWithoutNBACompetition(t *testing.T) {
	markets := []canonical.VenueMarket{
		{Sport: canonical.SportNBA, Competition: canonical.CompetitionUnknown, Title: "Lakers vs Celtics Winner?", Outcomes: []string{"Yes", "No"}},
	}
	if out := FilterScope(markets, nil); len(out) != 0 {
		t.Fatalf("expected NBA market without resolved competition to be dropped, got %+v", out)
	}
}

func TestFilterScopeDropsNoiseAndNonWinnerMarkets(t *testing.T) {
	markets := []canonical.VenueMarket{
		{Sport: canonical.SportNBA, Competition: canonical.CompetitionNBA, Title: "Lakers vs Celtics Winner?", Outcomes: []string{"Yes", "No"}},
		{Sport: canonical.SportNBA, Competition: canonical.CompetitionNBA, Title: "Lakers vs Celtics Spread -4.5", Outcomes: []string{"Lakers -4.5", "Celtics +4.5"}},
		{Sport: canonical.SportNBA, Competition: canonical.CompetitionNBA, Title: "Will it rain tonight?", Outcomes: []string{"Yes", "No"}},
	}
	out := FilterScope(markets, nil)
	if len(out) != 1 || out[0].Title != "Lakers vs Celtics Winner?" {
		t.Fatalf("got %+v", out)
	}
}

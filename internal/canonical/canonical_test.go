package canonical

import (
	"testing"
	"time"
)

func TestParseTeamsVsPhrasing(t *testing.T) {
	home, away, ok := ParseTeams("Lakers vs Celtics")
	if !ok || home != "Lakers" || away != "Celtics" {
		t.Fatalf("got (%q, %q, %v)", home, away, ok)
	}
}

func TestParseTeamsAtPhrasingSwapsOrder(t *testing.T) {
	home, away, ok := ParseTeams("Celtics at Lakers")
	if !ok || home != "Lakers" || away != "Celtics" {
		t.Fatalf("got (%q, %q, %v), want home=Lakers away=Celtics", home, away, ok)
	}
}

func TestParseTeamsStripsTrailingNoise(t *testing.T) {
	home, away, ok := ParseTeams("Lakers vs Celtics Winner?")
	if !ok || away != "Celtics" {
		t.Fatalf("expected trailing noise stripped, got away=%q ok=%v", away, ok)
	}
	_ = home
}

func TestParseTeamsEmpty(t *testing.T) {
	if _, _, ok := ParseTeams(""); ok {
		t.Fatal("expected ok=false for empty title")
	}
}

func TestParseTeamsUnrecognizedFormat(t *testing.T) {
	if _, _, ok := ParseTeams("Game of the week"); ok {
		t.Fatal("expected ok=false for a title with no recognizable separator")
	}
}

func TestParseTimeRFC3339(t *testing.T) {
	ts, ok := ParseTime("2026-08-01T19:00:00Z")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if ts.Year() != 2026 || ts.Month() != time.August {
		t.Fatalf("got %v", ts)
	}
}

func TestParseTimeMissing(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatal("expected ok=false for empty string")
	}
	if _, ok := ParseTime("not a time"); ok {
		t.Fatal("expected ok=false for garbage input")
	}
}

func TestDetectSport(t *testing.T) {
	cases := map[string]Sport{
		"nba-lakers-celtics": SportNBA,
		"NFL_GAME":           SportNFL,
		"EPL-MATCHDAY":       SportSoccer,
		"NCAAF-WEEK1":        SportNFL,
		"":                   SportUnknown,
	}
	for in, want := range cases {
		if got := DetectSport(in); got != want {
			t.Errorf("DetectSport(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeterministicEventIDStable(t *testing.T) {
	start := time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC)
	id1 := DeterministicEventID(SportNBA, CompetitionNBA, start, "Los Angeles Lakers", "Boston Celtics")
	id2 := DeterministicEventID(SportNBA, CompetitionNBA, start, "Los Angeles Lakers", "Boston Celtics")
	if id1 != id2 {
		t.Fatalf("expected stable id, got %q vs %q", id1, id2)
	}

	id3 := DeterministicEventID(SportNBA, CompetitionNBA, start, "Boston Celtics", "Los Angeles Lakers")
	if id1 == id3 {
		t.Fatal("expected home/away swap to change the id")
	}
}

func TestCanonicalizeTeamResolvesAlias(t *testing.T) {
	if got := CanonicalizeTeam("LA", SportNBA); got != "los angeles lakers" {
		t.Fatalf("got %q", got)
	}
	if got := CanonicalizeTeam("Spurs", SportSoccer); got != "tottenham hotspur" {
		t.Fatalf("got %q", got)
	}
	if got := CanonicalizeTeam("Spurs", SportNBA); got != "san antonio spurs" {
		t.Fatalf("got %q, alias table should be keyed per sport", got)
	}
}

func TestBuildMarketDerivesBinaryType(t *testing.T) {
	m := BuildMarket(VenueA, "mkt-1", "Lakers vs Celtics", "", SportNBA, "NBA", "2026-08-01T19:00:00Z", []string{"Yes", "No"})
	if m.MarketType != MarketWinnerBinary {
		t.Fatalf("got %q", m.MarketType)
	}
	if m.HomeTeam != "los angeles lakers" || m.AwayTeam != "boston celtics" {
		t.Fatalf("got home=%q away=%q", m.HomeTeam, m.AwayTeam)
	}
	if m.Competition != CompetitionNBA {
		t.Fatalf("expected NBA hint to resolve to CompetitionNBA, got %q", m.Competition)
	}
}

func TestBuildMarketThreeWay(t *testing.T) {
	m := BuildMarket(VenueA, "mkt-2", "Team A vs Team B", "", SportSoccer, "EPL", "", []string{"Home", "Away", "Draw"})
	if m.MarketType != MarketWinner3Way {
		t.Fatalf("got %q", m.MarketType)
	}
	if !m.StartTimeUTC.IsZero() {
		t.Fatal("expected zero start time when startRaw is empty")
	}
	if m.Competition != CompetitionEPL {
		t.Fatalf("expected EPL hint to resolve to CompetitionEPL, got %q", m.Competition)
	}
}

func TestDetectCompetitionExplicitHintWins(t *testing.T) {
	if got := DetectCompetition("ucl", SportSoccer, "anything"); got != CompetitionUCL {
		t.Fatalf("got %q", got)
	}
	if got := DetectCompetition("nba", SportUnknown, "anything"); got != CompetitionNBA {
		t.Fatalf("expected NBA hint to win regardless of detected sport, got %q", got)
	}
}

func TestDetectCompetitionNBASportAlwaysNBA(t *testing.T) {
	if got := DetectCompetition("", SportNBA, "Lakers vs Celtics"); got != CompetitionNBA {
		t.Fatalf("got %q", got)
	}
}

func TestDetectCompetitionSoccerKeywordTable(t *testing.T) {
	cases := []struct {
		text string
		want Competition
	}{
		{"Arsenal vs Chelsea - Premier League Matchday 10", CompetitionEPL},
		{"Real Madrid vs Barcelona - Champions League", CompetitionUCL},
		{"Roma vs Sevilla - Europa League", CompetitionUEL},
		{"Real Madrid vs Barcelona - La Liga", CompetitionLaLiga},
	}
	for _, tc := range cases {
		if got := DetectCompetition("", SportSoccer, tc.text); got != tc.want {
			t.Fatalf("text=%q: got %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDetectCompetitionMLSResolvesUnknown(t *testing.T) {
	if got := DetectCompetition("", SportSoccer, "LA Galaxy vs Seattle Sounders - MLS"); got != CompetitionUnknown {
		t.Fatalf("expected MLS to resolve outside the supported set, got %q", got)
	}
}

func TestDetectCompetitionUnsupportedHintFallsBackToSport(t *testing.T) {
	if got := DetectCompetition("MLS", SportSoccer, "LA Galaxy vs Seattle Sounders"); got != CompetitionUnknown {
		t.Fatalf("expected unsupported hint to fall through rather than be echoed back, got %q", got)
	}
}

func TestDetectCompetitionNonSoccerNonNBAIsUnknown(t *testing.T) {
	if got := DetectCompetition("", SportNFL, "Cowboys at Eagles"); got != CompetitionUnknown {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeTeamContainmentFallback(t *testing.T) {
	if got := CanonicalizeTeam("The Golden State Warriors Game 4", SportNBA); got != "golden state warriors" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeTeamContainmentDoesNotMatchInsideWord(t *testing.T) {
	// "sa" (an NBA alias for the Spurs) must not match the "sa" inside
	// "kansas" once word-tokenized.
	if got := CanonicalizeTeam("Kansas Jayhawks", SportNBA); got == "san antonio spurs" {
		t.Fatalf("expected no false containment match, got %q", got)
	}
}

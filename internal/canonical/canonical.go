package canonical

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var titleSeparators = []string{" vs. ", " vs ", " v ", " @ ", " at "}

// ParseTeams extracts (home, away) from a free-form market title. Connectors
// hand this whatever title field the venue provides; home/away ordering
// follows the convention "Away at Home" / "Home vs Away" depending on which
// separator matched, mirroring how each venue phrases its listings.
func ParseTeams(title string) (home, away string, ok bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", false
	}

	// "TeamA vs TeamB" / "TeamA v TeamB" phrasing: first team listed is home.
	for _, sep := range []string{" vs. ", " vs ", " v "} {
		if idx := strings.Index(strings.ToLower(title), sep); idx >= 0 {
			home = strings.TrimSpace(title[:idx])
			away = strings.TrimSpace(title[idx+len(sep):])
			away = trimTrailingNoise(away)
			if home != "" && away != "" {
				return home, away, true
			}
		}
	}

	// "TeamA @ TeamB" / "TeamA at TeamB": second team listed is home.
	for _, sep := range []string{" @ ", " at "} {
		if idx := strings.Index(strings.ToLower(title), sep); idx >= 0 {
			away = strings.TrimSpace(title[:idx])
			home = strings.TrimSpace(title[idx+len(sep):])
			home = trimTrailingNoise(home)
			if home != "" && away != "" {
				return home, away, true
			}
		}
	}

	// "TeamA - TeamB" fallback.
	if idx := strings.Index(title, " - "); idx >= 0 {
		home = strings.TrimSpace(title[:idx])
		away = trimTrailingNoise(strings.TrimSpace(title[idx+3:]))
		if home != "" && away != "" {
			return home, away, true
		}
	}

	return "", "", false
}

var trailingNoise = regexp.MustCompile(`(?i)\s*(winner\??|to win|moneyline)\s*$`)

func trimTrailingNoise(s string) string {
	s = trailingNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.TrimSuffix(s, "?"))
}

// ParseTime tries a handful of common venue timestamp formats and returns
// the time in UTC. Returns the zero Time and false when nothing matches,
// letting the caller fall back to a REVIEW binding per the missing-time
// invariant.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// CanonicalizeTeam exposes normalizeTeam for callers outside this package
// (the resolver scores against this normalized form, not the raw name).
func CanonicalizeTeam(name string, sport Sport) string {
	return normalizeTeam(name, sport)
}

// DeterministicEventID derives a stable UUID for a (sport, competition,
// start time, home, away) tuple. The digest string (not the raw SHA-1
// bytes) is hashed again as the UUIDv5 "name", matching the upstream
// system's uuid5(NAMESPACE_DNS, hex_digest) derivation exactly so event
// ids stay stable across a reimplementation.
func DeterministicEventID(sport Sport, competition Competition, startUTC time.Time, home, away string) string {
	parts := []string{
		strings.ToLower(string(sport)),
		strings.ToLower(string(competition)),
		startUTC.UTC().Format(time.RFC3339),
		strings.ToLower(home),
		strings.ToLower(away),
	}
	key := strings.Join(parts, "|")

	sum := sha1.Sum([]byte(key))
	digest := hex.EncodeToString(sum[:])

	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(digest)).String()
}

// deriveMarketType classifies a market by its outcomes, per the
// WINNER_BINARY / WINNER_3WAY / OTHER split used throughout the resolver
// and signaler: exactly {yes, no} is WINNER_BINARY, any three outcomes are
// WINNER_3WAY, anything else is OTHER.
func deriveMarketType(outcomes []string) MarketType {
	switch len(outcomes) {
	case 2:
		a, b := strings.ToLower(outcomes[0]), strings.ToLower(outcomes[1])
		if (a == "yes" && b == "no") || (a == "no" && b == "yes") {
			return MarketWinnerBinary
		}
		return MarketOther
	case 3:
		return MarketWinner3Way
	default:
		return MarketOther
	}
}

// BuildMarket assembles a VenueMarket from the raw fields a connector has
// scraped off its venue's listing payload, applying sport/competition
// detection, team parsing, time parsing, and market-type derivation.
// competitionHint is whatever series/category string the venue exposes
// (may be empty); DetectCompetition falls back to scanning title+subtitle
// when the hint alone doesn't resolve to a supported competition.
func BuildMarket(venue Venue, marketID, title, subtitle string, sport Sport, competitionHint, startRaw string, outcomes []string) VenueMarket {
	home, away, ok := ParseTeams(title)
	if !ok && subtitle != "" {
		home, away, ok = ParseTeams(subtitle)
	}
	if ok {
		home = normalizeTeam(home, sport)
		away = normalizeTeam(away, sport)
	}

	start, _ := ParseTime(startRaw)
	competition := DetectCompetition(competitionHint, sport, title+" "+subtitle)

	return VenueMarket{
		Venue:        venue,
		MarketID:     marketID,
		Title:        title,
		Subtitle:     subtitle,
		Sport:        sport,
		Competition:  competition,
		HomeTeam:     home,
		AwayTeam:     away,
		StartTimeUTC: start,
		MarketType:   deriveMarketType(outcomes),
		Outcomes:     outcomes,
	}
}

// DetectSport guesses a Sport from a venue's series/category string. Falls
// back to SportUnknown, which the resolver treats as non-matchable.
func DetectSport(seriesOrCategory string) Sport {
	s := strings.ToUpper(seriesOrCategory)
	switch {
	case strings.Contains(s, "NBA"):
		return SportNBA
	case strings.Contains(s, "NFL") || strings.Contains(s, "NCAAF"):
		return SportNFL
	case strings.Contains(s, "NHL"):
		return SportNHL
	case strings.Contains(s, "MLB"):
		return SportMLB
	case strings.Contains(s, "EPL") || strings.Contains(s, "UCL") ||
		strings.Contains(s, "LALIGA") || strings.Contains(s, "SOCCER") ||
		strings.Contains(s, "FOOTBALL") && !strings.Contains(s, "NFL"):
		return SportSoccer
	default:
		return SportUnknown
	}
}

// supportedCompetitions is the closed set DetectCompetition will ever
// return besides CompetitionNBA/CompetitionUnknown — anything a keyword
// table match or caller hint resolves to outside this set collapses to
// CompetitionUnknown (e.g. MLS: detected as a soccer keyword, but not a
// competition this system trades).
var supportedCompetitions = map[Competition]bool{
	CompetitionEPL:    true,
	CompetitionUCL:    true,
	CompetitionUEL:    true,
	CompetitionLaLiga: true,
}

// DetectCompetition resolves a market's competition. An explicit hint wins
// outright once upper-cased if it names NBA or a supported soccer
// competition. Otherwise NBA-sport markets are always NBA; SOCCER-sport
// markets fall back to token/phrase matching against the same keyword
// table a hint would have to land in; everything else is Unknown.
func DetectCompetition(hint string, sport Sport, text string) Competition {
	if h := Competition(strings.ToUpper(strings.TrimSpace(hint))); h == CompetitionNBA || supportedCompetitions[h] {
		return h
	}

	if sport == SportNBA {
		return CompetitionNBA
	}
	if sport != SportSoccer {
		return CompetitionUnknown
	}

	s := strings.ToUpper(text)
	switch {
	case strings.Contains(s, "CHAMPIONS LEAGUE") || strings.Contains(s, "UCL"):
		return CompetitionUCL
	case strings.Contains(s, "EUROPA LEAGUE") || strings.Contains(s, "UEL"):
		return CompetitionUEL
	case strings.Contains(s, "PREMIER LEAGUE") || strings.Contains(s, "EPL"):
		return CompetitionEPL
	case strings.Contains(s, "PRIMERA DIVISION") || strings.Contains(s, "LA LIGA") || strings.Contains(s, "LALIGA"):
		return CompetitionLaLiga
	default:
		// Covers MLS and anything else not in the supported set.
		return CompetitionUnknown
	}
}

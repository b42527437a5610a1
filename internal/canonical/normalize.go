package canonical

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped from team names before alias lookup so that
// filler tokens don't block a match (e.g. "Arsenal FC" and "The Arsenal"
// both normalize to the key "arsenal").
var stopwords = map[string]bool{
	"the": true, "fc": true, "cf": true, "afc": true, "sc": true,
}

// teamAliases maps a normalized team name to its canonical form, keyed
// per sport since some short names collide across leagues (e.g. "spurs"
// is Tottenham Hotspur in soccer and the San Antonio Spurs in the NBA).
var teamAliases = map[Sport]map[string]string{
	SportNBA: {
		"spurs":   "san antonio spurs",
		"sa":      "san antonio spurs",
		"lakers":  "los angeles lakers",
		"la":      "los angeles lakers",
		"celtics": "boston celtics",
		"warriors": "golden state warriors",
		"gsw":      "golden state warriors",
		"knicks":   "new york knicks",
		"nets":     "brooklyn nets",
		"bucks":    "milwaukee bucks",
		"sixers":   "philadelphia 76ers",
		"76ers":    "philadelphia 76ers",
	},
	SportSoccer: {
		"spurs":      "tottenham hotspur",
		"tottenham":  "tottenham hotspur",
		"man utd":    "manchester united",
		"man u":      "manchester united",
		"man city":   "manchester city",
		"real":       "real madrid",
		"barca":      "barcelona",
		"psg":        "paris saint germain",
		"bayern":     "bayern munich",
		"juve":       "juventus",
		"inter":      "internazionale",
	},
}

// AliasesForSport returns the team alias map for a sport, or an empty map.
func AliasesForSport(sport Sport) map[string]string {
	if m, ok := teamAliases[sport]; ok {
		return m
	}
	return map[string]string{}
}

// normalizeTeam lowercases, strips diacritics and punctuation, drops
// stopwords, collapses whitespace, then resolves through the sport's alias
// table: first an exact-key lookup, then a longest-first whole-word
// containment fallback for names embedded in a longer listing string (e.g.
// a title that still carries "golden state warriors" in full).
func normalizeTeam(s string, sport Sport) string {
	norm := normalizeText(s)
	aliases := AliasesForSport(sport)
	if canon, ok := aliases[norm]; ok {
		return canon
	}
	if canon, ok := aliasContainment(norm, aliases); ok {
		return canon
	}
	return norm
}

// aliasContainment finds the longest alias key that appears as a
// contiguous run of whole words inside s. Matching on word tokens rather
// than raw substrings keeps a short alias like "den" from matching inside
// an unrelated longer word like "golden".
func aliasContainment(s string, aliases map[string]string) (string, bool) {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	words := strings.Fields(s)
	for _, k := range keys {
		if containsWordRun(words, strings.Fields(k)) {
			return aliases[k], true
		}
	}
	return "", false
}

func containsWordRun(words, run []string) bool {
	if len(run) == 0 || len(run) > len(words) {
		return false
	}
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j, w := range run {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// normalizeText applies the shared text-normalization pipeline used for
// both team names and title fuzzy matching.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	s = b.String()

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		kept = fields
	}
	return strings.Join(kept, " ")
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

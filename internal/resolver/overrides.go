package resolver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideEntry pairs a venue-A and venue-B market id with an operator note
// explaining why the pairing was forced (e.g. a known mismatched title that
// the scorer would otherwise reject).
type overrideEntry struct {
	VenueAMarketID string `yaml:"venue_a_market_id"`
	VenueBMarketID string `yaml:"venue_b_market_id"`
	Note           string `yaml:"note"`
}

type overridesFile struct {
	Overrides []overrideEntry `yaml:"overrides"`
}

// Overrides is a manual-pairing allowlist keyed by (venue A id, venue B id).
type Overrides struct {
	byKey map[[2]string]string
}

// LoadOverrides reads a YAML file of manual bindings. A missing file is not
// an error: it just means no overrides are configured.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Overrides{byKey: map[[2]string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}

	byKey := make(map[[2]string]string, len(f.Overrides))
	for _, e := range f.Overrides {
		byKey[[2]string{e.VenueAMarketID, e.VenueBMarketID}] = e.Note
	}
	return &Overrides{byKey: byKey}, nil
}

// Lookup reports whether (aMarketID, bMarketID) has a manual override, and
// the operator note attached to it.
func (o *Overrides) Lookup(aMarketID, bMarketID string) (string, bool) {
	if o == nil {
		return "", false
	}
	note, ok := o.byKey[[2]string{aMarketID, bMarketID}]
	return note, ok
}

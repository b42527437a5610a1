package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
)

// GetCanonicalEvent fetches one canonical event by its deterministic id.
func (s *Store) GetCanonicalEvent(ctx context.Context, id string) (canonical.CanonicalEvent, bool, error) {
	var e canonical.CanonicalEvent
	var sport, competition, startTime, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sport, competition, home_team, away_team, start_time, created_at
		FROM canonical_events WHERE id=?`, id).Scan(
		&e.ID, &sport, &competition, &e.HomeTeam, &e.AwayTeam, &startTime, &createdAt)
	if err == sql.ErrNoRows {
		return canonical.CanonicalEvent{}, false, nil
	}
	if err != nil {
		return canonical.CanonicalEvent{}, false, err
	}
	e.Sport = canonical.Sport(sport)
	e.Competition = canonical.Competition(competition)
	e.StartTimeUTC, _ = time.Parse(time.RFC3339, startTime)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, true, nil
}

package store

import (
	"context"
	"time"

	"github.com/charleschow/mispricing-detector/internal/canonical"
)

// ListCanonicalEvents returns every known canonical event, most recent
// first, for the listings surface.
func (s *Store) ListCanonicalEvents(ctx context.Context, limit int) ([]canonical.CanonicalEvent, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sport, competition, home_team, away_team, start_time, created_at
		FROM canonical_events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.CanonicalEvent
	for rows.Next() {
		var e canonical.CanonicalEvent
		var sport, competition, startTime, createdAt string
		if err := rows.Scan(&e.ID, &sport, &competition, &e.HomeTeam, &e.AwayTeam, &startTime, &createdAt); err != nil {
			return nil, err
		}
		e.Sport = canonical.Sport(sport)
		e.Competition = canonical.Competition(competition)
		e.StartTimeUTC, _ = time.Parse(time.RFC3339, startTime)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListBindings returns every market binding, optionally filtered by
// status ("" means all statuses).
func (s *Store) ListBindings(ctx context.Context, status string, limit int) ([]canonical.MarketBinding, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT canonical_event_id, venue, market_id, market_type, status, score, team_score, time_score, title_score, resolved_at
		FROM market_bindings`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY resolved_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []canonical.MarketBinding
	for rows.Next() {
		var b canonical.MarketBinding
		var venue, mtype, bstatus, resolvedAt string
		if err := rows.Scan(&b.CanonicalEventID, &venue, &b.MarketID, &mtype, &bstatus, &b.Score, &b.TeamScore, &b.TimeScore, &b.TitleScore, &resolvedAt); err != nil {
			return nil, err
		}
		b.Venue = canonical.Venue(venue)
		b.MarketType = canonical.MarketType(mtype)
		b.Status = canonical.BindingStatus(bstatus)
		b.ResolvedAt, _ = time.Parse(time.RFC3339, resolvedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetBindingStatus overrides a binding's status (used by the manual
// approve and reject HTTP endpoints; approve sets OVERRIDE). Score fields are left as the
// resolver last computed them; only the disposition changes.
func (s *Store) SetBindingStatus(ctx context.Context, venue canonical.Venue, marketID string, status canonical.BindingStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE market_bindings SET status=?, resolved_at=? WHERE venue=? AND market_id=?`,
		string(status), time.Now().UTC().Format(time.RFC3339), string(venue), marketID)
	return err
}

// OrderBookEntry is one row of the orderbook listing surface.
type OrderBookEntry struct {
	Venue    canonical.Venue
	MarketID string
	Outcome  string
	OrderBookRow
}

// ListOrderBookTops returns every cached top-of-book row, optionally
// filtered to one venue ("" means both).
func (s *Store) ListOrderBookTops(ctx context.Context, venue string, limit int) ([]OrderBookEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT venue, market_id, outcome, bid, ask, bid_size, ask_size, updated_at FROM orderbook_tops`
	args := []any{}
	if venue != "" {
		query += ` WHERE venue = ?`
		args = append(args, venue)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderBookEntry
	for rows.Next() {
		var e OrderBookEntry
		var venueStr, updatedAt string
		if err := rows.Scan(&venueStr, &e.MarketID, &e.Outcome, &e.Bid, &e.Ask, &e.BidSize, &e.AskSize, &updatedAt); err != nil {
			return nil, err
		}
		e.Venue = canonical.Venue(venueStr)
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

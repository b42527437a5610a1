// Package store persists canonical events, market bindings, order-book
// snapshots, signals, and paper-trading state in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// Store wraps a single-connection SQLite handle. SQLite serializes writers
// regardless of Go-level connection pooling, so the pool is pinned to one
// connection rather than fighting that constraint.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
		telemetry.Warnf("store: set auto_vacuum failed: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	telemetry.Infof("store: opened %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers that need direct access.
func (s *Store) DB() *sql.DB { return s.db }

const schema = `
CREATE TABLE IF NOT EXISTS canonical_events (
	id            TEXT PRIMARY KEY,
	sport         TEXT NOT NULL,
	competition   TEXT NOT NULL,
	home_team     TEXT NOT NULL,
	away_team     TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS market_bindings (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	canonical_event_id TEXT NOT NULL,
	venue              TEXT NOT NULL,
	market_id          TEXT NOT NULL,
	market_type        TEXT NOT NULL,
	status             TEXT NOT NULL,
	score              REAL NOT NULL DEFAULT 0,
	team_score         REAL NOT NULL DEFAULT 0,
	time_score         REAL NOT NULL DEFAULT 0,
	title_score        REAL NOT NULL DEFAULT 0,
	resolved_at        TEXT NOT NULL,
	UNIQUE(venue, market_id)
);

CREATE TABLE IF NOT EXISTS orderbook_tops (
	venue      TEXT NOT NULL,
	market_id  TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	bid        REAL NOT NULL,
	ask        REAL NOT NULL,
	bid_size   REAL NOT NULL,
	ask_size   REAL NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (venue, market_id, outcome)
);

CREATE TABLE IF NOT EXISTS mispricing_signals (
	id                  TEXT PRIMARY KEY,
	canonical_event_id  TEXT NOT NULL,
	outcome             TEXT NOT NULL,
	buy_venue           TEXT NOT NULL,
	sell_venue          TEXT NOT NULL,
	buy_market_id       TEXT NOT NULL,
	sell_market_id      TEXT NOT NULL,
	edge_raw            REAL NOT NULL,
	fees                REAL NOT NULL,
	slippage            REAL NOT NULL,
	edge_after_costs    REAL NOT NULL,
	suggested_size      REAL NOT NULL,
	buy_price           REAL NOT NULL DEFAULT 0,
	sell_price          REAL NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	cleared_at          TEXT,
	UNIQUE(canonical_event_id, outcome, buy_venue, sell_venue)
);

CREATE TABLE IF NOT EXISTS paper_positions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	signal_id      TEXT NOT NULL,
	size           REAL NOT NULL,
	buy_fill_price REAL NOT NULL,
	sell_fill_price REAL NOT NULL,
	fill_ratio     REAL NOT NULL DEFAULT 1,
	status         TEXT NOT NULL,
	opened_at      TEXT NOT NULL,
	closed_at      TEXT,
	realized_pnl   REAL NOT NULL DEFAULT 0,
	unrealized_pnl REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS paper_fills (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	position_id    INTEGER NOT NULL,
	venue          TEXT NOT NULL,
	side           TEXT NOT NULL,
	limit_price    REAL NOT NULL,
	price          REAL NOT NULL,
	requested_size REAL NOT NULL,
	size           REAL NOT NULL,
	probability    REAL NOT NULL,
	filled_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at        TEXT NOT NULL,
	open_positions  INTEGER NOT NULL,
	realized_pnl    REAL NOT NULL,
	unrealized_pnl  REAL NOT NULL
);
`

// UpsertCanonicalEvent inserts or replaces a canonical event's identifying
// fields. Events are immutable once created except for being overwritten by
// the same deterministic id, so a plain upsert is sufficient.
func (s *Store) UpsertCanonicalEvent(ctx context.Context, e canonical.CanonicalEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canonical_events (id, sport, competition, home_team, away_team, start_time, created_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			sport=excluded.sport, competition=excluded.competition,
			home_team=excluded.home_team, away_team=excluded.away_team,
			start_time=excluded.start_time`,
		e.ID, string(e.Sport), string(e.Competition), e.HomeTeam, e.AwayTeam,
		e.StartTimeUTC.UTC().Format(time.RFC3339), e.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// UpsertBinding writes a resolver decision for a (venue, market_id) pair,
// replacing any prior binding for that market.
func (s *Store) UpsertBinding(ctx context.Context, b canonical.MarketBinding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_bindings (canonical_event_id, venue, market_id, market_type, status, score, team_score, time_score, title_score, resolved_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(venue, market_id) DO UPDATE SET
			canonical_event_id=excluded.canonical_event_id,
			market_type=excluded.market_type, status=excluded.status,
			score=excluded.score, team_score=excluded.team_score,
			time_score=excluded.time_score, title_score=excluded.title_score,
			resolved_at=excluded.resolved_at`,
		b.CanonicalEventID, string(b.Venue), b.MarketID, string(b.MarketType), string(b.Status),
		b.Score, b.TeamScore, b.TimeScore, b.TitleScore, b.ResolvedAt.UTC().Format(time.RFC3339))
	return err
}

// BoundPair is a pair of bindings (venue A + venue B) for the same event,
// the unit the signaler evaluates.
type BoundPair struct {
	EventID string
	A, B    canonical.MarketBinding
}

// BoundPairs returns every canonical event with at least one AUTO/OVERRIDE
// WINNER_BINARY binding on each venue. Where an event has several such
// bindings on one venue, one of them is used; which one is not defined.
func (s *Store) BoundPairs(ctx context.Context) ([]BoundPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_event_id, venue, market_id, market_type, status, score, team_score, time_score, title_score, resolved_at
		FROM market_bindings
		WHERE status IN ('AUTO','OVERRIDE') AND market_type = 'WINNER_BINARY'
		ORDER BY canonical_event_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byEvent := map[string][]canonical.MarketBinding{}
	for rows.Next() {
		var b canonical.MarketBinding
		var venue, status, mtype, resolvedAt string
		if err := rows.Scan(&b.CanonicalEventID, &venue, &b.MarketID, &mtype, &status, &b.Score, &b.TeamScore, &b.TimeScore, &b.TitleScore, &resolvedAt); err != nil {
			return nil, err
		}
		b.Venue = canonical.Venue(venue)
		b.Status = canonical.BindingStatus(status)
		b.MarketType = canonical.MarketType(mtype)
		b.ResolvedAt, _ = time.Parse(time.RFC3339, resolvedAt)
		byEvent[b.CanonicalEventID] = append(byEvent[b.CanonicalEventID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []BoundPair
	for eventID, bindings := range byEvent {
		var a, b *canonical.MarketBinding
		for i := range bindings {
			switch bindings[i].Venue {
			case canonical.VenueA:
				a = &bindings[i]
			case canonical.VenueB:
				b = &bindings[i]
			}
		}
		if a != nil && b != nil {
			out = append(out, BoundPair{EventID: eventID, A: *a, B: *b})
		}
	}
	return out, nil
}

// UpsertOrderBookTop writes the latest top-of-book quote for
// (venue, market, outcome).
func (s *Store) UpsertOrderBookTop(ctx context.Context, venue canonical.Venue, marketID, outcome string, bid, ask, bidSize, askSize float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orderbook_tops (venue, market_id, outcome, bid, ask, bid_size, ask_size, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(venue, market_id, outcome) DO UPDATE SET
			bid=excluded.bid, ask=excluded.ask,
			bid_size=excluded.bid_size, ask_size=excluded.ask_size,
			updated_at=excluded.updated_at`,
		string(venue), marketID, outcome, bid, ask, bidSize, askSize, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// OrderBookRow is a stored top-of-book quote.
type OrderBookRow struct {
	Bid, Ask, BidSize, AskSize float64
	UpdatedAt                  time.Time
}

func (s *Store) GetOrderBookTop(ctx context.Context, venue canonical.Venue, marketID, outcome string) (OrderBookRow, bool, error) {
	var row OrderBookRow
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT bid, ask, bid_size, ask_size, updated_at FROM orderbook_tops
		WHERE venue=? AND market_id=? AND outcome=?`,
		string(venue), marketID, outcome).Scan(&row.Bid, &row.Ask, &row.BidSize, &row.AskSize, &updatedAt)
	if err == sql.ErrNoRows {
		return OrderBookRow{}, false, nil
	}
	if err != nil {
		return OrderBookRow{}, false, err
	}
	row.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return row, true, nil
}

package store

import (
	"context"
	"database/sql"
	"time"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position mirrors the paper_positions table.
type Position struct {
	ID            int64
	SignalID      string
	Size          float64
	BuyFillPrice  float64
	SellFillPrice float64
	FillRatio     float64
	Status        PositionStatus
	OpenedAt      time.Time
	ClosedAt      *time.Time
	RealizedPnL   float64
	UnrealizedPnL float64
}

// Fill mirrors the paper_fills table. LimitPrice is the resting order price
// the leg was simulated against; Price is the price it actually filled at.
// RequestedSize is what was asked for, Size what actually filled (≤
// RequestedSize for a partial or missed fill); Probability is the fill
// model's probability of this leg filling at all.
type Fill struct {
	ID            int64
	PositionID    int64
	Venue         string
	Side          string // "buy" or "sell"
	LimitPrice    float64
	Price         float64
	RequestedSize float64
	Size          float64
	Probability   float64
	FilledAt      time.Time
}

// InsertPosition records a new paper position and its two fills
// (buy leg + sell leg) atomically.
func (s *Store) InsertPosition(ctx context.Context, p Position, fills []Fill) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO paper_positions (signal_id, size, buy_fill_price, sell_fill_price, fill_ratio, status, opened_at, realized_pnl, unrealized_pnl)
		VALUES (?,?,?,?,?,?,?,0,0)`,
		p.SignalID, p.Size, p.BuyFillPrice, p.SellFillPrice, p.FillRatio, string(PositionOpen), p.OpenedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, f := range fills {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO paper_fills (position_id, venue, side, limit_price, price, requested_size, size, probability, filled_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			id, f.Venue, f.Side, f.LimitPrice, f.Price, f.RequestedSize, f.Size, f.Probability, f.FilledAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// ClosePosition marks a position closed with its final realized PnL.
func (s *Store) ClosePosition(ctx context.Context, id int64, realizedPnL float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE paper_positions SET status=?, closed_at=?, realized_pnl=?, unrealized_pnl=0
		WHERE id=? AND status=?`,
		string(PositionClosed), time.Now().UTC().Format(time.RFC3339Nano), realizedPnL, id, string(PositionOpen))
	return err
}

// MarkToMarket updates a position's unrealized PnL without closing it.
func (s *Store) MarkToMarket(ctx context.Context, id int64, unrealizedPnL float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE paper_positions SET unrealized_pnl=? WHERE id=? AND status=?`,
		unrealizedPnL, id, string(PositionOpen))
	return err
}

func (s *Store) GetPosition(ctx context.Context, id int64) (Position, bool, error) {
	var p Position
	var status, openedAt string
	var closedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, signal_id, size, buy_fill_price, sell_fill_price, fill_ratio, status, opened_at, closed_at, realized_pnl, unrealized_pnl
		FROM paper_positions WHERE id=?`, id).Scan(
		&p.ID, &p.SignalID, &p.Size, &p.BuyFillPrice, &p.SellFillPrice, &p.FillRatio, &status, &openedAt, &closedAt, &p.RealizedPnL, &p.UnrealizedPnL)
	if err == sql.ErrNoRows {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, err
	}
	p.Status = PositionStatus(status)
	p.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
	if closedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, closedAt.String)
		p.ClosedAt = &t
	}
	return p, true, nil
}

// OpenPositions returns every position still in OPEN status.
func (s *Store) OpenPositions(ctx context.Context) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signal_id, size, buy_fill_price, sell_fill_price, fill_ratio, status, opened_at, closed_at, realized_pnl, unrealized_pnl
		FROM paper_positions WHERE status=?`, string(PositionOpen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		var status, openedAt string
		var closedAt sql.NullString
		if err := rows.Scan(&p.ID, &p.SignalID, &p.Size, &p.BuyFillPrice, &p.SellFillPrice, &p.FillRatio, &status, &openedAt, &closedAt, &p.RealizedPnL, &p.UnrealizedPnL); err != nil {
			return nil, err
		}
		p.Status = PositionStatus(status)
		p.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
		if closedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, closedAt.String)
			p.ClosedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetFills returns the two legs recorded for a position, in insertion order
// (buy leg, then sell leg).
func (s *Store) GetFills(ctx context.Context, positionID int64) ([]Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, position_id, venue, side, limit_price, price, requested_size, size, probability, filled_at
		FROM paper_fills WHERE position_id=? ORDER BY id`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fill
	for rows.Next() {
		var f Fill
		var filledAt string
		if err := rows.Scan(&f.ID, &f.PositionID, &f.Venue, &f.Side, &f.LimitPrice, &f.Price,
			&f.RequestedSize, &f.Size, &f.Probability, &filledAt); err != nil {
			return nil, err
		}
		f.FilledAt, _ = time.Parse(time.RFC3339Nano, filledAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// InsertSnapshot records a portfolio-wide mark.
func (s *Store) InsertSnapshot(ctx context.Context, openPositions int, realizedPnL, unrealizedPnL float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (taken_at, open_positions, realized_pnl, unrealized_pnl)
		VALUES (?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339Nano), openPositions, realizedPnL, unrealizedPnL)
	return err
}

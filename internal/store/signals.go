package store

import (
	"context"
	"database/sql"
	"time"
)

// Signal mirrors the mispricing_signals table.
type Signal struct {
	ID               string
	CanonicalEventID string
	Outcome          string
	BuyVenue         string
	SellVenue        string
	BuyMarketID      string
	SellMarketID     string
	EdgeRaw          float64
	Fees             float64
	Slippage         float64
	EdgeAfterCosts   float64
	SuggestedSize    float64
	BuyPrice         float64
	SellPrice        float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClearedAt        *time.Time
}

// UpsertSignal inserts a new signal or refreshes an existing one for the
// same (event, outcome, buy venue, sell venue) key, clearing any prior
// ClearedAt mark since the edge is active again.
func (s *Store) UpsertSignal(ctx context.Context, sig Signal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mispricing_signals (
			id, canonical_event_id, outcome, buy_venue, sell_venue, buy_market_id, sell_market_id,
			edge_raw, fees, slippage, edge_after_costs, suggested_size, buy_price, sell_price,
			created_at, updated_at, cleared_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,NULL)
		ON CONFLICT(canonical_event_id, outcome, buy_venue, sell_venue) DO UPDATE SET
			buy_market_id=excluded.buy_market_id, sell_market_id=excluded.sell_market_id,
			edge_raw=excluded.edge_raw, fees=excluded.fees, slippage=excluded.slippage,
			edge_after_costs=excluded.edge_after_costs, suggested_size=excluded.suggested_size,
			buy_price=excluded.buy_price, sell_price=excluded.sell_price,
			updated_at=excluded.updated_at, cleared_at=NULL`,
		sig.ID, sig.CanonicalEventID, sig.Outcome, sig.BuyVenue, sig.SellVenue, sig.BuyMarketID, sig.SellMarketID,
		sig.EdgeRaw, sig.Fees, sig.Slippage, sig.EdgeAfterCosts, sig.SuggestedSize, sig.BuyPrice, sig.SellPrice,
		sig.CreatedAt.UTC().Format(time.RFC3339Nano), sig.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ClearSignal marks a signal as no longer active (edge dropped below
// threshold) without deleting its history.
func (s *Store) ClearSignal(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE mispricing_signals SET cleared_at=? WHERE id=? AND cleared_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

// ActiveSignals returns every signal not yet cleared.
func (s *Store) ActiveSignals(ctx context.Context) ([]Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_event_id, outcome, buy_venue, sell_venue, buy_market_id, sell_market_id,
			edge_raw, fees, slippage, edge_after_costs, suggested_size, buy_price, sell_price, created_at, updated_at
		FROM mispricing_signals WHERE cleared_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var sig Signal
		var createdAt, updatedAt string
		if err := rows.Scan(&sig.ID, &sig.CanonicalEventID, &sig.Outcome, &sig.BuyVenue, &sig.SellVenue,
			&sig.BuyMarketID, &sig.SellMarketID, &sig.EdgeRaw, &sig.Fees, &sig.Slippage,
			&sig.EdgeAfterCosts, &sig.SuggestedSize, &sig.BuyPrice, &sig.SellPrice, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		sig.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		sig.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// GetSignal fetches one signal by id.
func (s *Store) GetSignal(ctx context.Context, id string) (Signal, bool, error) {
	var sig Signal
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_event_id, outcome, buy_venue, sell_venue, buy_market_id, sell_market_id,
			edge_raw, fees, slippage, edge_after_costs, suggested_size, buy_price, sell_price, created_at, updated_at
		FROM mispricing_signals WHERE id=?`, id).Scan(
		&sig.ID, &sig.CanonicalEventID, &sig.Outcome, &sig.BuyVenue, &sig.SellVenue,
		&sig.BuyMarketID, &sig.SellMarketID, &sig.EdgeRaw, &sig.Fees, &sig.Slippage,
		&sig.EdgeAfterCosts, &sig.SuggestedSize, &sig.BuyPrice, &sig.SellPrice, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Signal{}, false, nil
	}
	if err != nil {
		return Signal{}, false, err
	}
	sig.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sig.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return sig, true, nil
}

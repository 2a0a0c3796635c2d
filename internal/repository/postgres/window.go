package postgres

import (
	"context"
	"time"

	"argus/internal/domain/window"
	"argus/pkg/errors"
)

// Compile-time check that we implement the interface
var _ window.Repository = (*WindowRepository)(nil)

// WindowRepository implements window.Repository using sqlx
type WindowRepository struct {
	db DBTX
}

// NewWindowRepository creates a new trade window repository
func NewWindowRepository(db DBTX) *WindowRepository {
	return &WindowRepository{db: db}
}

// Upsert adds one trade's notional to its bucket and returns the post-update
// counters. The whole increment-and-read is a single conditional upsert with
// a RETURNING clause, so concurrent trades landing in the same bucket
// serialize at the row and no increment is lost.
func (r *WindowRepository) Upsert(ctx context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, notional float64, tradeTS time.Time) (window.Totals, error) {
	query := `
		INSERT INTO trade_windows (
			wallet_address, condition_id, window_start_ts, window_minutes,
			total_notional, trade_count, first_trade_ts, last_trade_ts, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, 1, $6, $6, NOW()
		)
		ON CONFLICT (wallet_address, condition_id, window_start_ts, window_minutes)
		DO UPDATE SET
			total_notional = trade_windows.total_notional + EXCLUDED.total_notional,
			trade_count = trade_windows.trade_count + 1,
			first_trade_ts = LEAST(trade_windows.first_trade_ts, EXCLUDED.first_trade_ts),
			last_trade_ts = GREATEST(trade_windows.last_trade_ts, EXCLUDED.last_trade_ts),
			updated_at = NOW()
		RETURNING total_notional, trade_count, alerted_buy, alerted_sell`

	var t window.Totals
	row := r.db.QueryRowContext(ctx, query, wallet, conditionID, windowStart, windowMinutes, notional, tradeTS)
	if err := row.Scan(&t.TotalNotional, &t.TradeCount, &t.AlertedBuy, &t.AlertedSell); err != nil {
		return window.Totals{}, errors.Wrap(err, "upsert trade window")
	}

	return t, nil
}

// MarkAlerted latches the alert flag for one side on an existing window row.
func (r *WindowRepository) MarkAlerted(ctx context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, sell bool) error {
	column := "alerted_buy"
	if sell {
		column = "alerted_sell"
	}

	query := `
		UPDATE trade_windows
		SET ` + column + ` = TRUE, updated_at = NOW()
		WHERE wallet_address = $1 AND condition_id = $2
		  AND window_start_ts = $3 AND window_minutes = $4`

	if _, err := r.db.ExecContext(ctx, query, wallet, conditionID, windowStart, windowMinutes); err != nil {
		return errors.Wrap(err, "mark window alerted")
	}
	return nil
}

// Get returns one window row, or errors.ErrNotFound.
func (r *WindowRepository) Get(ctx context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int) (*window.Window, error) {
	var w window.Window

	query := `
		SELECT wallet_address, condition_id, window_start_ts, window_minutes,
			   total_notional, trade_count, first_trade_ts, last_trade_ts,
			   alerted_buy, alerted_sell, updated_at
		FROM trade_windows
		WHERE wallet_address = $1 AND condition_id = $2
		  AND window_start_ts = $3 AND window_minutes = $4`

	err := r.db.GetContext(ctx, &w, query, wallet, conditionID, windowStart, windowMinutes)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(errors.ErrNotFound, "trade window not found")
		}
		return nil, err
	}

	return &w, nil
}

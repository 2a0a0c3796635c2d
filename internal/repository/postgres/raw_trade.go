package postgres

import (
	"context"

	"argus/internal/domain/trade"
	"argus/pkg/errors"
)

// Compile-time check that we implement the interface
var _ trade.Repository = (*RawTradeRepository)(nil)

// RawTradeRepository persists raw trades keyed by dedup identifier
type RawTradeRepository struct {
	db DBTX
}

// NewRawTradeRepository creates a new raw trade repository
func NewRawTradeRepository(db DBTX) *RawTradeRepository {
	return &RawTradeRepository{db: db}
}

// Insert stores a trade with insert-or-ignore semantics. The returned flag
// distinguishes a fresh insert from an already-present row, so callers can
// skip downstream state updates on re-ingestion.
func (r *RawTradeRepository) Insert(ctx context.Context, t *trade.Trade) (bool, error) {
	query := `
		INSERT INTO raw_trades (
			trade_id, wallet_address, condition_id, token_id, side,
			price, size, notional, trade_ts, source, tx_hash
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (trade_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Wallet, t.ConditionID, t.TokenID, t.Side,
		t.Price, t.Size, t.Notional, t.Timestamp, t.Source, t.TxHash,
	)
	if err != nil {
		return false, errors.Wrap(err, "insert raw trade")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

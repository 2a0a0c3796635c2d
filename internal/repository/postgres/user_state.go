package postgres

import (
	"context"
	"database/sql"
	"time"

	"argus/internal/domain/userstate"
	"argus/pkg/errors"
)

// Compile-time check that we implement the interface
var _ userstate.Repository = (*UserStateRepository)(nil)

// UserStateRepository implements userstate.Repository using sqlx
type UserStateRepository struct {
	db DBTX
}

// NewUserStateRepository creates a new user state repository
func NewUserStateRepository(db DBTX) *UserStateRepository {
	return &UserStateRepository{db: db}
}

// Apply folds one trade into the wallet's state row.
//
// Create-or-transition runs as one conditional upsert with RETURNING; the
// CASE mirrors userstate.NextStatus against the row's pre-update values, so
// concurrent trades for the same wallet serialize at the row. The dormant
// comparison uses the previous last_trade_ts against the incoming trade's
// timestamp.
func (r *UserStateRepository) Apply(ctx context.Context, wallet string, tradeTS time.Time, notional float64, median *float64, dormantDays, activeThreshold int) (*userstate.UserState, error) {
	query := `
		INSERT INTO user_states (
			wallet_address, first_trade_ts, last_trade_ts, total_trades,
			last_notional, median_notional, status, updated_at
		) VALUES (
			$1, $2, $2, 1, $3, COALESCE($4, $3), 'new', NOW()
		)
		ON CONFLICT (wallet_address) DO UPDATE SET
			status = CASE
				WHEN user_states.status = 'ignored' THEN 'ignored'
				WHEN user_states.last_trade_ts < EXCLUDED.last_trade_ts - make_interval(days => $5) THEN 'revived'
				WHEN user_states.total_trades + 1 >= $6 THEN 'active'
				ELSE user_states.status
			END,
			total_trades = user_states.total_trades + 1,
			last_trade_ts = EXCLUDED.last_trade_ts,
			last_notional = EXCLUDED.last_notional,
			median_notional = COALESCE($4, user_states.median_notional),
			updated_at = NOW()
		RETURNING wallet_address, first_trade_ts, last_trade_ts, total_trades,
				  last_notional, median_notional, status, updated_at`

	var st userstate.UserState
	err := r.db.GetContext(ctx, &st, query, wallet, tradeTS, notional, median, dormantDays, activeThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "apply user state")
	}

	return &st, nil
}

// Get retrieves a wallet's state
func (r *UserStateRepository) Get(ctx context.Context, wallet string) (*userstate.UserState, error) {
	var st userstate.UserState

	query := `
		SELECT wallet_address, first_trade_ts, last_trade_ts, total_trades,
			   last_notional, median_notional, status, updated_at
		FROM user_states
		WHERE wallet_address = $1`

	err := r.db.GetContext(ctx, &st, query, wallet)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.Wrap(errors.ErrNotFound, "user state not found")
		}
		return nil, err
	}

	return &st, nil
}

// SetStatus overrides the wallet's status (operator path)
func (r *UserStateRepository) SetStatus(ctx context.Context, wallet string, status userstate.Status) error {
	query := `UPDATE user_states SET status = $2, updated_at = NOW() WHERE wallet_address = $1`

	res, err := r.db.ExecContext(ctx, query, wallet, status)
	if err != nil {
		return errors.Wrap(err, "set user status")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrap(errors.ErrNotFound, "user state not found")
	}

	return nil
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows || errors.Is(err, sql.ErrNoRows)
}

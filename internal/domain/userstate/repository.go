package userstate

import (
	"context"
	"time"
)

// Repository persists per-wallet state.
//
// Apply must be atomic per wallet: create-or-transition with the resulting
// row returned in one round trip, never a separate read and write. The
// implementation computes the same transition as NextStatus, with the
// dormant comparison against the row's previous last_trade_ts.
type Repository interface {
	// Apply folds one trade into the wallet's state and returns the row
	// after the update. median, when non-nil, replaces the stored median
	// notional; nil keeps the existing value (bootstrap on first sight).
	Apply(ctx context.Context, wallet string, tradeTS time.Time, notional float64, median *float64, dormantDays, activeThreshold int) (*UserState, error)

	// Get returns the wallet's state, or errors.ErrNotFound.
	Get(ctx context.Context, wallet string) (*UserState, error)

	// SetStatus overrides the wallet's status. This is the operator path
	// behind the ignore command; trade flow never calls it.
	SetStatus(ctx context.Context, wallet string, status Status) error
}

package window

import (
	"context"
	"time"
)

// Repository persists trade windows.
//
// Upsert must be atomic per (wallet, market, windowStart, windowMinutes)
// key: insert-or-add with the post-update counters returned in one round
// trip. A read-then-write implementation loses increments under concurrent
// trades landing in the same bucket and is not a valid implementation.
type Repository interface {
	Upsert(ctx context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, notional float64, tradeTS time.Time) (Totals, error)

	// MarkAlerted latches the buy (sell=false) or sell (sell=true) alert
	// flag on an existing window row.
	MarkAlerted(ctx context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, sell bool) error
}

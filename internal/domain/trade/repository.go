package trade

import (
	"context"
)

// Repository persists raw trades with insert-or-ignore semantics.
type Repository interface {
	// Insert stores a trade keyed by its dedup identifier. It reports
	// whether the row was actually inserted; false means the trade was
	// already present and the caller must skip downstream state updates.
	Insert(ctx context.Context, t *Trade) (inserted bool, err error)
}

// Archive is the append-only analytics sink for every processed trade.
type Archive interface {
	Append(ctx context.Context, t *Trade) error
}

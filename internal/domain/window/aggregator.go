package window

import (
	"context"
	"time"

	"argus/internal/adapters/config"
	"argus/pkg/errors"
)

// FloorToWindowStart returns the largest window boundary <= ts:
// epoch - (epoch mod windowMinutes*60), in UTC. 12:07 with a 5 minute
// window floors to 12:05.
//
// ts must carry explicit UTC semantics; a zero timestamp or a non-UTC
// location is an input-validation error, not something to silently coerce.
func FloorToWindowStart(ts time.Time, windowMinutes int) (time.Time, error) {
	if windowMinutes <= 0 {
		return time.Time{}, errors.Wrapf(errors.ErrInvalidInput, "window_minutes must be positive, got %d", windowMinutes)
	}
	if ts.IsZero() {
		return time.Time{}, errors.Wrap(errors.ErrInvalidTimestamp, "floor to window start: zero timestamp")
	}
	if ts.Location() != time.UTC {
		return time.Time{}, errors.Wrap(errors.ErrInvalidTimestamp, "floor to window start: timestamp must be UTC")
	}

	windowSeconds := int64(windowMinutes) * 60
	epoch := ts.Unix()
	floored := epoch - (epoch % windowSeconds)
	return time.Unix(floored, 0).UTC(), nil
}

// Aggregator folds trades into per-(wallet, market) windows.
type Aggregator struct {
	repo  Repository
	rules config.RulesConfig
}

// NewAggregator creates a window aggregator
func NewAggregator(repo Repository, rules config.RulesConfig) *Aggregator {
	return &Aggregator{repo: repo, rules: rules}
}

// Update buckets one trade and atomically adds its notional to the bucket,
// returning the window's totals after this update. Storage failures
// propagate: the trade must not be reported as processed.
func (a *Aggregator) Update(ctx context.Context, wallet, conditionID string, tradeTS time.Time, notional float64) (UpdateResult, error) {
	windowStart, err := FloorToWindowStart(tradeTS, a.rules.WindowMinutes)
	if err != nil {
		return UpdateResult{}, err
	}

	totals, err := a.repo.Upsert(ctx, wallet, conditionID, windowStart, a.rules.WindowMinutes, notional, tradeTS)
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "upsert trade window")
	}

	return UpdateResult{
		IsCandidate:      totals.TotalNotional >= a.rules.MinTotalNotional,
		TotalNotional:    totals.TotalNotional,
		TradeCount:       totals.TradeCount,
		WindowStart:      windowStart,
		WindowMinutes:    a.rules.WindowMinutes,
		MinTotalNotional: a.rules.MinTotalNotional,
		AlertedBuy:       totals.AlertedBuy,
		AlertedSell:      totals.AlertedSell,
	}, nil
}

// MarkAlerted latches the per-window alert flag for the given side so the
// same (wallet, market, window, side) never alerts twice.
func (a *Aggregator) MarkAlerted(ctx context.Context, wallet, conditionID string, windowStart time.Time, sell bool) error {
	if err := a.repo.MarkAlerted(ctx, wallet, conditionID, windowStart, a.rules.WindowMinutes, sell); err != nil {
		return errors.Wrap(err, "mark window alerted")
	}
	return nil
}

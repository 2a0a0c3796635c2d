package window

import (
	"time"
)

// Window is a fixed-duration, non-overlapping time bucket per
// (wallet, market), holding additive counters. Rows are created on the
// first trade in a bucket and only ever mutated additively after that.
type Window struct {
	Wallet        string    `db:"wallet_address"`
	ConditionID   string    `db:"condition_id"`
	WindowStart   time.Time `db:"window_start_ts"`
	WindowMinutes int       `db:"window_minutes"`
	TotalNotional float64   `db:"total_notional"`
	TradeCount    int64     `db:"trade_count"`
	FirstTradeTS  time.Time `db:"first_trade_ts"`
	LastTradeTS   time.Time `db:"last_trade_ts"`
	AlertedBuy    bool      `db:"alerted_buy"`
	AlertedSell   bool      `db:"alerted_sell"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Totals is the post-upsert counter snapshot for one window row.
type Totals struct {
	TotalNotional float64
	TradeCount    int64
	AlertedBuy    bool
	AlertedSell   bool
}

// UpdateResult reports a window's totals after one trade was folded in.
// IsCandidate gates whether the heavier alert-decision step runs at all;
// it does not decide alerting by itself.
type UpdateResult struct {
	IsCandidate      bool
	TotalNotional    float64
	TradeCount       int64
	WindowStart      time.Time
	WindowMinutes    int
	MinTotalNotional float64

	// Per-window alert latches: once a side has alerted in this bucket,
	// further trades in the same bucket must not republish.
	AlertedBuy  bool
	AlertedSell bool
}

package userstate

import (
	"time"
)

// Status is a wallet's lifecycle status.
//
// Transitions driven by trade flow: new -> active, new|active -> revived.
// ignored is only ever entered by an explicit operator action and is
// absorbing with respect to trade processing.
type Status string

const (
	StatusNew     Status = "new"
	StatusActive  Status = "active"
	StatusRevived Status = "revived"
	StatusIgnored Status = "ignored"
)

// UserState is the per-wallet lifetime row.
type UserState struct {
	Wallet         string    `db:"wallet_address"`
	FirstTradeTS   time.Time `db:"first_trade_ts"`
	LastTradeTS    time.Time `db:"last_trade_ts"`
	TotalTrades    int64     `db:"total_trades"`
	LastNotional   float64   `db:"last_notional"`
	MedianNotional *float64  `db:"median_notional"`
	Status         Status    `db:"status"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// NextStatus computes the status transition for one observed trade.
//
// ignored is sticky. A dormant gap forces revived regardless of volume.
// Crossing the lifetime trade threshold promotes to active. Anything else
// leaves the status as-is. The Postgres upsert mirrors this function so the
// persisted transition stays atomic per wallet.
func NextStatus(prev Status, isRevived bool, newTotalTrades int64, activeThreshold int) Status {
	switch {
	case prev == StatusIgnored:
		return StatusIgnored
	case isRevived:
		return StatusRevived
	case newTotalTrades >= int64(activeThreshold):
		return StatusActive
	default:
		return prev
	}
}

// IsDormantGap reports whether the previous last-trade timestamp sits more
// than dormantDays before ref.
func IsDormantGap(lastTradeTS, ref time.Time, dormantDays int) bool {
	return lastTradeTS.Before(ref.AddDate(0, 0, -dormantDays))
}

package alert

import (
	"time"
)

// Event is the alert payload published to Kafka and consumed by the
// notification path. Everything a notifier needs to render the alert is
// carried inline so consumers stay stateless.
type Event struct {
	ID        string    `json:"id"`
	AlertType string    `json:"alert_type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`

	Wallet      string `json:"wallet"`
	UserStatus  string `json:"user_status"`
	TotalTrades int64  `json:"total_trades"`

	ConditionID string  `json:"condition_id"`
	Title       string  `json:"title,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Outcome     string  `json:"outcome,omitempty"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	Notional    float64 `json:"notional"`
	TxHash      string  `json:"tx_hash,omitempty"`

	TradeTS          time.Time `json:"trade_ts"`
	WindowStart      time.Time `json:"window_start"`
	WindowMinutes    int       `json:"window_minutes"`
	WindowNotional   float64   `json:"window_notional"`
	WindowTradeCount int64     `json:"window_trade_count"`
}

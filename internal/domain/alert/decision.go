package alert

// Reason codes for alert decisions. Rejections name the first gate that
// failed; acceptances name the classification.
const (
	ReasonNotBigEnough            = "not_big_enough"
	ReasonNotEnoughTradesInWindow = "not_enough_trades_in_window"
	ReasonUserNotNewOrRevived     = "user_not_new_or_revived"
	ReasonInvalidLastTradeTS      = "invalid_last_trade_ts"
	ReasonBuyBigNewOrRevived      = "buy_big_new_or_revived"
	ReasonSellBigNewOrRevived     = "sell_big_new_or_revived"
)

// Alert type tags
const (
	TypeBuyBigNew  = "BUY_BIG_NEW"
	TypeSellBigNew = "SELL_BIG_NEW"
)

// Decision classifies one trade. Derived, never persisted.
type Decision struct {
	ShouldAlert bool   `json:"should_alert"`
	Reason      string `json:"reason"`
	AlertType   string `json:"alert_type,omitempty"`
}

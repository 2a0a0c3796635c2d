package trade

import (
	"fmt"
	"time"
)

// Side is the taker side of a fill
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Raw is a provider trade record as returned by the Polymarket Data API.
// Field names vary by source; this struct carries the superset we consume.
type Raw struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Asset           string  `json:"asset"`       // outcome token id
	ConditionID     string  `json:"conditionId"` // market
	Side            string  `json:"side"`
	Price           float64 `json:"price"`
	Size            float64 `json:"size"`
	Timestamp       int64   `json:"timestamp"` // epoch seconds, UTC
	TransactionHash string  `json:"transactionHash"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Outcome         string  `json:"outcome"`
	EventSlug       string  `json:"eventSlug"`
	Name            string  `json:"name"`
	Pseudonym       string  `json:"pseudonym"`

	// Set by the ingesting adapter, never present on the wire.
	Source string `json:"-"`
}

// Trade is the canonical trade every downstream component consumes.
// Price and size are kept in floating point without rounding.
type Trade struct {
	ID          string // dedup identifier, unique per persisted trade
	Wallet      string
	ConditionID string
	TokenID     string
	Side        Side
	Price       float64
	Size        float64
	Notional    float64 // price * size, USD-equivalent
	Timestamp   time.Time
	Source      string

	// Context carried through for alert formatting, not persisted state
	Title   string
	Slug    string
	Outcome string
	TxHash  string
}

// DedupID derives the stable identifier used for idempotent ingestion.
func DedupID(txHash, tokenID, side string, ts int64, size float64) string {
	return fmt.Sprintf("%s:%s:%s:%d:%v", txHash, tokenID, side, ts, size)
}

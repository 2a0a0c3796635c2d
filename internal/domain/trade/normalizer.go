package trade

import (
	"strings"
	"time"

	"argus/pkg/errors"
)

// Ingestion sources, recorded on every persisted trade.
const (
	SourceDataAPI = "data_api"
	SourceFeed    = "clob_feed"
)

// Normalize converts a raw provider record into a canonical Trade.
//
// It is a pure transform. A record is rejected (ErrBadTrade chain) when the
// wallet address is missing, when the market identifier is missing, when the
// timestamp carries no epoch value, or when price/size cannot be resolved to
// a notional. Callers treat rejection as skip-this-record, not as a fatal
// pipeline error.
func Normalize(raw Raw) (Trade, error) {
	if raw.ProxyWallet == "" {
		return Trade{}, errors.Wrap(errors.ErrMissingWallet, "normalize")
	}
	if raw.ConditionID == "" {
		return Trade{}, errors.Wrap(errors.ErrMissingMarket, "normalize")
	}
	if raw.Timestamp <= 0 {
		return Trade{}, errors.Wrap(errors.ErrInvalidTimestamp, "normalize")
	}
	if raw.Price <= 0 || raw.Size <= 0 {
		return Trade{}, errors.Wrap(errors.ErrNoNotional, "normalize")
	}

	side := Side(strings.ToUpper(raw.Side))

	source := raw.Source
	if source == "" {
		source = SourceDataAPI
	}

	return Trade{
		ID:          DedupID(raw.TransactionHash, raw.Asset, string(side), raw.Timestamp, raw.Size),
		Wallet:      raw.ProxyWallet,
		ConditionID: raw.ConditionID,
		TokenID:     raw.Asset,
		Side:        side,
		Price:       raw.Price,
		Size:        raw.Size,
		Notional:    raw.Price * raw.Size,
		Timestamp:   time.Unix(raw.Timestamp, 0).UTC(),
		Source:      source,
		Title:       raw.Title,
		Slug:        raw.Slug,
		Outcome:     raw.Outcome,
		TxHash:      raw.TransactionHash,
	}, nil
}

package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"argus/internal/domain/trade"
	"argus/pkg/errors"
)

// TradeArchiveRepository appends every processed trade to ClickHouse for
// analytics. Append-only; dedup is the Postgres raw_trades table's job.
type TradeArchiveRepository struct {
	conn driver.Conn
}

// NewTradeArchiveRepository creates a new trade archive repository
func NewTradeArchiveRepository(conn driver.Conn) *TradeArchiveRepository {
	return &TradeArchiveRepository{conn: conn}
}

// InsertBatch writes trades in one batch. Single-row inserts are
// inefficient in ClickHouse; callers should go through the batch writer.
func (r *TradeArchiveRepository) InsertBatch(ctx context.Context, trades []trade.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			trade_id, wallet_address, condition_id, token_id, side,
			price, size, notional, trade_ts, source, outcome, title
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, t := range trades {
		err := batch.Append(
			t.ID, t.Wallet, t.ConditionID, t.TokenID, string(t.Side),
			t.Price, t.Size, t.Notional, t.Timestamp, t.Source, t.Outcome, t.Title,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append trade")
		}
	}

	return batch.Send()
}

// FeedStats summarizes archived flow for the status command.
type FeedStats struct {
	Trades        uint64  `ch:"trades"`
	TurnoverUSD   float64 `ch:"turnover_usd"`
	UniqueWallets uint64  `ch:"unique_wallets"`
	UniqueMarkets uint64  `ch:"unique_markets"`
}

// Stats aggregates archived trades since the given time.
func (r *TradeArchiveRepository) Stats(ctx context.Context, since time.Time) (*FeedStats, error) {
	var rows []FeedStats

	query := `
		SELECT
			count() AS trades,
			sum(notional) AS turnover_usd,
			uniqExact(wallet_address) AS unique_wallets,
			uniqExact(condition_id) AS unique_markets
		FROM trades
		WHERE trade_ts >= $1`

	if err := r.conn.Select(ctx, &rows, query, since); err != nil {
		return nil, errors.Wrap(err, "query feed stats")
	}
	if len(rows) == 0 {
		return &FeedStats{}, nil
	}

	return &rows[0], nil
}

// MarketTurnover is per-market archived volume.
type MarketTurnover struct {
	ConditionID   string  `ch:"condition_id"`
	Trades        uint64  `ch:"trades"`
	BuyUSD        float64 `ch:"buy_usd"`
	SellUSD       float64 `ch:"sell_usd"`
	UniqueWallets uint64  `ch:"unique_wallets"`
}

// TopMarkets returns the busiest markets since the given time.
func (r *TradeArchiveRepository) TopMarkets(ctx context.Context, since time.Time, limit int) ([]MarketTurnover, error) {
	var rows []MarketTurnover

	query := `
		SELECT
			condition_id,
			count() AS trades,
			sumIf(notional, side = 'BUY') AS buy_usd,
			sumIf(notional, side = 'SELL') AS sell_usd,
			uniqExact(wallet_address) AS unique_wallets
		FROM trades
		WHERE trade_ts >= $1
		GROUP BY condition_id
		ORDER BY buy_usd + sell_usd DESC
		LIMIT $2`

	if err := r.conn.Select(ctx, &rows, query, since, limit); err != nil {
		return nil, errors.Wrap(err, "query top markets")
	}

	return rows, nil
}

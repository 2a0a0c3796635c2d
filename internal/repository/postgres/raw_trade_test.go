package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/domain/trade"
	"argus/internal/testsupport"
)

func TestRawTradeRepository_InsertIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewRawTradeRepository(testDB.Tx())
	ctx := context.Background()

	tr := &trade.Trade{
		ID:          "0xdead:7141:BUY:1710000000:10000",
		Wallet:      "0xwallet",
		ConditionID: "0xcond",
		TokenID:     "7141",
		Side:        trade.SideBuy,
		Price:       0.62,
		Size:        10000,
		Notional:    6200,
		Timestamp:   time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
		Source:      trade.SourceDataAPI,
	}

	inserted, err := repo.Insert(ctx, tr)
	require.NoError(t, err)
	assert.True(t, inserted)

	// same dedup identifier: defined no-op, reported as already-present
	inserted, err = repo.Insert(ctx, tr)
	require.NoError(t, err)
	assert.False(t, inserted)

	// different dedup identifier inserts
	other := *tr
	other.ID = "0xbeef:7141:SELL:1710000001:10000"
	other.Side = trade.SideSell
	inserted, err = repo.Insert(ctx, &other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestRawTradeRepository_PersistsTxHash(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewRawTradeRepository(testDB.Tx())
	ctx := context.Background()

	tr := &trade.Trade{
		ID:          "0xdead:7141:BUY:1710000000:10000",
		Wallet:      "0xwallet",
		ConditionID: "0xcond",
		TokenID:     "7141",
		Side:        trade.SideBuy,
		Price:       0.62,
		Size:        10000,
		Notional:    6200,
		Timestamp:   time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC),
		Source:      trade.SourceDataAPI,
		TxHash:      "0xdead",
	}

	inserted, err := repo.Insert(ctx, tr)
	require.NoError(t, err)
	require.True(t, inserted)

	var txHash string
	err = testDB.Tx().GetContext(ctx, &txHash,
		`SELECT tx_hash FROM raw_trades WHERE trade_id = $1`, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xdead", txHash)
}

package report

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/domain/trade"
	"argus/pkg/errors"
)

func mkTrade(wallet, cid, outcome, side string, price, size float64, ts int64) trade.Raw {
	return trade.Raw{
		ProxyWallet: wallet,
		ConditionID: cid,
		Outcome:     outcome,
		Side:        side,
		Price:       price,
		Size:        size,
		Timestamp:   ts,
		Slug:        cid + "-slug",
		Title:       "Question for " + cid,
		Name:        "trader-" + wallet,
	}
}

func TestAggregateMarketTotals(t *testing.T) {
	trades := []trade.Raw{
		mkTrade("0xa", "m1", "Yes", "BUY", 0.5, 1000, 1710000000),  // 500 USD
		mkTrade("0xb", "m1", "Yes", "SELL", 0.4, 500, 1710000100),  // 200 USD
		mkTrade("0xa", "m2", "No", "BUY", 0.2, 100, 1710000200),    // 20 USD
		mkTrade("", "m1", "Yes", "BUY", 0.9, 9999, 1710000300),     // skipped, no wallet
		mkTrade("0xc", "", "Yes", "SELL", 0.9, 9999, 1710000400),   // skipped, no market
	}

	data := Aggregate(trades, time.Unix(1710003600, 0).UTC())

	assert.Equal(t, 3, data.TotalTrades)
	assert.Equal(t, 2, data.UniqueTraders)
	assert.InDelta(t, 720, data.TotalTurnoverUSD, 1e-9)

	require.Len(t, data.Markets, 2)
	m1 := data.Markets[0]
	assert.Equal(t, "m1", m1.ConditionID, "markets sorted by turnover desc")
	assert.Equal(t, 2, m1.TradesCount)
	assert.InDelta(t, 500, m1.BuyUSD, 1e-9)
	assert.InDelta(t, 200, m1.SellUSD, 1e-9)
	assert.InDelta(t, 700, m1.TurnoverUSD, 1e-9)
	assert.Len(t, m1.UniqueTraders, 2)
}

func TestAggregateParticipantTotals(t *testing.T) {
	trades := []trade.Raw{
		mkTrade("0xa", "m1", "Yes", "BUY", 0.5, 1000, 1710000500),
		mkTrade("0xa", "m1", "Yes", "BUY", 0.6, 500, 1710000100),
		mkTrade("0xa", "m1", "Yes", "SELL", 0.7, 300, 1710000900),
		mkTrade("0xa", "m1", "No", "BUY", 0.1, 100, 1710000200), // separate outcome row
	}

	data := Aggregate(trades, time.Now().UTC())
	require.Len(t, data.Participants, 2)

	var yes *ParticipantTotals
	for _, p := range data.Participants {
		if p.Outcome == "Yes" {
			yes = p
		}
	}
	require.NotNil(t, yes)

	assert.InDelta(t, 1500, yes.BuyShares, 1e-9)
	assert.InDelta(t, 800, yes.BuyUSD, 1e-9) // 500 + 300
	assert.InDelta(t, 300, yes.SellShares, 1e-9)
	assert.InDelta(t, 210, yes.SellUSD, 1e-9)
	assert.InDelta(t, 1200, yes.NetShares(), 1e-9)
	assert.InDelta(t, 590, yes.NetSpentUSD(), 1e-9)
	assert.InDelta(t, 800.0/1500.0, yes.AvgBuyPrice(), 1e-9)
	assert.InDelta(t, 0.7, yes.AvgSellPrice(), 1e-9)
	assert.Equal(t, 3, yes.TradesCount)
	assert.Equal(t, time.Unix(1710000100, 0).UTC(), yes.FirstTS)
	assert.Equal(t, time.Unix(1710000900, 0).UTC(), yes.LastTS)
}

func TestAggregateEmptyInput(t *testing.T) {
	data := Aggregate(nil, time.Now().UTC())
	assert.Zero(t, data.TotalTrades)
	assert.Empty(t, data.Markets)
	assert.Empty(t, data.Participants)
}

func TestAvgPricesWithoutVolume(t *testing.T) {
	p := ParticipantTotals{}
	assert.Zero(t, p.AvgBuyPrice())
	assert.Zero(t, p.AvgSellPrice())
}

type fakeFetcher struct {
	trades []trade.Raw
	err    error
}

func (f *fakeFetcher) FetchMarketTrades(_ context.Context, _ string, _ int) ([]trade.Raw, error) {
	return f.trades, f.err
}

func TestGenerateMarketReportWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeFetcher{trades: []trade.Raw{
		mkTrade("0xa", "m1", "Yes", "BUY", 0.5, 1000, 1710000000),
		mkTrade("0xb", "m1", "No", "SELL", 0.3, 200, 1710000100),
	}}, dir, 0)

	path, err := svc.GenerateMarketReport(context.Background(), "m1")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestGenerateMarketReportFetchError(t *testing.T) {
	svc := NewService(&fakeFetcher{err: errors.ErrUnavailable}, t.TempDir(), 0)

	_, err := svc.GenerateMarketReport(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestGenerateMarketReportEmptyConditionID(t *testing.T) {
	svc := NewService(&fakeFetcher{}, t.TempDir(), 0)

	_, err := svc.GenerateMarketReport(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestGenerateMarketReportCancelled(t *testing.T) {
	svc := NewService(&fakeFetcher{}, t.TempDir(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GenerateMarketReport(ctx, "m1")
	require.Error(t, err)
}

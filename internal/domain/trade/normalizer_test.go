package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/errors"
)

func validRaw() Raw {
	return Raw{
		ProxyWallet:     "0xabc",
		Asset:           "7141",
		ConditionID:     "0xcond",
		Side:            "buy",
		Price:           0.62,
		Size:            10000,
		Timestamp:       1710000000,
		TransactionHash: "0xdead",
		Title:           "Will it happen?",
		Outcome:         "Yes",
	}
}

func TestNormalize(t *testing.T) {
	tr, err := Normalize(validRaw())
	require.NoError(t, err)

	assert.Equal(t, "0xabc", tr.Wallet)
	assert.Equal(t, "0xcond", tr.ConditionID)
	assert.Equal(t, SideBuy, tr.Side)
	assert.InDelta(t, 6200.0, tr.Notional, 1e-9)
	assert.Equal(t, SourceDataAPI, tr.Source)
	assert.Equal(t, "0xdead:7141:BUY:1710000000:10000", tr.ID)
}

func TestNormalize_CarriesSource(t *testing.T) {
	raw := validRaw()
	raw.Source = SourceFeed

	tr, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, SourceFeed, tr.Source)
}

func TestNormalize_TimestampIsUTC(t *testing.T) {
	tr, err := Normalize(validRaw())
	require.NoError(t, err)

	assert.Equal(t, time.UTC, tr.Timestamp.Location())
	assert.Equal(t, int64(1710000000), tr.Timestamp.Unix())
}

func TestNormalize_PreservesFractionalPriceAndSize(t *testing.T) {
	raw := validRaw()
	raw.Price = 0.123456789
	raw.Size = 33.333333

	tr, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, 0.123456789, tr.Price)
	assert.Equal(t, 33.333333, tr.Size)
	assert.Equal(t, 0.123456789*33.333333, tr.Notional)
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Raw)
		wantErr error
	}{
		{"missing wallet", func(r *Raw) { r.ProxyWallet = "" }, errors.ErrMissingWallet},
		{"missing market", func(r *Raw) { r.ConditionID = "" }, errors.ErrMissingMarket},
		{"zero timestamp", func(r *Raw) { r.Timestamp = 0 }, errors.ErrInvalidTimestamp},
		{"zero price", func(r *Raw) { r.Price = 0 }, errors.ErrNoNotional},
		{"zero size", func(r *Raw) { r.Size = 0 }, errors.ErrNoNotional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := Normalize(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDedupID_DistinguishesSizeAndSide(t *testing.T) {
	a := DedupID("0x1", "tok", "BUY", 100, 5)
	b := DedupID("0x1", "tok", "SELL", 100, 5)
	c := DedupID("0x1", "tok", "BUY", 100, 6)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

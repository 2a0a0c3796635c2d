package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/domain/userstate"
	"argus/internal/testsupport"
	"argus/pkg/errors"
)

func TestUserStateRepository_ApplyCreatesNew(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewUserStateRepository(testDB.Tx())
	ctx := context.Background()
	ts := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)

	st, err := repo.Apply(ctx, "0xwallet", ts, 6200, nil, 30, 50)
	require.NoError(t, err)

	assert.Equal(t, userstate.StatusNew, st.Status)
	assert.Equal(t, int64(1), st.TotalTrades)
	assert.True(t, st.FirstTradeTS.Equal(ts))
	require.NotNil(t, st.MedianNotional)
	assert.Equal(t, 6200.0, *st.MedianNotional)
}

func TestUserStateRepository_ApplyTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewUserStateRepository(testDB.Tx())
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Apply(ctx, "0xwallet", ts, 100, nil, 30, 3)
	require.NoError(t, err)

	// second trade, no gap, below threshold: stays new
	st, err := repo.Apply(ctx, "0xwallet", ts.Add(time.Hour), 200, nil, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, userstate.StatusNew, st.Status)
	assert.Equal(t, int64(2), st.TotalTrades)
	assert.True(t, st.FirstTradeTS.Equal(ts), "first_trade_ts is immutable")

	// third trade crosses the active threshold
	st, err = repo.Apply(ctx, "0xwallet", ts.Add(2*time.Hour), 200, nil, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, userstate.StatusActive, st.Status)

	// dormant gap forces revived
	st, err = repo.Apply(ctx, "0xwallet", ts.AddDate(0, 0, 45), 200, nil, 30, 3)
	require.NoError(t, err)
	assert.Equal(t, userstate.StatusRevived, st.Status)
	assert.Equal(t, int64(4), st.TotalTrades)
}

func TestUserStateRepository_IgnoredSticky(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewUserStateRepository(testDB.Tx())
	ctx := context.Background()
	ts := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)

	_, err := repo.Apply(ctx, "0xwallet", ts, 100, nil, 30, 50)
	require.NoError(t, err)
	require.NoError(t, repo.SetStatus(ctx, "0xwallet", userstate.StatusIgnored))

	st, err := repo.Apply(ctx, "0xwallet", ts.AddDate(0, 0, 60), 1e6, nil, 30, 50)
	require.NoError(t, err)
	assert.Equal(t, userstate.StatusIgnored, st.Status)
}

func TestUserStateRepository_MedianKeptWhenNil(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewUserStateRepository(testDB.Tx())
	ctx := context.Background()
	ts := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)

	_, err := repo.Apply(ctx, "0xwallet", ts, 500, nil, 30, 50)
	require.NoError(t, err)

	// nil median keeps the bootstrap value
	st, err := repo.Apply(ctx, "0xwallet", ts.Add(time.Minute), 900, nil, 30, 50)
	require.NoError(t, err)
	require.NotNil(t, st.MedianNotional)
	assert.Equal(t, 500.0, *st.MedianNotional)

	// explicit median replaces it
	median := 700.0
	st, err = repo.Apply(ctx, "0xwallet", ts.Add(2*time.Minute), 900, &median, 30, 50)
	require.NoError(t, err)
	require.NotNil(t, st.MedianNotional)
	assert.Equal(t, 700.0, *st.MedianNotional)
}

func TestUserStateRepository_GetAndSetStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewUserStateRepository(testDB.Tx())
	ctx := context.Background()

	_, err := repo.Get(ctx, "0xmissing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = repo.SetStatus(ctx, "0xmissing", userstate.StatusIgnored)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = repo.Apply(ctx, "0xwallet", time.Now().UTC(), 100, nil, 30, 50)
	require.NoError(t, err)

	st, err := repo.Get(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Equal(t, "0xwallet", st.Wallet)
}

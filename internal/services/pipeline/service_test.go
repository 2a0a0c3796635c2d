package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/internal/adapters/config"
	"argus/internal/domain/alert"
	"argus/internal/domain/trade"
	"argus/internal/domain/userstate"
	"argus/internal/domain/window"
	"argus/pkg/errors"
)

type fakeTradeRepo struct {
	seen map[string]bool
	err  error
}

func (f *fakeTradeRepo) Insert(_ context.Context, t *trade.Trade) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[t.ID] {
		return false, nil
	}
	f.seen[t.ID] = true
	return true, nil
}

type fakeArchive struct {
	appended []trade.Trade
	err      error
}

func (f *fakeArchive) Append(_ context.Context, t *trade.Trade) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, *t)
	return nil
}

type fakeSampler struct {
	median float64
	err    error
	calls  int
}

func (f *fakeSampler) Observe(_ context.Context, _ string, _ float64) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.median, nil
}

type fakeWindowRepo struct {
	totals  map[string]float64
	counts  map[string]int64
	alerted map[string]bool
	markErr error
	err     error
}

func windowKey(wallet, conditionID string, windowStart time.Time, sell bool) string {
	side := "buy"
	if sell {
		side = "sell"
	}
	return wallet + "|" + conditionID + "|" + windowStart.String() + "|" + side
}

func (f *fakeWindowRepo) Upsert(_ context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, notional float64, _ time.Time) (window.Totals, error) {
	if f.err != nil {
		return window.Totals{}, f.err
	}
	if f.totals == nil {
		f.totals = map[string]float64{}
		f.counts = map[string]int64{}
	}
	key := wallet + "|" + conditionID + "|" + windowStart.String()
	f.totals[key] += notional
	f.counts[key]++
	return window.Totals{
		TotalNotional: f.totals[key],
		TradeCount:    f.counts[key],
		AlertedBuy:    f.alerted[windowKey(wallet, conditionID, windowStart, false)],
		AlertedSell:   f.alerted[windowKey(wallet, conditionID, windowStart, true)],
	}, nil
}

func (f *fakeWindowRepo) MarkAlerted(_ context.Context, wallet, conditionID string, windowStart time.Time, windowMinutes int, sell bool) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.alerted == nil {
		f.alerted = map[string]bool{}
	}
	f.alerted[windowKey(wallet, conditionID, windowStart, sell)] = true
	return nil
}

type fakeStateRepo struct {
	states map[string]*userstate.UserState
	err    error
}

func (f *fakeStateRepo) Apply(_ context.Context, wallet string, tradeTS time.Time, notional float64, median *float64, dormantDays, activeThreshold int) (*userstate.UserState, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.states == nil {
		f.states = map[string]*userstate.UserState{}
	}
	prev, ok := f.states[wallet]
	if !ok {
		m := notional
		if median != nil {
			m = *median
		}
		st := &userstate.UserState{
			Wallet:         wallet,
			FirstTradeTS:   tradeTS,
			LastTradeTS:    tradeTS,
			TotalTrades:    1,
			LastNotional:   notional,
			MedianNotional: &m,
			Status:         userstate.StatusNew,
		}
		f.states[wallet] = st
		out := *st
		return &out, nil
	}
	isRevived := userstate.IsDormantGap(prev.LastTradeTS, tradeTS, dormantDays)
	prev.TotalTrades++
	prev.Status = userstate.NextStatus(prev.Status, isRevived, prev.TotalTrades, activeThreshold)
	prev.LastTradeTS = tradeTS
	prev.LastNotional = notional
	if median != nil {
		prev.MedianNotional = median
	}
	out := *prev
	return &out, nil
}

func (f *fakeStateRepo) Get(_ context.Context, wallet string) (*userstate.UserState, error) {
	st, ok := f.states[wallet]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *st
	return &out, nil
}

func (f *fakeStateRepo) SetStatus(_ context.Context, wallet string, status userstate.Status) error {
	st, ok := f.states[wallet]
	if !ok {
		return errors.ErrNotFound
	}
	st.Status = status
	return nil
}

type capturePublisher struct {
	topics []string
	keys   []string
	events []alert.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, topic, key string, event interface{}) error {
	if c.err != nil {
		return c.err
	}
	c.topics = append(c.topics, topic)
	c.keys = append(c.keys, key)
	c.events = append(c.events, event.(alert.Event))
	return nil
}

type harness struct {
	svc       *Service
	trades    *fakeTradeRepo
	archive   *fakeArchive
	sampler   *fakeSampler
	windows   *fakeWindowRepo
	states    *fakeStateRepo
	publisher *capturePublisher
}

func pipelineRules() config.RulesConfig {
	return config.RulesConfig{
		WindowMinutes:         5,
		MinTotalNotional:      10000,
		NewUserMaxTrades:      20,
		DormantDays:           30,
		MinWindowNotional:     10000,
		MinVsMedianMult:       5,
		MinWindowTrades:       2,
		TrackSellsSeparately:  true,
		ActiveTradesThreshold: 50,
		MedianSampleSize:      25,
	}
}

func newHarness() *harness {
	h := &harness{
		trades:    &fakeTradeRepo{},
		archive:   &fakeArchive{},
		sampler:   &fakeSampler{median: 100},
		windows:   &fakeWindowRepo{},
		states:    &fakeStateRepo{},
		publisher: &capturePublisher{},
	}
	rules := pipelineRules()
	h.svc = NewService(
		h.trades,
		h.archive,
		h.sampler,
		window.NewAggregator(h.windows, rules),
		userstate.NewTracker(h.states, rules),
		h.publisher,
		rules,
	)
	h.svc.now = func() time.Time { return time.Date(2024, 3, 10, 12, 7, 0, 0, time.UTC) }
	return h
}

func rawTrade(txHash string, side string, size float64) trade.Raw {
	return trade.Raw{
		ProxyWallet:     "0xabc",
		Asset:           "7141",
		ConditionID:     "0xcond",
		Side:            side,
		Price:           0.5,
		Size:            size,
		Timestamp:       1710072000, // 2024-03-10 12:00:00 UTC
		TransactionHash: txHash,
		Title:           "Will it happen?",
		Outcome:         "Yes",
	}
}

func TestProcessBigNewBuyAlerts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// Two trades from a fresh wallet summing past the window threshold.
	res, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.False(t, res.Alerted, "first trade alone fails the density gate")
	assert.Equal(t, alert.ReasonNotEnoughTradesInWindow, res.Decision.Reason)

	res, err = h.svc.Process(ctx, rawTrade("0x2", "BUY", 12000))
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, alert.TypeBuyBigNew, res.Decision.AlertType)

	require.Len(t, h.publisher.events, 1)
	event := h.publisher.events[0]
	assert.Equal(t, "0xabc", h.publisher.keys[0])
	assert.Equal(t, alert.TypeBuyBigNew, event.AlertType)
	assert.Equal(t, "0xabc", event.Wallet)
	assert.Equal(t, "0xcond", event.ConditionID)
	assert.Equal(t, 12000.0, event.WindowNotional)
	assert.Equal(t, int64(2), event.WindowTradeCount)
	assert.NotEmpty(t, event.ID)
}

func TestProcessSellClassifiedSeparately(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x1", "SELL", 12000))
	require.NoError(t, err)
	res, err := h.svc.Process(ctx, rawTrade("0x2", "SELL", 12000))
	require.NoError(t, err)

	assert.True(t, res.Alerted)
	assert.Equal(t, alert.TypeSellBigNew, res.Decision.AlertType)
}

func TestProcessDuplicateStopsDownstream(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)

	samplerCalls := h.sampler.calls
	stateBefore := *h.states.states["0xabc"]

	res, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.False(t, res.Alerted)

	assert.Equal(t, samplerCalls, h.sampler.calls, "duplicate must not touch the median sample")
	assert.Equal(t, stateBefore.TotalTrades, h.states.states["0xabc"].TotalTrades)
	assert.Len(t, h.archive.appended, 1)
}

func TestProcessMalformedTradeSkipped(t *testing.T) {
	h := newHarness()

	raw := rawTrade("0x1", "BUY", 12000)
	raw.ProxyWallet = ""

	res, err := h.svc.Process(context.Background(), raw)
	require.NoError(t, err, "data-quality failures do not raise")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Empty(t, h.trades.seen)
	assert.Empty(t, h.states.states)
}

func TestProcessStorageErrorPropagates(t *testing.T) {
	h := newHarness()
	h.windows.err = errors.ErrStorage

	_, err := h.svc.Process(context.Background(), rawTrade("0x1", "BUY", 12000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
	assert.Empty(t, h.publisher.events)
}

func TestProcessInsertErrorPropagates(t *testing.T) {
	h := newHarness()
	h.trades.err = errors.ErrStorage

	_, err := h.svc.Process(context.Background(), rawTrade("0x1", "BUY", 12000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
}

func TestProcessSamplerFailureDegrades(t *testing.T) {
	h := newHarness()
	h.sampler.err = errors.ErrUnavailable

	res, err := h.svc.Process(context.Background(), rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err, "cache failures are non-fatal")
	assert.Equal(t, OutcomeProcessed, res.Outcome)

	// No sampled median means the bootstrap path runs: first trade's
	// notional becomes the stored median.
	st := h.states.states["0xabc"]
	require.NotNil(t, st.MedianNotional)
	assert.Equal(t, 6000.0, *st.MedianNotional)
}

func TestProcessArchiveFailureNonFatal(t *testing.T) {
	h := newHarness()
	h.archive.err = errors.ErrUnavailable

	res, err := h.svc.Process(context.Background(), rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
}

func TestProcessIgnoredWalletSuppressed(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	require.NoError(t, h.states.SetStatus(ctx, "0xabc", userstate.StatusIgnored))

	res, err := h.svc.Process(ctx, rawTrade("0x2", "BUY", 12000))
	require.NoError(t, err)

	assert.True(t, res.Decision.ShouldAlert, "the decision itself still fires")
	assert.False(t, res.Alerted, "delivery is suppressed for ignored wallets")
	assert.Empty(t, h.publisher.events)
}

func TestProcessWindowAlertsOncePerSide(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// Trade 2 crosses every gate and alerts; trades 3-5 land in the same
	// 5-minute bucket and still pass the gates, but the window latch holds.
	for i, tx := range []string{"0x1", "0x2", "0x3", "0x4", "0x5"} {
		res, err := h.svc.Process(ctx, rawTrade(tx, "BUY", 12000))
		require.NoError(t, err)
		if i >= 1 {
			assert.True(t, res.Decision.ShouldAlert)
		}
		assert.Equal(t, i == 1, res.Alerted, "only the gate-crossing trade publishes")
	}
	require.Len(t, h.publisher.events, 1)

	// The sell side of the same window carries its own latch: the first
	// sell into the already-hot bucket alerts, the second does not.
	res, err := h.svc.Process(ctx, rawTrade("0x6", "SELL", 12000))
	require.NoError(t, err)
	assert.True(t, res.Alerted)

	res, err = h.svc.Process(ctx, rawTrade("0x7", "SELL", 12000))
	require.NoError(t, err)
	assert.False(t, res.Alerted)
	require.Len(t, h.publisher.events, 2)
	assert.Equal(t, alert.TypeBuyBigNew, h.publisher.events[0].AlertType)
	assert.Equal(t, alert.TypeSellBigNew, h.publisher.events[1].AlertType)
}

func TestProcessMarkAlertedErrorPropagates(t *testing.T) {
	h := newHarness()
	h.windows.markErr = errors.ErrStorage
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	_, err = h.svc.Process(ctx, rawTrade("0x2", "BUY", 12000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
}

func TestProcessPublishErrorPropagates(t *testing.T) {
	h := newHarness()
	h.publisher.err = errors.ErrUnavailable
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x1", "BUY", 12000))
	require.NoError(t, err)
	_, err = h.svc.Process(ctx, rawTrade("0x2", "BUY", 12000))
	require.Error(t, err)
}

func TestProcessBelowCandidateSkipsDecision(t *testing.T) {
	h := newHarness()

	res, err := h.svc.Process(context.Background(), rawTrade("0x1", "BUY", 100))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Equal(t, alert.Decision{}, res.Decision, "below the candidate floor the decider never runs")
}

func TestProcessBatchCounts(t *testing.T) {
	h := newHarness()

	bad := rawTrade("0x3", "BUY", 500)
	bad.ConditionID = ""

	raws := []trade.Raw{
		rawTrade("0x1", "BUY", 500),
		rawTrade("0x1", "BUY", 500), // duplicate dedup ID
		bad,
		rawTrade("0x2", "SELL", 700),
	}

	processed, duplicates, rejected, err := h.svc.ProcessBatch(context.Background(), raws)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 1, duplicates)
	assert.Equal(t, 1, rejected)
}

func TestProcessBatchAbortsOnStorageError(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Process(ctx, rawTrade("0x0", "BUY", 500))
	require.NoError(t, err)

	h.states.err = errors.ErrStorage
	processed, _, _, err := h.svc.ProcessBatch(ctx, []trade.Raw{
		rawTrade("0x1", "BUY", 500),
		rawTrade("0x2", "BUY", 500),
	})
	require.Error(t, err)
	assert.Equal(t, 0, processed)
}

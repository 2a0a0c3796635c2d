package alert

import (
	"time"

	"argus/internal/adapters/config"
	"argus/internal/domain/trade"
	"argus/internal/domain/userstate"
	"argus/internal/domain/window"
)

// Decide classifies a trade against the configured thresholds.
//
// Pure function of its inputs: identical arguments always yield the
// identical decision, and no state is touched. Gates run in order - size,
// density, novelty - and the first failing gate names the rejection reason.
//
// now is the single authoritative time base for the dormant check. The
// tracker keys its own revived transition on trade timestamps; alerting is
// a real-time process, so revival here is measured against wall clock.
func Decide(t trade.Trade, state *userstate.UserState, win window.UpdateResult, rules config.RulesConfig, now time.Time) Decision {
	var (
		totalTrades int64
		median      *float64
		lastTradeTS time.Time
	)
	if state != nil {
		totalTrades = state.TotalTrades
		median = state.MedianNotional
		lastTradeTS = state.LastTradeTS
	}

	// A wallet with history but no usable last-trade timestamp cannot be
	// compared against the clock. Data-quality condition: reject, don't
	// crash the pipeline.
	if totalTrades > 0 && lastTradeTS.IsZero() {
		return Decision{ShouldAlert: false, Reason: ReasonInvalidLastTradeTS}
	}

	// 1) Size gate: big by absolute floor, or big relative to the wallet's
	// median notional when one is known.
	bigByAbs := win.TotalNotional >= rules.MinWindowNotional
	bigByMedian := median != nil && *median > 0 && win.TotalNotional >= *median*rules.MinVsMedianMult

	if !bigByAbs && !bigByMedian {
		return Decision{ShouldAlert: false, Reason: ReasonNotBigEnough}
	}

	// 2) Density gate: one large single fill is not coordinated activity.
	if win.TradeCount < int64(rules.MinWindowTrades) {
		return Decision{ShouldAlert: false, Reason: ReasonNotEnoughTradesInWindow}
	}

	// 3) Novelty gate: new by lifetime count, or revived after a dormant gap.
	isNew := totalTrades <= int64(rules.NewUserMaxTrades)

	isRevived := false
	if !lastTradeTS.IsZero() {
		isRevived = userstate.IsDormantGap(lastTradeTS, now, rules.DormantDays)
	}

	if !isNew && !isRevived {
		return Decision{ShouldAlert: false, Reason: ReasonUserNotNewOrRevived}
	}

	// 4) Classification
	if t.Side == trade.SideSell && rules.TrackSellsSeparately {
		return Decision{ShouldAlert: true, Reason: ReasonSellBigNewOrRevived, AlertType: TypeSellBigNew}
	}
	return Decision{ShouldAlert: true, Reason: ReasonBuyBigNewOrRevived, AlertType: TypeBuyBigNew}
}

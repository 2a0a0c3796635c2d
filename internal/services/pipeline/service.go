package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"argus/internal/adapters/config"
	adapterkafka "argus/internal/adapters/kafka"
	"argus/internal/domain/alert"
	"argus/internal/domain/trade"
	"argus/internal/domain/userstate"
	"argus/internal/domain/window"
	"argus/internal/metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Outcome is what happened to one raw trade in the pipeline.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)

// Result reports how one trade moved through the pipeline.
type Result struct {
	Outcome  Outcome
	Decision alert.Decision
	Alerted  bool
}

// MedianSampler feeds one notional into the wallet's rolling sample and
// returns the resulting median.
type MedianSampler interface {
	Observe(ctx context.Context, wallet string, notional float64) (float64, error)
}

// Publisher sends domain events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Service runs the per-trade processing chain: normalize, dedup insert,
// median sample, window fold, user-state fold, alert decision, publish.
// Steps are synchronous; the ClickHouse archive is the only fire-and-forget
// branch.
type Service struct {
	trades    trade.Repository
	archive   trade.Archive
	sampler   MedianSampler
	windows   *window.Aggregator
	states    *userstate.Tracker
	publisher Publisher
	rules     config.RulesConfig
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates the trade processing pipeline
func NewService(
	trades trade.Repository,
	archive trade.Archive,
	sampler MedianSampler,
	windows *window.Aggregator,
	states *userstate.Tracker,
	publisher Publisher,
	rules config.RulesConfig,
) *Service {
	return &Service{
		trades:    trades,
		archive:   archive,
		sampler:   sampler,
		windows:   windows,
		states:    states,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
		log:       logger.Get().With("service", "pipeline"),
	}
}

// Process runs one raw trade through the full chain.
//
// Malformed input is a skip, not a failure: the record is logged and the
// pipeline moves on. A duplicate dedup ID stops after the raw insert with
// every downstream counter untouched. Storage errors propagate so the
// trade is never reported as processed.
func (s *Service) Process(ctx context.Context, raw trade.Raw) (Result, error) {
	started := s.now()

	t, err := trade.Normalize(raw)
	if err != nil {
		source := raw.Source
		if source == "" {
			source = trade.SourceDataAPI
		}
		reason := rejectReason(err)
		metrics.TradeRejects.WithLabelValues(reason).Inc()
		metrics.RecordTrade(source, "rejected", s.now().Sub(started))
		s.log.Warnw("trade rejected",
			"reason", reason,
			"wallet", raw.ProxyWallet,
			"condition_id", raw.ConditionID,
			"tx_hash", raw.TransactionHash,
		)
		return Result{Outcome: OutcomeRejected}, nil
	}

	inserted, err := s.trades.Insert(ctx, &t)
	if err != nil {
		metrics.RecordTrade(t.Source, "error", s.now().Sub(started))
		return Result{}, errors.Wrap(err, "insert raw trade")
	}
	if !inserted {
		metrics.RecordTrade(t.Source, "duplicate", s.now().Sub(started))
		s.log.Debugw("duplicate trade skipped", "trade_id", t.ID)
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	if s.archive != nil {
		if err := s.archive.Append(ctx, &t); err != nil {
			// Analytics path only; the system of record already has the trade.
			s.log.Warnw("trade archive append failed", "trade_id", t.ID, "error", err)
		}
	}

	var median *float64
	if s.sampler != nil {
		m, err := s.sampler.Observe(ctx, t.Wallet, t.Notional)
		if err != nil {
			// Degrade to the previously stored median.
			s.log.Warnw("median sample failed", "wallet", t.Wallet, "error", err)
		} else {
			median = &m
		}
	}

	win, err := s.windows.Update(ctx, t.Wallet, t.ConditionID, t.Timestamp, t.Notional)
	if err != nil {
		metrics.RecordTrade(t.Source, "error", s.now().Sub(started))
		return Result{}, errors.Wrap(err, "update trade window")
	}

	state, err := s.states.RecordTrade(ctx, t.Wallet, t.Timestamp, t.Notional, median)
	if err != nil {
		metrics.RecordTrade(t.Source, "error", s.now().Sub(started))
		return Result{}, errors.Wrap(err, "record user state")
	}

	res := Result{Outcome: OutcomeProcessed}

	if win.IsCandidate {
		res.Decision = alert.Decide(t, state, win, s.rules, s.now())
		metrics.AlertDecisions.WithLabelValues(res.Decision.Reason).Inc()

		if res.Decision.ShouldAlert {
			sell := t.Side == trade.SideSell && s.rules.TrackSellsSeparately
			switch {
			case state.Status == userstate.StatusIgnored:
				s.log.Debugw("alert suppressed for ignored wallet", "wallet", t.Wallet)
			case windowAlreadyAlerted(win, sell):
				metrics.AlertDecisions.WithLabelValues("window_already_alerted").Inc()
				s.log.Debugw("alert suppressed, window already alerted",
					"wallet", t.Wallet,
					"condition_id", t.ConditionID,
					"window_start", win.WindowStart,
				)
			default:
				if err := s.publishAlert(ctx, t, state, win, res.Decision); err != nil {
					metrics.RecordTrade(t.Source, "error", s.now().Sub(started))
					return Result{}, err
				}
				if err := s.windows.MarkAlerted(ctx, t.Wallet, t.ConditionID, win.WindowStart, sell); err != nil {
					metrics.RecordTrade(t.Source, "error", s.now().Sub(started))
					return Result{}, err
				}
				res.Alerted = true
			}
		}
	}

	metrics.RecordTrade(t.Source, "processed", s.now().Sub(started))
	return res, nil
}

// ProcessBatch runs a fetched batch in order, counting outcomes. A storage
// failure aborts the batch so re-ingestion can resume idempotently.
func (s *Service) ProcessBatch(ctx context.Context, raws []trade.Raw) (processed, duplicates, rejected int, err error) {
	for _, raw := range raws {
		res, err := s.Process(ctx, raw)
		if err != nil {
			return processed, duplicates, rejected, err
		}
		switch res.Outcome {
		case OutcomeProcessed:
			processed++
		case OutcomeDuplicate:
			duplicates++
		case OutcomeRejected:
			rejected++
		}
	}
	return processed, duplicates, rejected, nil
}

func (s *Service) publishAlert(ctx context.Context, t trade.Trade, state *userstate.UserState, win window.UpdateResult, d alert.Decision) error {
	event := alert.Event{
		ID:        uuid.New().String(),
		AlertType: d.AlertType,
		Reason:    d.Reason,
		CreatedAt: s.now().UTC(),

		Wallet:      t.Wallet,
		UserStatus:  string(state.Status),
		TotalTrades: state.TotalTrades,

		ConditionID: t.ConditionID,
		Title:       t.Title,
		Slug:        t.Slug,
		Outcome:     t.Outcome,
		Side:        string(t.Side),
		Price:       t.Price,
		Size:        t.Size,
		Notional:    t.Notional,
		TxHash:      t.TxHash,

		TradeTS:          t.Timestamp,
		WindowStart:      win.WindowStart,
		WindowMinutes:    win.WindowMinutes,
		WindowNotional:   win.TotalNotional,
		WindowTradeCount: win.TradeCount,
	}

	if err := s.publisher.Publish(ctx, adapterkafka.TopicTradeAlerts, t.Wallet, event); err != nil {
		return errors.Wrap(err, "publish alert event")
	}

	metrics.AlertsPublished.WithLabelValues(d.AlertType).Inc()
	s.log.Infow("alert published",
		"alert_type", d.AlertType,
		"wallet", t.Wallet,
		"condition_id", t.ConditionID,
		"window_notional", win.TotalNotional,
		"window_trades", win.TradeCount,
	)
	return nil
}

// windowAlreadyAlerted checks the per-window latch for the side the
// decision would classify as. Sells fold into the buy latch when they are
// not tracked separately, matching how Decide classifies them.
func windowAlreadyAlerted(win window.UpdateResult, sell bool) bool {
	if sell {
		return win.AlertedSell
	}
	return win.AlertedBuy
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrMissingWallet):
		return "missing_wallet"
	case errors.Is(err, errors.ErrMissingMarket):
		return "missing_market"
	case errors.Is(err, errors.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, errors.ErrNoNotional):
		return "no_notional"
	default:
		return "invalid"
	}
}

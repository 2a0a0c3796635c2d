package userstate

import (
	"context"
	"time"

	"argus/internal/adapters/config"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Tracker maintains per-wallet lifetime counters and activity status.
type Tracker struct {
	repo  Repository
	rules config.RulesConfig
	log   *logger.Logger
}

// NewTracker creates a user state tracker
func NewTracker(repo Repository, rules config.RulesConfig) *Tracker {
	return &Tracker{repo: repo, rules: rules, log: logger.Get().With("component", "user_state_tracker")}
}

// RecordTrade folds one trade into the wallet's state and returns the
// resulting state. First sight creates the row with status new and the
// trade's notional as the bootstrap median; afterwards the stored row
// transitions per NextStatus. A storage failure is a hard error - trade
// processing for the wallet cannot proceed safely without durable state.
func (t *Tracker) RecordTrade(ctx context.Context, wallet string, tradeTS time.Time, notional float64, median *float64) (*UserState, error) {
	if wallet == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "record trade: empty wallet")
	}
	if tradeTS.IsZero() {
		return nil, errors.Wrap(errors.ErrInvalidTimestamp, "record trade")
	}

	state, err := t.repo.Apply(ctx, wallet, tradeTS, notional, median, t.rules.DormantDays, t.rules.ActiveTradesThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "apply user state")
	}
	return state, nil
}

// Get returns the wallet's state, or errors.ErrNotFound.
func (t *Tracker) Get(ctx context.Context, wallet string) (*UserState, error) {
	return t.repo.Get(ctx, wallet)
}

// Ignore marks the wallet ignored. Sticky: trade flow never clears it.
func (t *Tracker) Ignore(ctx context.Context, wallet string) error {
	if wallet == "" {
		return errors.Wrap(errors.ErrInvalidInput, "ignore: empty wallet")
	}
	if err := t.repo.SetStatus(ctx, wallet, StatusIgnored); err != nil {
		return errors.Wrap(err, "set ignored status")
	}
	t.log.Infow("wallet ignored", "wallet", wallet)
	return nil
}

// Unignore lifts an ignore override, returning the wallet to active.
func (t *Tracker) Unignore(ctx context.Context, wallet string) error {
	if wallet == "" {
		return errors.Wrap(errors.ErrInvalidInput, "unignore: empty wallet")
	}
	return t.repo.SetStatus(ctx, wallet, StatusActive)
}

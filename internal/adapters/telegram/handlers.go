package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"argus/internal/domain/userstate"
	clickhouserepo "argus/internal/repository/clickhouse"
	"argus/internal/services/ingest"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

const helpText = `*Argus commands*

/status - feed statistics for the last 24h
/report <conditionId> - market activity workbook
/watch <conditionId> - backfill a market through the pipeline (admin)
/ignore <wallet> - mute alerts for a wallet (admin)
/unignore <wallet> - restore alerts for a wallet (admin)
/help - this message`

// Sender is the outgoing Telegram surface the handler needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
}

// StateAdmin mutes and unmutes wallets.
type StateAdmin interface {
	Ignore(ctx context.Context, wallet string) error
	Unignore(ctx context.Context, wallet string) error
	Get(ctx context.Context, wallet string) (*userstate.UserState, error)
}

// ReportGenerator builds a market workbook and returns its path.
type ReportGenerator interface {
	GenerateMarketReport(ctx context.Context, conditionID string) (string, error)
}

// Backfiller ingests one market's history.
type Backfiller interface {
	BackfillMarket(ctx context.Context, conditionID string, maxTrades int) (ingest.Stats, error)
}

// StatsProvider reads archived feed statistics.
type StatsProvider interface {
	Stats(ctx context.Context, since time.Time) (*clickhouserepo.FeedStats, error)
	TopMarkets(ctx context.Context, since time.Time, limit int) ([]clickhouserepo.MarketTurnover, error)
}

// Handler routes bot commands. Mutating commands are gated on the admin
// list; everything else is open to any chat the bot is in.
type Handler struct {
	sender   Sender
	states   StateAdmin
	reports  ReportGenerator
	backfill Backfiller
	stats    StatsProvider
	adminIDs map[int64]struct{}
	log      *logger.Logger
}

// NewHandler creates a command handler
func NewHandler(sender Sender, states StateAdmin, reports ReportGenerator, backfill Backfiller, stats StatsProvider, adminIDs []int64) *Handler {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Handler{
		sender:   sender,
		states:   states,
		reports:  reports,
		backfill: backfill,
		stats:    stats,
		adminIDs: admins,
		log:      logger.Get().With("component", "telegram_handler"),
	}
}

// HandleUpdate processes one incoming update.
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())

	h.log.Debugw("command received", "command", msg.Command(), "from_id", userID)

	var err error
	switch msg.Command() {
	case "start", "help":
		err = h.sender.SendMessage(ctx, chatID, helpText)
	case "status":
		err = h.handleStatus(ctx, chatID)
	case "report":
		err = h.handleReport(ctx, chatID, args)
	case "watch":
		err = h.adminGated(ctx, chatID, userID, func() error {
			return h.handleWatch(ctx, chatID, args)
		})
	case "ignore":
		err = h.adminGated(ctx, chatID, userID, func() error {
			return h.handleIgnore(ctx, chatID, args)
		})
	case "unignore":
		err = h.adminGated(ctx, chatID, userID, func() error {
			return h.handleUnignore(ctx, chatID, args)
		})
	default:
		err = h.sender.SendMessage(ctx, chatID, "Unknown command. Try /help")
	}

	if err != nil {
		h.log.Errorw("command failed", "command", msg.Command(), "error", err)
		_ = h.sender.SendMessage(ctx, chatID, "Something went wrong, check the logs.")
	}
}

func (h *Handler) adminGated(ctx context.Context, chatID, userID int64, fn func() error) error {
	if _, ok := h.adminIDs[userID]; !ok {
		return h.sender.SendMessage(ctx, chatID, "This command is restricted to admins.")
	}
	return fn()
}

func (h *Handler) handleStatus(ctx context.Context, chatID int64) error {
	stats, err := h.stats.Stats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return errors.Wrap(err, "read feed stats")
	}

	text := fmt.Sprintf(
		"*Feed, last 24h*\nTrades: %s\nTurnover: $%s\nWallets: %s\nMarkets: %s",
		humanize.Comma(int64(stats.Trades)),
		humanize.CommafWithDigits(stats.TurnoverUSD, 0),
		humanize.Comma(int64(stats.UniqueWallets)),
		humanize.Comma(int64(stats.UniqueMarkets)),
	)

	top, err := h.stats.TopMarkets(ctx, time.Now().Add(-24*time.Hour), 5)
	if err != nil {
		return errors.Wrap(err, "read top markets")
	}
	if len(top) > 0 {
		text += "\n\n*Top markets*"
		for _, m := range top {
			text += fmt.Sprintf(
				"\n`%s` $%s (%s trades)",
				m.ConditionID,
				humanize.CommafWithDigits(m.BuyUSD+m.SellUSD, 0),
				humanize.Comma(int64(m.Trades)),
			)
		}
	}

	return h.sender.SendMessage(ctx, chatID, text)
}

func (h *Handler) handleReport(ctx context.Context, chatID int64, conditionID string) error {
	if conditionID == "" {
		return h.sender.SendMessage(ctx, chatID, "Usage: /report <conditionId>")
	}

	if err := h.sender.SendMessage(ctx, chatID, "Building report, this can take a while..."); err != nil {
		return err
	}

	path, err := h.reports.GenerateMarketReport(ctx, conditionID)
	if err != nil {
		return errors.Wrap(err, "generate report")
	}

	return h.sender.SendDocument(ctx, chatID, path, fmt.Sprintf("Market report for %s", conditionID))
}

func (h *Handler) handleWatch(ctx context.Context, chatID int64, conditionID string) error {
	if conditionID == "" {
		return h.sender.SendMessage(ctx, chatID, "Usage: /watch <conditionId>")
	}

	stats, err := h.backfill.BackfillMarket(ctx, conditionID, 0)
	if err != nil {
		return errors.Wrap(err, "backfill market")
	}

	text := fmt.Sprintf(
		"Backfill done for `%s`\nFetched: %d\nProcessed: %d\nDuplicates: %d\nRejected: %d",
		conditionID, stats.Fetched, stats.Processed, stats.Duplicates, stats.Rejected,
	)
	return h.sender.SendMessage(ctx, chatID, text)
}

func (h *Handler) handleIgnore(ctx context.Context, chatID int64, wallet string) error {
	if wallet == "" {
		return h.sender.SendMessage(ctx, chatID, "Usage: /ignore <wallet>")
	}
	if err := h.states.Ignore(ctx, wallet); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return h.sender.SendMessage(ctx, chatID, "Wallet not seen yet, nothing to ignore.")
		}
		return err
	}
	return h.sender.SendMessage(ctx, chatID, fmt.Sprintf("Alerts muted for `%s`", wallet))
}

func (h *Handler) handleUnignore(ctx context.Context, chatID int64, wallet string) error {
	if wallet == "" {
		return h.sender.SendMessage(ctx, chatID, "Usage: /unignore <wallet>")
	}
	if err := h.states.Unignore(ctx, wallet); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return h.sender.SendMessage(ctx, chatID, "Wallet not seen yet.")
		}
		return err
	}
	return h.sender.SendMessage(ctx, chatID, fmt.Sprintf("Alerts restored for `%s`", wallet))
}

package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"argus/internal/domain/alert"
	"argus/pkg/logger"
)

// Notifier renders alert events into Telegram messages for the alert chat.
type Notifier struct {
	sender Sender
	chatID int64
	log    *logger.Logger
}

// NewNotifier creates an alert notifier
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		log:    logger.Get().With("component", "alert_notifier"),
	}
}

// Notify sends one formatted alert to the configured chat.
func (n *Notifier) Notify(ctx context.Context, event alert.Event) error {
	return n.sender.SendMessage(ctx, n.chatID, FormatAlert(event))
}

// FormatAlert renders an alert event as a Markdown message.
func FormatAlert(event alert.Event) string {
	var b strings.Builder

	emoji := "🟢"
	if event.AlertType == alert.TypeSellBigNew {
		emoji = "🔴"
	}

	fmt.Fprintf(&b, "%s *%s*\n\n", emoji, event.AlertType)

	if event.Title != "" {
		fmt.Fprintf(&b, "*Market:* %s\n", event.Title)
	}
	if event.Outcome != "" {
		fmt.Fprintf(&b, "*Outcome:* %s\n", event.Outcome)
	}

	fmt.Fprintf(&b, "*Wallet:* `%s` (%s, %s lifetime trades)\n",
		event.Wallet, event.UserStatus, humanize.Comma(event.TotalTrades))

	fmt.Fprintf(&b, "*Trade:* %s %s shares @ %.3f = $%s\n",
		event.Side,
		humanize.CommafWithDigits(event.Size, 1),
		event.Price,
		humanize.CommafWithDigits(event.Notional, 0),
	)

	fmt.Fprintf(&b, "*Window:* $%s over %d trades in %dm\n",
		humanize.CommafWithDigits(event.WindowNotional, 0),
		event.WindowTradeCount,
		event.WindowMinutes,
	)

	if event.Slug != "" {
		fmt.Fprintf(&b, "\nhttps://polymarket.com/event/%s", event.Slug)
	}

	return b.String()
}

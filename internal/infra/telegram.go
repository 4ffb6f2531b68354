package infra

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// DebtReminder is the payload a reminder message is rendered from.
type DebtReminder struct {
	CustomerName  string
	CustomerPhone string
	RemainingDebt decimal.Decimal
	DueDate       string
}

// Notifier sends operator notifications through a Telegram bot. A nil
// Notifier (no token configured) silently drops messages so notification
// wiring never blocks the data path.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier authenticates the bot. An empty token yields a nil notifier.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// SendDebtReminders pushes one combined message listing every debtor whose
// due date falls inside the reminder window.
func (n *Notifier) SendDebtReminders(reminders []DebtReminder) error {
	if n == nil || len(reminders) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("<b>Payment reminder</b>\n\n")
	b.WriteString("These customers' debt is due soon:\n\n")
	for _, r := range reminders {
		fmt.Fprintf(&b, "<b>%s</b>\n", r.CustomerName)
		fmt.Fprintf(&b, "Phone: %s\n", r.CustomerPhone)
		fmt.Fprintf(&b, "Outstanding: %s\n", r.RemainingDebt.StringFixed(0))
		fmt.Fprintf(&b, "Due: %s\n\n", r.DueDate)
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := n.bot.Send(msg)
	return err
}

// SendText delivers a plain operator message (used by the test-message path).
func (n *Notifier) SendText(text string) error {
	if n == nil {
		return nil
	}
	_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}

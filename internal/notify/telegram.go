package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botSender is the subset of tgbotapi.BotAPI used here, allowing tests to
// supply a fake without a live connection.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts booking alerts to a sales channel.
type Telegram struct {
	bot    botSender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) NotifyBooking(ctx context.Context, alert BookingAlert) error {
	msg := tgbotapi.NewMessage(t.chatID, formatAlert(alert))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	return nil
}

func formatAlert(alert BookingAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New demo booked\n\n")
	fmt.Fprintf(&b, "Lead: %s <%s>\n", alert.LeadName, alert.LeadEmail)
	fmt.Fprintf(&b, "Company: %s", alert.Company)
	if alert.CompanySize != "" {
		fmt.Fprintf(&b, " (%s)", alert.CompanySize)
	}
	b.WriteString("\n")
	if alert.Interests != "" {
		fmt.Fprintf(&b, "Interests: %s\n", alert.Interests)
	}
	if alert.BudgetRange != "" {
		fmt.Fprintf(&b, "Budget: %s\n", alert.BudgetRange)
	}
	fmt.Fprintf(&b, "When: %s at %s\n", alert.DisplayDate, alert.DisplayTime)
	if alert.MeetLink != "" {
		fmt.Fprintf(&b, "Meet: %s\n", alert.MeetLink)
	}
	return b.String()
}

package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ringbook/internal/models"
)

// TelegramNotifier posts the booking notice to a staff Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Name implements Notifier.
func (t *TelegramNotifier) Name() string { return "telegram" }

// NotifyBooked sends the staff message for a booked slot.
func (t *TelegramNotifier) NotifyBooked(_ context.Context, slot models.Slot, holderRef string) error {
	text := fmt.Sprintf("New appointment booked\n\nSlot: %s\nHolder: %s",
		slot.ConfirmationTime(), holderRef)
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	return nil
}

package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"macd-vol-bot/models"
)

// TelegramNotifier mirrors signal cards into a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a Telegram notifier for the given chat
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// SendSignal delivers the formatted signal card.
func (n *TelegramNotifier) SendSignal(ctx context.Context, sig models.Signal, advisory string) error {
	if err := n.SendText(ctx, FormatSignalMessage(sig, advisory)); err != nil {
		return err
	}
	n.logger.Info().
		Str("instrument", sig.Instrument).
		Str("timeframe", sig.Timeframe).
		Str("direction", string(sig.Direction)).
		Msg("Signal delivered to Telegram")
	return nil
}

// SendText delivers a plain-text notice.
func (n *TelegramNotifier) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

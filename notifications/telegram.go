package notifications

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramAlerter posts admin alerts to a single Telegram chat.
type TelegramAlerter struct {
	bot    *bot.Bot
	chatID int64
}

func NewTelegramAlerter(token string, chatID int64) (*TelegramAlerter, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramAlerter{bot: b, chatID: chatID}, nil
}

func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	_, err := a.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: a.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

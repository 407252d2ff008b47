// Package telegram is the Telegram ingress. It maps incoming updates
// onto the identity, group, and conversation components and sends the
// generated reply back to the chat.
package telegram

import (
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

// New creates the underlying Telegram bot instance.
func New(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created")
	return b, nil
}

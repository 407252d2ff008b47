package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// UpdateLogger returns bot middleware that logs one line per processed
// update with chat, user, and handling duration.
func UpdateLogger(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			var chatID, userID int64
			if update.Message != nil {
				chatID = update.Message.Chat.ID
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
			}

			next(ctx, b, update)

			log.DebugContext(ctx, "Update processed",
				"update_id", update.ID,
				"chat_id", chatID,
				"telegram_user_id", userID,
				"duration", time.Since(start),
			)
		}
	}
}

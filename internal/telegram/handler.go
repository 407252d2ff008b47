package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/convocore/convocore/internal/convo"
	"github.com/convocore/convocore/internal/groups"
	"github.com/convocore/convocore/internal/identity"
	"github.com/convocore/convocore/internal/platform"
)

const (
	turnTimeout        = 2 * time.Minute
	sendMessageTimeout = 10 * time.Second
)

// HandlerDeps contains everything the message handler needs.
type HandlerDeps struct {
	Logger    *slog.Logger
	Identity  *identity.Resolver
	Groups    *groups.Resolver
	Assembler *convo.Assembler
}

type messageHandler struct {
	deps HandlerDeps
}

// NewMessageHandler returns the catch-all handler that turns each text
// message into a full chat turn. A negative chat id marks a group chat;
// the group is resolved and the sender's membership ensured before the
// turn runs, so the entry lands in the right scope.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update without usable text message", "update_id", update.ID)
		return
	}

	chatID := msg.Chat.ID
	telegramUserID := strconv.FormatInt(msg.From.ID, 10)

	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	user, err := deps.Identity.Resolve(turnCtx, map[platform.Platform]string{
		platform.Telegram: telegramUserID,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve user from update",
			"telegram_user_id", telegramUserID, "error", err)
		return
	}

	var groupID *string
	if chatID < 0 {
		group, err := deps.Groups.Resolve(turnCtx, map[platform.Platform]string{
			platform.Telegram: strconv.FormatInt(chatID, 10),
		}, msg.Chat.Title, "")
		if err != nil {
			log.ErrorContext(ctx, "Failed to resolve group from update",
				"chat_id", chatID, "error", err)
			return
		}
		if _, err := deps.Groups.EnsureMembership(turnCtx, user.ID, group.ID, ""); err != nil {
			log.ErrorContext(ctx, "Failed to ensure group membership",
				"user_id", user.ID, "group_id", group.ID, "error", err)
			return
		}
		groupID = &group.ID
	}

	reply, err := deps.Assembler.Turn(turnCtx, convo.TurnParams{
		UserID:   user.ID,
		GroupID:  groupID,
		Message:  msg.Text,
		Platform: platform.Telegram,
	})
	if err != nil {
		log.ErrorContext(ctx, "Chat turn failed",
			"user_id", user.ID, "chat_id", chatID, "error", err)
		return
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancelSend()
	_, err = b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            reply,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
		return
	}

	log.DebugContext(ctx, "Chat turn completed",
		"user_id", user.ID, "chat_id", chatID, "group_scoped", groupID != nil)
}

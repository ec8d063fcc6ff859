// Package service holds the submission and moderation workflows.
package service

import (
	"context"

	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"
)

// Messenger is the narrow slice of the chat gateway the workflows call.
type Messenger interface {
	// Send delivers a message and returns its id.
	Send(ctx context.Context, msg models.OutgoingMessage) (int, error)
	Edit(ctx context.Context, edit models.MessageEdit) error
}

// notify sends msg and only logs a failure. Deliveries to users and
// reviewers are best-effort once state has been committed.
func notify(ctx context.Context, m Messenger, msg models.OutgoingMessage) {
	if _, err := m.Send(ctx, msg); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "send failed", "chat_kind", chatKindOf(msg.ChatID), "error", err)
	}
}

func edit(ctx context.Context, m Messenger, e models.MessageEdit) {
	if err := m.Edit(ctx, e); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "edit failed", "chat_kind", chatKindOf(e.ChatID), "error", err)
	}
}

// reply answers msg in its own chat.
func reply(ctx context.Context, m Messenger, msg models.InboundMessage, text string, html bool) {
	notify(ctx, m, models.OutgoingMessage{ChatID: msg.Chat.ID, Text: text, HTML: html, ReplyTo: msg.ID})
}

// chatKindOf avoids logging raw chat ids, which equal user ids in private chats.
func chatKindOf(chatID int64) string {
	if chatID < 0 {
		return "group"
	}
	return "private"
}

// Package bot connects the workflows to the Telegram Bot API.
package bot

import (
	"context"
	"fmt"

	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the gateway uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gateway implements service.Messenger over the Bot API.
type Gateway struct {
	api API
}

// NewGateway returns a Gateway.
func NewGateway(api API) *Gateway {
	return &Gateway{api: api}
}

// Send delivers msg and returns the id Telegram assigned to it.
func (g *Gateway) Send(ctx context.Context, msg models.OutgoingMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := g.api.Send(messageConfig(msg))
	if err != nil {
		observability.GatewayErrors.WithLabelValues("sendMessage").Inc()
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// Edit changes an existing message's text or buttons.
func (g *Gateway) Edit(ctx context.Context, e models.MessageEdit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.api.Request(editConfig(e)); err != nil {
		observability.GatewayErrors.WithLabelValues("editMessage").Inc()
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (g *Gateway) AnswerCallback(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := g.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		observability.GatewayErrors.WithLabelValues("answerCallbackQuery").Inc()
		observability.GlobalLogger.WarnContext(ctx, "answer callback failed", "error", err)
		return err
	}
	return nil
}

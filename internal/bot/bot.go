package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"intentionsbot/internal/observability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot long-polls Telegram and hands every update to the dispatcher on its
// own goroutine.
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	wg         sync.WaitGroup
}

// Connect authenticates against the Bot API.
func Connect(token string, debugMode bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debugMode
	observability.GlobalLogger.Info("Telegram connected", "username", api.Self.UserName)
	return api, nil
}

// New returns a Bot over an authenticated API client.
func New(api *tgbotapi.BotAPI, dispatcher *Dispatcher) *Bot {
	return &Bot{api: api, dispatcher: dispatcher}
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
// Handlers already running finish even after cancellation.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	cfg.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	updates := b.api.GetUpdatesChan(cfg)

	observability.GlobalLogger.Info("Bot ready, polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case u, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.dispatcher.Handle(context.WithoutCancel(ctx), u)
			}()
		}
	}
}

// Handle dispatches one update with logging context, a span, metrics and
// panic recovery. Errors are logged and never stop the loop.
func (d *Dispatcher) Handle(ctx context.Context, u tgbotapi.Update) {
	kind := updateKind(u)
	chatKind := updateChatKind(u).String()

	ctx = observability.WithUpdate(ctx, u.UpdateID, chatKind)
	span, ctx := observability.StartUpdateSpan(ctx, u.UpdateID, kind, chatKind)
	defer span.End()
	defer observability.TrackUpdate(kind)()

	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			observability.GlobalLogger.ErrorContext(ctx, "panic while handling update", "panic", r, "stack", string(debug.Stack()))
			span.SetError(fmt.Errorf("panic: %v", r))
		}
		span.SetOutcome(outcome)
		observability.UpdatesHandled.WithLabelValues(kind, outcome).Inc()
	}()

	if err := d.Dispatch(ctx, u); err != nil {
		outcome = "error"
		span.SetError(err)
		observability.GlobalLogger.ErrorContext(ctx, "update failed", "error", err)
	}
}

package bot

import (
	"context"
	"strings"

	"intentionsbot/internal/models"
	"intentionsbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update kinds used for metrics and spans.
const (
	kindMessage    = "message"
	kindCommand    = "command"
	kindCallback   = "callback"
	kindMembership = "membership"
	kindOther      = "other"
)

// CallbackAnswerer acknowledges button presses.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, id string) error
}

// Dispatcher routes one update to the workflow that owns it.
type Dispatcher struct {
	submissions *service.SubmissionService
	moderation  *service.ModerationService
	answerer    CallbackAnswerer
	botID       int64
}

// NewDispatcher returns a Dispatcher. botID is the bot's own user id, used
// to recognize replies addressed to it.
func NewDispatcher(
	submissions *service.SubmissionService,
	moderation *service.ModerationService,
	answerer CallbackAnswerer,
	botID int64,
) *Dispatcher {
	return &Dispatcher{
		submissions: submissions,
		moderation:  moderation,
		answerer:    answerer,
		botID:       botID,
	}
}

func updateKind(u tgbotapi.Update) string {
	switch {
	case u.Message != nil && u.Message.IsCommand():
		return kindCommand
	case u.Message != nil:
		return kindMessage
	case u.CallbackQuery != nil:
		return kindCallback
	case u.MyChatMember != nil:
		return kindMembership
	default:
		return kindOther
	}
}

func updateChatKind(u tgbotapi.Update) models.ChatKind {
	switch {
	case u.Message != nil:
		return toChat(u.Message.Chat).Kind
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return toChat(u.CallbackQuery.Message.Chat).Kind
	case u.MyChatMember != nil:
		return toChat(&u.MyChatMember.Chat).Kind
	default:
		return models.ChatOther
	}
}

// Dispatch handles a single update.
func (d *Dispatcher) Dispatch(ctx context.Context, u tgbotapi.Update) error {
	switch {
	case u.Message != nil && u.Message.IsCommand():
		return d.command(ctx, toCommand(u.Message))
	case u.Message != nil:
		return d.message(ctx, *toInbound(u.Message))
	case u.CallbackQuery != nil:
		return d.callback(ctx, toCallback(u.CallbackQuery))
	case u.MyChatMember != nil:
		return d.membership(ctx, u.MyChatMember)
	}
	return nil
}

func (d *Dispatcher) command(ctx context.Context, cmd models.Command) error {
	switch strings.ToLower(cmd.Name) {
	case "start":
		return d.submissions.Start(ctx, cmd.Message)
	case "ping":
		return d.submissions.Ping(ctx, cmd.Message)
	case "reject":
		return d.moderation.Reject(ctx, cmd)
	case "ban":
		return d.moderation.Ban(ctx, cmd)
	case "unban":
		return d.moderation.Unban(ctx, cmd)
	case "feedback":
		return d.moderation.Feedback(ctx, cmd)
	case "baninfo":
		return d.moderation.BanInfo(ctx, cmd)
	}
	return nil
}

func (d *Dispatcher) message(ctx context.Context, msg models.InboundMessage) error {
	if msg.Text == "" {
		return nil
	}
	switch msg.Chat.Kind {
	case models.ChatPrivate:
		return d.submissions.Submit(ctx, msg)
	case models.ChatGroup:
		// With privacy mode on only replies to the bot reach us, but
		// check anyway.
		if msg.ReplyTo == nil || !msg.ReplyTo.From.IsBot || msg.ReplyTo.From.ID != d.botID {
			return nil
		}
		return d.moderation.Activate(ctx, msg)
	}
	return nil
}

func (d *Dispatcher) callback(ctx context.Context, cb models.Callback) error {
	if d.answerer != nil {
		_ = d.answerer.AnswerCallback(ctx, cb.ID)
	}

	switch {
	case cb.Data == models.CallbackConfirmSend:
		return d.submissions.Confirm(ctx, cb)
	case cb.Data == models.CallbackCancelSend:
		return d.submissions.Cancel(ctx, cb)
	case cb.Data == models.CallbackNewIntention:
		return d.submissions.NewIntention(ctx, cb)
	case strings.HasPrefix(cb.Data, models.CallbackInstructions):
		return d.submissions.ShowInstructions(ctx, cb)
	case models.IsActionData(cb.Data):
		return d.moderation.HandleReviewerButton(ctx, cb)
	}
	return nil
}

func (d *Dispatcher) membership(ctx context.Context, m *tgbotapi.ChatMemberUpdated) error {
	switch m.NewChatMember.Status {
	case "member", "administrator":
		return d.moderation.BotAdded(ctx, toChat(&m.Chat))
	}
	return nil
}

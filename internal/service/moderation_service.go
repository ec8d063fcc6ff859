package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"intentionsbot/internal/featureflags"
	"intentionsbot/internal/identity"
	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"
	"intentionsbot/internal/repository"
)

// OutboxState is the activation state as seen from one chat.
type OutboxState int

const (
	// OutboxInactive means no outbox is registered or it is another chat.
	OutboxInactive OutboxState = iota
	// OutboxActive means the chat is the registered outbox.
	OutboxActive
)

func (s OutboxState) String() string {
	if s == OutboxActive {
		return "active"
	}
	return "inactive"
}

var errNoSenderReference = errors.New("message carries no sender reference")

// ModerationService runs the outbox protocol and the reviewer actions.
type ModerationService struct {
	bans      repository.BanRepository
	outbox    repository.OutboxRepository
	messenger Messenger
	flags     *featureflags.Manager
	password  string
}

// NewModerationService returns a new ModerationService.
func NewModerationService(
	bans repository.BanRepository,
	outbox repository.OutboxRepository,
	messenger Messenger,
	flags *featureflags.Manager,
	password string,
) *ModerationService {
	return &ModerationService{
		bans:      bans,
		outbox:    outbox,
		messenger: messenger,
		flags:     flags,
		password:  password,
	}
}

// StateFor reports whether chatID is the registered outbox.
func (s *ModerationService) StateFor(ctx context.Context, chatID int64) (OutboxState, error) {
	id, ok, err := s.outbox.Get(ctx)
	if err != nil {
		return OutboxInactive, err
	}
	if ok && id == chatID {
		return OutboxActive, nil
	}
	return OutboxInactive, nil
}

// Activate handles a text message addressed to the bot in a group. In the
// active outbox it does nothing; elsewhere the text is checked against the
// activation password.
func (s *ModerationService) Activate(ctx context.Context, msg models.InboundMessage) error {
	if msg.Chat.Kind != models.ChatGroup {
		return nil
	}

	state, err := s.StateFor(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if state == OutboxActive {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(msg.Text), []byte(s.password)) != 1 {
		reply(ctx, s.messenger, msg, wrongPasswordText, false)
		return nil
	}

	prev, had, err := s.outbox.Swap(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	observability.OutboxActivations.Inc()
	observability.GlobalLogger.InfoContext(ctx, "outbox activated", "replaced", had && prev != msg.Chat.ID)

	if had && prev != msg.Chat.ID {
		notify(ctx, s.messenger, models.OutgoingMessage{ChatID: prev, Text: deactivatedText})
	}
	reply(ctx, s.messenger, msg, activatedText, false)
	return nil
}

// BotAdded greets a group the bot was just added to.
func (s *ModerationService) BotAdded(ctx context.Context, chat models.Chat) error {
	if chat.Kind != models.ChatGroup {
		return nil
	}
	state, err := s.StateFor(ctx, chat.ID)
	if err != nil {
		return err
	}
	text := askPasswordText
	if state == OutboxActive {
		text = backAgainText
	}
	notify(ctx, s.messenger, models.OutgoingMessage{ChatID: chat.ID, Text: text})
	return nil
}

// Forward posts a confirmed submission to the outbox with reviewer buttons
// carrying the sender reference.
func (s *ModerationService) Forward(ctx context.Context, outboxID, senderID int64, text string) error {
	_, err := s.messenger.Send(ctx, models.OutgoingMessage{
		ChatID:   outboxID,
		Text:     text,
		Keyboard: reviewerKeyboard(senderID),
	})
	if err != nil {
		return fmt.Errorf("forward submission: %w", err)
	}
	return nil
}

// GuardBanned tells a banned user their token and reports true. Callers
// stop processing when it does.
func (s *ModerationService) GuardBanned(ctx context.Context, user models.User, replyTo int) (bool, error) {
	token, banned, err := s.bans.GetBanToken(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if !banned {
		return false, nil
	}
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:  user.ID,
		Text:    bannedNoticeText(token),
		HTML:    true,
		ReplyTo: replyTo,
	})
	return true, nil
}

// HandleReviewerButton processes a button press on a forwarded submission.
// Presses outside the active outbox are ignored.
func (s *ModerationService) HandleReviewerButton(ctx context.Context, cb models.Callback) error {
	if cb.Message == nil || cb.Message.Chat.Kind != models.ChatGroup {
		return nil
	}
	state, err := s.StateFor(ctx, cb.Message.Chat.ID)
	if err != nil {
		return err
	}
	if state != OutboxActive {
		return nil
	}

	forwarded := *cb.Message
	payload, err := models.ParseActionPayload(cb.Data)
	if err != nil {
		s.markMalformed(ctx, forwarded)
		return nil
	}

	switch payload.Action {
	case models.ActionActions:
		notify(ctx, s.messenger, models.OutgoingMessage{
			ChatID: forwarded.Chat.ID,
			Text:   s.reviewerHelp(cb.From),
			HTML:   true,
		})
	case models.ActionAccept:
		observability.ModerationActions.WithLabelValues("accept").Inc()
		notify(ctx, s.messenger, models.OutgoingMessage{
			ChatID:   payload.UserID,
			Text:     acceptedSenderText(forwarded.Text),
			HTML:     true,
			Keyboard: newIntentionKeyboard(),
		})
		edit(ctx, s.messenger, models.MessageEdit{
			ChatID:       forwarded.Chat.ID,
			MessageID:    forwarded.ID,
			KeyboardOnly: true,
		})
		reply(ctx, s.messenger, forwarded, acceptedReviewerText(cb.From.FirstName), false)
	}
	return nil
}

func (s *ModerationService) reviewerHelp(reviewer models.User) string {
	if s.flags.Enabled(featureflags.Feedback, identity.Hash(reviewer.ID)) {
		return reviewerHelpText + reviewerHelpFeedbackLine
	}
	return reviewerHelpText
}

// Reject marks the replied-to submission as rejected and tells the sender why.
func (s *ModerationService) Reject(ctx context.Context, cmd models.Command) error {
	target, senderID, ok, err := s.reviewTarget(ctx, cmd, needReasonText)
	if err != nil || !ok {
		return err
	}

	reason := cmd.ArgText()
	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    target.Chat.ID,
		MessageID: target.ID,
		Text:      rejectedForwardText(target.Text, cmd.Message.From.FirstName, reason),
		HTML:      true,
	})
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID: senderID,
		Text:   rejectedSenderText(target.Text, reason),
		HTML:   true,
	})
	reply(ctx, s.messenger, cmd.Message, rejectedAckText, false)

	observability.ModerationActions.WithLabelValues("reject").Inc()
	return nil
}

// Ban bans the sender of the replied-to submission.
func (s *ModerationService) Ban(ctx context.Context, cmd models.Command) error {
	target, senderID, ok, err := s.reviewTarget(ctx, cmd, needReasonText)
	if err != nil || !ok {
		return err
	}

	reason := cmd.ArgText()
	res, err := s.bans.Ban(ctx, senderID, reason, target.Text, cmd.Message.From.ID)
	if err != nil {
		return err
	}

	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    target.Chat.ID,
		MessageID: target.ID,
		Text:      bannedForwardText(target.Text, cmd.Message.From.FirstName, reason, res.Token),
		HTML:      true,
	})
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID: senderID,
		Text:   bannedSenderText(target.Text, reason, res.Token),
		HTML:   true,
	})
	reply(ctx, s.messenger, cmd.Message, bannedReviewerText(res.Token), true)

	observability.ModerationActions.WithLabelValues("ban").Inc()
	return nil
}

// Feedback relays a reviewer message to the sender of the replied-to
// submission.
func (s *ModerationService) Feedback(ctx context.Context, cmd models.Command) error {
	if !s.flags.Enabled(featureflags.Feedback, identity.Hash(cmd.Message.From.ID)) {
		return nil
	}

	target, senderID, ok, err := s.reviewTarget(ctx, cmd, needFeedbackText)
	if err != nil || !ok {
		return err
	}

	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID: senderID,
		Text:   feedbackSenderText(target.Text, cmd.ArgText()),
		HTML:   true,
	})
	reply(ctx, s.messenger, cmd.Message, feedbackSentText, false)

	observability.ModerationActions.WithLabelValues("feedback").Inc()
	return nil
}

// Unban lifts the ban behind a token.
func (s *ModerationService) Unban(ctx context.Context, cmd models.Command) error {
	ok, err := s.requireOutbox(ctx, cmd.Message)
	if err != nil || !ok {
		return err
	}
	if len(cmd.Args) == 0 {
		reply(ctx, s.messenger, cmd.Message, needTokenText, false)
		return nil
	}

	removed, err := s.bans.Unban(ctx, cmd.Args[0])
	if models.HasCode(err, models.CodeValidation) {
		reply(ctx, s.messenger, cmd.Message, unknownTokenText, false)
		return nil
	}
	if err != nil {
		return err
	}
	if !removed {
		reply(ctx, s.messenger, cmd.Message, unknownTokenText, false)
		return nil
	}

	reply(ctx, s.messenger, cmd.Message, unbannedText, false)
	observability.ModerationActions.WithLabelValues("unban").Inc()
	return nil
}

// BanInfo looks a ban up. Reviewers in the outbox pass a token; in a
// private chat users get their own ban, looked up by identity.
func (s *ModerationService) BanInfo(ctx context.Context, cmd models.Command) error {
	msg := cmd.Message
	switch msg.Chat.Kind {
	case models.ChatGroup:
		ok, err := s.requireOutbox(ctx, msg)
		if err != nil || !ok {
			return err
		}
		if len(cmd.Args) == 0 {
			reply(ctx, s.messenger, msg, needTokenText, false)
			return nil
		}
		rec, err := s.bans.GetBanRecord(ctx, cmd.Args[0])
		if err != nil && !models.HasCode(err, models.CodeValidation) {
			return err
		}
		if rec == nil {
			reply(ctx, s.messenger, msg, unknownTokenText, false)
			return nil
		}
		reply(ctx, s.messenger, msg, banInfoText(rec, false), true)

	case models.ChatPrivate:
		token, banned, err := s.bans.GetBanToken(ctx, msg.From.ID)
		if err != nil {
			return err
		}
		if !banned {
			reply(ctx, s.messenger, msg, notBannedText, false)
			return nil
		}
		rec, err := s.bans.GetBanRecord(ctx, token)
		if err != nil {
			return err
		}
		if rec == nil {
			return models.NewInternalError(fmt.Errorf("ban %s has no record", token))
		}
		reply(ctx, s.messenger, msg, banInfoText(rec, true), true)
	}
	return nil
}

// requireOutbox gates reviewer commands. Outside groups it is silent; in a
// group that is not the outbox it says so.
func (s *ModerationService) requireOutbox(ctx context.Context, msg models.InboundMessage) (bool, error) {
	if msg.Chat.Kind != models.ChatGroup {
		return false, nil
	}
	state, err := s.StateFor(ctx, msg.Chat.ID)
	if err != nil {
		return false, err
	}
	if state != OutboxActive {
		reply(ctx, s.messenger, msg, notActiveGroupText, false)
		return false, nil
	}
	return true, nil
}

// reviewTarget runs the shared checks of reply-based reviewer commands and
// returns the forwarded submission and its sender.
func (s *ModerationService) reviewTarget(ctx context.Context, cmd models.Command, missingArgs string) (models.InboundMessage, int64, bool, error) {
	ok, err := s.requireOutbox(ctx, cmd.Message)
	if err != nil || !ok {
		return models.InboundMessage{}, 0, false, err
	}
	if len(cmd.Args) == 0 {
		reply(ctx, s.messenger, cmd.Message, missingArgs, false)
		return models.InboundMessage{}, 0, false, nil
	}
	if cmd.Message.ReplyTo == nil {
		reply(ctx, s.messenger, cmd.Message, needReplyText, false)
		return models.InboundMessage{}, 0, false, nil
	}

	target := *cmd.Message.ReplyTo
	senderID, err := RecoverSender(target)
	switch {
	case errors.Is(err, models.ErrMalformedPayload):
		s.markMalformed(ctx, target)
		return models.InboundMessage{}, 0, false, nil
	case err != nil:
		reply(ctx, s.messenger, cmd.Message, cannotUseReplyText, false)
		return models.InboundMessage{}, 0, false, nil
	}
	return target, senderID, true, nil
}

func (s *ModerationService) markMalformed(ctx context.Context, forwarded models.InboundMessage) {
	observability.GlobalLogger.WarnContext(ctx, "forwarded submission has a malformed sender reference")
	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    forwarded.Chat.ID,
		MessageID: forwarded.ID,
		Text:      malformedForwardText(forwarded.Text),
	})
}

// RecoverSender extracts the sender id from the reviewer buttons of a
// forwarded submission. It fails when the message has no text or no
// reviewer button, and wraps models.ErrMalformedPayload when the first
// reviewer button cannot be decoded.
func RecoverSender(forwarded models.InboundMessage) (int64, error) {
	if forwarded.Text == "" {
		return 0, errNoSenderReference
	}
	for _, data := range forwarded.Keyboard.Payloads() {
		if !models.IsActionData(data) {
			continue
		}
		p, err := models.ParseActionPayload(data)
		if err != nil {
			return 0, err
		}
		return p.UserID, nil
	}
	return 0, errNoSenderReference
}

package service

import (
	"context"

	"intentionsbot/internal/featureflags"
	"intentionsbot/internal/identity"
	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"
	"intentionsbot/internal/ratelimit"
	"intentionsbot/internal/repository"

	"github.com/puzpuzpuz/xsync/v3"
)

// SubmissionResource names the rate-limit bucket for staged submissions.
const SubmissionResource = "submit"

// SubmissionService drives the private-chat side: staging, confirming and
// cancelling submissions.
type SubmissionService struct {
	moderation *ModerationService
	outbox     repository.OutboxRepository
	tracker    *PendingTracker
	messenger  Messenger
	limiter    *ratelimit.Limiter
	flags      *featureflags.Manager
	// users whose confirm is being forwarded right now
	confirming *xsync.MapOf[int64, struct{}]
}

// NewSubmissionService returns a new SubmissionService.
func NewSubmissionService(
	moderation *ModerationService,
	outbox repository.OutboxRepository,
	tracker *PendingTracker,
	messenger Messenger,
	limiter *ratelimit.Limiter,
	flags *featureflags.Manager,
) *SubmissionService {
	return &SubmissionService{
		moderation: moderation,
		outbox:     outbox,
		tracker:    tracker,
		messenger:  messenger,
		limiter:    limiter,
		flags:      flags,
		confirming: xsync.NewMapOf[int64, struct{}](),
	}
}

// Tracker exposes the pending submission tracker.
func (s *SubmissionService) Tracker() *PendingTracker {
	return s.tracker
}

// Start greets a user in private.
func (s *SubmissionService) Start(ctx context.Context, msg models.InboundMessage) error {
	if msg.Chat.Kind != models.ChatPrivate {
		return nil
	}
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:   msg.Chat.ID,
		Text:     introText,
		HTML:     true,
		Keyboard: instructionsKeyboard(true),
	})
	return nil
}

// Ping answers a liveness probe from any chat.
func (s *SubmissionService) Ping(ctx context.Context, msg models.InboundMessage) error {
	notify(ctx, s.messenger, models.OutgoingMessage{ChatID: msg.Chat.ID, Text: pongText})
	return nil
}

// ShowInstructions sends the usage and rules texts, then points back at
// the first of them.
func (s *SubmissionService) ShowInstructions(ctx context.Context, cb models.Callback) error {
	if cb.Message == nil || cb.Message.Chat.Kind != models.ChatPrivate {
		return nil
	}
	chatID := cb.Message.Chat.ID

	first := 0
	for _, text := range []string{instructionsText, rulesText} {
		id, err := s.messenger.Send(ctx, models.OutgoingMessage{ChatID: chatID, Text: text, HTML: true})
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "send instructions failed", "error", err)
			continue
		}
		if first == 0 {
			first = id
		}
	}

	pointer := readFromHereText
	if cb.Data == models.CallbackInstructionsNewbie {
		pointer = readFromHereNewbieText
	}
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:   chatID,
		Text:     pointer,
		ReplyTo:  first,
		Keyboard: newIntentionKeyboard(),
	})
	return nil
}

// NewIntention discards any pending submission and invites a new one.
func (s *SubmissionService) NewIntention(ctx context.Context, cb models.Callback) error {
	if cb.Message == nil {
		return nil
	}
	if banned, err := s.moderation.GuardBanned(ctx, cb.From, 0); err != nil || banned {
		return err
	}

	if s.tracker.Reset(cb.From.ID) {
		observability.SubmissionsTotal.WithLabelValues("discarded").Inc()
	}
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:   cb.Message.Chat.ID,
		Text:     readyText,
		HTML:     true,
		Keyboard: instructionsKeyboard(false),
	})
	return nil
}

// Submit stages a private text message for confirmation. A user holding a
// pending submission is told to resolve it first and the held one is kept.
func (s *SubmissionService) Submit(ctx context.Context, msg models.InboundMessage) error {
	if msg.Chat.Kind != models.ChatPrivate || msg.Text == "" || msg.Text[0] == '/' {
		return nil
	}
	if banned, err := s.moderation.GuardBanned(ctx, msg.From, msg.ID); err != nil || banned {
		return err
	}

	userID := msg.From.ID
	if s.tracker.State(userID) == PendingHolding {
		s.guide(ctx, msg)
		return nil
	}

	userHash := identity.Hash(userID)
	if s.flags.Enabled(featureflags.SubmissionRateLimit, userHash) {
		allowed, err := s.limiter.Allow(ctx, SubmissionResource, userHash)
		if err != nil {
			return err
		}
		if !allowed {
			observability.SubmissionsTotal.WithLabelValues("rate_limited").Inc()
			reply(ctx, s.messenger, msg, rateLimitedText, false)
			return nil
		}
	}

	text, staged := s.tracker.Stage(userID, msg.Text)
	if !staged {
		s.guide(ctx, msg)
		return nil
	}

	observability.SubmissionsTotal.WithLabelValues("staged").Inc()
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:   msg.Chat.ID,
		Text:     confirmationText(text),
		HTML:     true,
		ReplyTo:  msg.ID,
		Keyboard: confirmKeyboard(),
	})
	return nil
}

func (s *SubmissionService) guide(ctx context.Context, msg models.InboundMessage) {
	observability.SubmissionsTotal.WithLabelValues("held").Inc()
	notify(ctx, s.messenger, models.OutgoingMessage{
		ChatID:   msg.Chat.ID,
		Text:     pendingGuidanceText,
		ReplyTo:  msg.ID,
		Keyboard: newIntentionKeyboard(),
	})
}

// Confirm forwards the pending submission to the outbox. With no active
// outbox the submission stays pending so the user can retry later.
func (s *SubmissionService) Confirm(ctx context.Context, cb models.Callback) error {
	if cb.Message == nil {
		return nil
	}
	if banned, err := s.moderation.GuardBanned(ctx, cb.From, 0); err != nil || banned {
		return err
	}

	userID := cb.From.ID
	// A second press while the first is still forwarding must not touch the
	// confirmation message the first one is about to edit.
	if _, busy := s.confirming.LoadOrStore(userID, struct{}{}); busy {
		return nil
	}
	defer s.confirming.Delete(userID)

	if _, ok := s.tracker.Peek(userID); !ok {
		s.nothingPending(ctx, cb)
		return nil
	}

	outboxID, active, err := s.outbox.Get(ctx)
	if err != nil {
		return err
	}
	if !active {
		observability.SubmissionsTotal.WithLabelValues("inactive").Inc()
		notify(ctx, s.messenger, models.OutgoingMessage{ChatID: cb.Message.Chat.ID, Text: inactiveText})
		return nil
	}

	text, ok := s.tracker.Claim(userID)
	if !ok {
		// a concurrent cancel or new intention already answered this press
		return nil
	}
	if err := s.moderation.Forward(ctx, outboxID, userID, text); err != nil {
		s.tracker.Restore(userID, text)
		observability.SubmissionsTotal.WithLabelValues("forward_failed").Inc()
		notify(ctx, s.messenger, models.OutgoingMessage{ChatID: cb.Message.Chat.ID, Text: forwardFailedText})
		return err
	}

	observability.SubmissionsTotal.WithLabelValues("forwarded").Inc()
	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    cb.Message.Chat.ID,
		MessageID: cb.Message.ID,
		Text:      sentText(text),
		HTML:      true,
		Keyboard:  newIntentionKeyboard(),
	})
	return nil
}

// Cancel drops the pending submission.
func (s *SubmissionService) Cancel(ctx context.Context, cb models.Callback) error {
	if cb.Message == nil {
		return nil
	}
	if banned, err := s.moderation.GuardBanned(ctx, cb.From, 0); err != nil || banned {
		return err
	}

	if !s.tracker.Reset(cb.From.ID) {
		s.nothingPending(ctx, cb)
		return nil
	}

	observability.SubmissionsTotal.WithLabelValues("cancelled").Inc()
	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    cb.Message.Chat.ID,
		MessageID: cb.Message.ID,
		Text:      cancelledText,
		Keyboard:  newIntentionKeyboard(),
	})
	return nil
}

func (s *SubmissionService) nothingPending(ctx context.Context, cb models.Callback) {
	edit(ctx, s.messenger, models.MessageEdit{
		ChatID:    cb.Message.Chat.ID,
		MessageID: cb.Message.ID,
		Text:      nothingPendingText,
	})
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"intentionsbot/internal/featureflags"
	"intentionsbot/internal/models"
	"intentionsbot/internal/ratelimit"
	"intentionsbot/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "senha-secreta"
	outboxA      = int64(-1001)
	outboxB      = int64(-1002)
	reviewerID   = int64(500)
)

type stubMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []models.OutgoingMessage
	edits   []models.MessageEdit
	failFor map[int64]bool
	// beforeSend runs outside the lock, before a message is recorded.
	beforeSend func(models.OutgoingMessage)
}

func newStubMessenger() *stubMessenger {
	return &stubMessenger{nextID: 100, failFor: map[int64]bool{}}
}

func (m *stubMessenger) Send(_ context.Context, msg models.OutgoingMessage) (int, error) {
	if m.beforeSend != nil {
		m.beforeSend(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.ChatID] {
		return 0, errors.New("chat not found")
	}
	m.nextID++
	m.sent = append(m.sent, msg)
	return m.nextID, nil
}

func (m *stubMessenger) Edit(_ context.Context, e models.MessageEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, e)
	return nil
}

func (m *stubMessenger) sentTo(chatID int64) []models.OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OutgoingMessage
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *stubMessenger) lastTo(t *testing.T, chatID int64) models.OutgoingMessage {
	t.Helper()
	msgs := m.sentTo(chatID)
	require.NotEmpty(t, msgs, "no message sent to %d", chatID)
	return msgs[len(msgs)-1]
}

func (m *stubMessenger) lastEdit(t *testing.T) models.MessageEdit {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.edits, "no edits")
	return m.edits[len(m.edits)-1]
}

func (m *stubMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = 100
	m.sent = nil
	m.edits = nil
}

type fixture struct {
	mr         *miniredis.Miniredis
	bans       repository.BanRepository
	outbox     repository.OutboxRepository
	messenger  *stubMessenger
	moderation *ModerationService
	submission *SubmissionService
}

func newFixture(t *testing.T, flags string, limit int) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		mr:        mr,
		bans:      repository.NewBanRepository(rdb),
		outbox:    repository.NewOutboxRepository(rdb),
		messenger: newStubMessenger(),
	}
	ff := featureflags.NewManager(flags)
	f.moderation = NewModerationService(f.bans, f.outbox, f.messenger, ff, testPassword)
	f.submission = NewSubmissionService(
		f.moderation,
		f.outbox,
		NewPendingTracker(),
		f.messenger,
		ratelimit.New(rdb, limit, time.Hour, ratelimit.FailOpen),
		ff,
	)
	return f
}

func privateMessage(userID int64, id int, text string) models.InboundMessage {
	return models.InboundMessage{
		ID:   id,
		Chat: models.Chat{ID: userID, Kind: models.ChatPrivate},
		From: models.User{ID: userID, FirstName: "User"},
		Text: text,
	}
}

func groupMessage(chatID int64, id int, text string) models.InboundMessage {
	return models.InboundMessage{
		ID:   id,
		Chat: models.Chat{ID: chatID, Kind: models.ChatGroup},
		From: models.User{ID: reviewerID, FirstName: "Ana"},
		Text: text,
	}
}

func privateCallback(userID int64, messageID int, data string) models.Callback {
	msg := privateMessage(userID, messageID, "")
	return models.Callback{ID: "cb", From: msg.From, Data: data, Message: &msg}
}

func command(msg models.InboundMessage, name string, replyTo *models.InboundMessage) models.Command {
	fields := strings.Fields(msg.Text)
	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}
	msg.ReplyTo = replyTo
	return models.Command{Name: name, Args: args, Message: msg}
}

// forwardedFrom rebuilds the message the outbox received as the gateway
// would report it back on a reply or button press.
func forwardedFrom(sent models.OutgoingMessage, id int) models.InboundMessage {
	return models.InboundMessage{
		ID:       id,
		Chat:     models.Chat{ID: sent.ChatID, Kind: models.ChatGroup},
		From:     models.User{ID: 1, IsBot: true},
		Text:     sent.Text,
		Keyboard: sent.Keyboard,
	}
}

func activate(t *testing.T, f *fixture, chatID int64) {
	t.Helper()
	require.NoError(t, f.moderation.Activate(context.Background(), groupMessage(chatID, 1, testPassword)))
}

package bot

import (
	"strings"

	"intentionsbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func toChat(c *tgbotapi.Chat) models.Chat {
	if c == nil {
		return models.Chat{}
	}
	kind := models.ChatOther
	switch {
	case c.IsPrivate():
		kind = models.ChatPrivate
	case c.IsGroup(), c.IsSuperGroup():
		kind = models.ChatGroup
	}
	return models.Chat{ID: c.ID, Kind: kind}
}

func toUser(u *tgbotapi.User) models.User {
	if u == nil {
		return models.User{}
	}
	return models.User{ID: u.ID, FirstName: u.FirstName, IsBot: u.IsBot}
}

func toKeyboard(markup *tgbotapi.InlineKeyboardMarkup) models.Keyboard {
	if markup == nil {
		return nil
	}
	out := make(models.Keyboard, 0, len(markup.InlineKeyboard))
	for _, row := range markup.InlineKeyboard {
		buttons := make([]models.Button, 0, len(row))
		for _, b := range row {
			btn := models.Button{Text: b.Text}
			if b.CallbackData != nil {
				btn.Data = *b.CallbackData
			}
			buttons = append(buttons, btn)
		}
		out = append(out, buttons)
	}
	return out
}

// toInbound converts a message and the message it replies to. Telegram
// only nests one level, so deeper replies are never present.
func toInbound(m *tgbotapi.Message) *models.InboundMessage {
	if m == nil {
		return nil
	}
	return &models.InboundMessage{
		ID:       m.MessageID,
		Chat:     toChat(m.Chat),
		From:     toUser(m.From),
		Text:     m.Text,
		Keyboard: toKeyboard(m.ReplyMarkup),
		ReplyTo:  toInbound(m.ReplyToMessage),
	}
}

func toCallback(q *tgbotapi.CallbackQuery) models.Callback {
	return models.Callback{
		ID:      q.ID,
		From:    toUser(q.From),
		Data:    q.Data,
		Message: toInbound(q.Message),
	}
}

func toCommand(m *tgbotapi.Message) models.Command {
	return models.Command{
		Name:    m.Command(),
		Args:    strings.Fields(m.CommandArguments()),
		Message: *toInbound(m),
	}
}

func toMarkup(k models.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(k))
	for _, row := range k {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func messageConfig(msg models.OutgoingMessage) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	cfg.ReplyToMessageID = msg.ReplyTo
	if msg.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	if msg.Keyboard != nil {
		cfg.ReplyMarkup = toMarkup(msg.Keyboard)
	}
	return cfg
}

// editConfig builds the request for an edit. Editing the text without a
// keyboard drops the existing buttons, as Telegram does.
func editConfig(e models.MessageEdit) tgbotapi.Chattable {
	if e.KeyboardOnly {
		return tgbotapi.NewEditMessageReplyMarkup(e.ChatID, e.MessageID, toMarkup(e.Keyboard))
	}
	cfg := tgbotapi.NewEditMessageText(e.ChatID, e.MessageID, e.Text)
	if e.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	if e.Keyboard != nil {
		markup := toMarkup(e.Keyboard)
		cfg.ReplyMarkup = &markup
	}
	return cfg
}

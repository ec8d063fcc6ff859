package models

import "strings"

// ChatKind distinguishes private conversations from review groups.
type ChatKind int

const (
	ChatOther ChatKind = iota
	ChatPrivate
	ChatGroup
)

func (k ChatKind) String() string {
	switch k {
	case ChatPrivate:
		return "private"
	case ChatGroup:
		return "group"
	default:
		return "other"
	}
}

// Chat identifies where an inbound event happened.
type Chat struct {
	ID   int64
	Kind ChatKind
}

// User is the sender of an inbound event.
type User struct {
	ID        int64
	FirstName string
	IsBot     bool
}

// Button is one inline button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons. A nil Keyboard means "no buttons".
type Keyboard [][]Button

// Payloads returns the callback data of every button in reading order.
func (k Keyboard) Payloads() []string {
	var out []string
	for _, row := range k {
		for _, b := range row {
			if b.Data != "" {
				out = append(out, b.Data)
			}
		}
	}
	return out
}

// InboundMessage is a transport-neutral view of a chat message.
type InboundMessage struct {
	ID       int
	Chat     Chat
	From     User
	Text     string
	Keyboard Keyboard
	ReplyTo  *InboundMessage
}

// Callback is a button press.
type Callback struct {
	ID      string
	From    User
	Data    string
	Message *InboundMessage
}

// OutgoingMessage is a message the bot sends. ReplyTo is zero when the
// message is not a reply.
type OutgoingMessage struct {
	ChatID   int64
	Text     string
	HTML     bool
	ReplyTo  int
	Keyboard Keyboard
}

// MessageEdit changes an already-sent message. With KeyboardOnly set only
// the buttons are replaced and Text is ignored; a nil Keyboard removes them.
type MessageEdit struct {
	ChatID       int64
	MessageID    int
	Text         string
	HTML         bool
	Keyboard     Keyboard
	KeyboardOnly bool
}

// Command is a slash command with its whitespace-separated arguments.
type Command struct {
	Name    string
	Args    []string
	Message InboundMessage
}

// ArgText joins the arguments with single spaces.
func (c Command) ArgText() string {
	return strings.Join(c.Args, " ")
}

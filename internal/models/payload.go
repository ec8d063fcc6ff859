package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data used by the private-chat buttons.
const (
	CallbackConfirmSend        = "confirm_send"
	CallbackCancelSend         = "cancel_send"
	CallbackNewIntention       = "new_intention"
	CallbackInstructions       = "instructions"
	CallbackInstructionsNewbie = "instructions:newbie"
)

// Action tags a reviewer button attached to a forwarded submission.
type Action string

const (
	ActionAccept  Action = "admin_accept"
	ActionActions Action = "admin_actions"
)

// ActionPayload is the button payload on a forwarded submission. It carries
// the raw sender id so reviewer actions can reach the sender without a
// lookup table. Wire form: "<action>:<user_id>".
type ActionPayload struct {
	Action Action
	UserID int64
}

// Encode renders the payload as button callback data.
func (p ActionPayload) Encode() string {
	return fmt.Sprintf("%s:%d", p.Action, p.UserID)
}

// IsActionData reports whether raw looks like a reviewer button payload,
// without validating it.
func IsActionData(raw string) bool {
	return strings.HasPrefix(raw, "admin_")
}

// ParseActionPayload decodes callback data produced by Encode. The action
// must be known and the user id a positive integer; anything else yields an
// error wrapping ErrMalformedPayload.
func ParseActionPayload(raw string) (ActionPayload, error) {
	tag, id, ok := strings.Cut(raw, ":")
	if !ok {
		return ActionPayload{}, NewMalformedPayloadError(raw)
	}

	action := Action(tag)
	switch action {
	case ActionAccept, ActionActions:
	default:
		return ActionPayload{}, NewMalformedPayloadError(raw)
	}

	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || userID <= 0 {
		return ActionPayload{}, NewMalformedPayloadError(raw)
	}

	return ActionPayload{Action: action, UserID: userID}, nil
}

package service

import (
	"intentionsbot/internal/intention"

	"github.com/puzpuzpuz/xsync/v3"
)

// PendingState is the per-user slot state.
type PendingState int

const (
	PendingEmpty PendingState = iota
	PendingHolding
)

func (s PendingState) String() string {
	if s == PendingHolding {
		return "holding"
	}
	return "empty"
}

// PendingTracker holds at most one unconfirmed submission per user. It lives
// in process memory only and is lost on restart.
type PendingTracker struct {
	slots *xsync.MapOf[int64, string]
}

// NewPendingTracker returns an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{slots: xsync.NewMapOf[int64, string]()}
}

// Stage normalizes raw into the user's slot if it is empty. When a
// submission is already held it is returned unchanged with staged=false.
func (t *PendingTracker) Stage(userID int64, raw string) (text string, staged bool) {
	text, _ = t.slots.Compute(userID, func(held string, loaded bool) (string, bool) {
		if loaded {
			return held, false
		}
		staged = true
		return intention.Normalize(raw).Render(), false
	})
	return text, staged
}

// Peek returns the held submission without changing state.
func (t *PendingTracker) Peek(userID int64) (string, bool) {
	return t.slots.Load(userID)
}

// Claim empties the slot and returns what it held.
func (t *PendingTracker) Claim(userID int64) (string, bool) {
	return t.slots.LoadAndDelete(userID)
}

// Restore puts a claimed submission back unless a new one was staged since.
func (t *PendingTracker) Restore(userID int64, text string) {
	t.slots.LoadOrStore(userID, text)
}

// Reset discards any held submission and reports whether there was one.
func (t *PendingTracker) Reset(userID int64) bool {
	_, had := t.slots.LoadAndDelete(userID)
	return had
}

// State reports the slot state for a user.
func (t *PendingTracker) State(userID int64) PendingState {
	if _, ok := t.slots.Load(userID); ok {
		return PendingHolding
	}
	return PendingEmpty
}

// Len returns the number of users with a held submission.
func (t *PendingTracker) Len() int {
	return t.slots.Size()
}

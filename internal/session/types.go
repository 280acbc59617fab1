// internal/session/types.go
//
// Session aggregate for all three game modes.
// A Session is a single tagged record: Mode selects behavior and Slots holds
// one PlayerSlot for solo play or two for ai/pvp. PlayerSlots are treated as
// immutable values: mutations build a replacement slot and assign it
// wholesale, never edit fields in place.

package session

import (
	"time"

	"github.com/aradz/mastermind-server/internal/ai"
	"github.com/aradz/mastermind-server/internal/game"
)

// Mode tags the kind of session. Fixed at creation.
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeAI   Mode = "ai"
	ModePvP  Mode = "pvp"
)

// Status is the lifecycle state machine value.
// waiting → joining → in_progress → {completed | abandoned}; waiting and
// joining occur only for pvp sessions.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusJoining    Status = "joining"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// PlayerSlot is one player's state within a session. An empty Identity
// denotes an unfilled pvp slot awaiting a second player.
//
// Secret is the code this slot's owner chose (or was assigned); the opponent
// guesses against it. For solo sessions the single slot's Secret is the
// system-chosen code the player is cracking.
type PlayerSlot struct {
	Identity string             `json:"identity,omitempty"`
	Name     string             `json:"name,omitempty"`
	Secret   string             `json:"secret,omitempty"`
	Guesses  []game.GuessRecord `json:"guesses"`
	Rating   float64            `json:"rating,omitempty"`
}

// withGuess builds the replacement slot with rec appended. The guess
// sequence is append-only; prior records are never edited or reordered.
func (p PlayerSlot) withGuess(rec game.GuessRecord) PlayerSlot {
	guesses := make([]game.GuessRecord, 0, len(p.Guesses)+1)
	guesses = append(guesses, p.Guesses...)
	guesses = append(guesses, rec)
	p.Guesses = guesses
	return p
}

// Session is the aggregate root. It is mutated only through the store's
// atomic update, one in-flight operation at a time.
type Session struct {
	ID             string        `json:"id"`
	Mode           Mode          `json:"mode"`
	Slots          []PlayerSlot  `json:"slots"`
	Turn           string        `json:"turn,omitempty"` // identity allowed to guess next (ai/pvp only)
	Status         Status        `json:"status"`
	WinnerIdentity string        `json:"winnerIdentity,omitempty"`
	AIDifficulty   ai.Difficulty `json:"aiDifficulty,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`

	// Version counts committed updates; stores use it for optimistic
	// concurrency checks. Not part of the game state.
	Version int64 `json:"-"`
}

// Terminal reports whether the session accepts no further guesses.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}

// SlotIndex returns the index of the slot owned by identity, or -1.
func (s *Session) SlotIndex(identity string) int {
	for i := range s.Slots {
		if s.Slots[i].Identity != "" && s.Slots[i].Identity == identity {
			return i
		}
	}
	return -1
}

// HasParticipant reports whether identity occupies a slot.
func (s *Session) HasParticipant(identity string) bool {
	return s.SlotIndex(identity) >= 0
}

// Clone deep-copies the session so callers can mutate freely.
func (s *Session) Clone() *Session {
	out := *s
	out.Slots = make([]PlayerSlot, len(s.Slots))
	for i, slot := range s.Slots {
		guesses := make([]game.GuessRecord, len(slot.Guesses))
		copy(guesses, slot.Guesses)
		slot.Guesses = guesses
		out.Slots[i] = slot
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Player identifies a human participant as seen by the request layer:
// persisted identity, display name, and rating snapshot at session creation.
type Player struct {
	ID     string
	Name   string
	Rating float64
}

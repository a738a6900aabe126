package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChatKind string

const (
	ChatKindDirect ChatKind = "direct"
	ChatKindGroup  ChatKind = "group"
)

// Chat is a conversation between a fixed set of participants. Membership is
// set at creation; there is no add/remove-member operation.
type Chat struct {
	ID             string      `json:"id"`
	Kind           ChatKind    `json:"kind"`
	Name           string      `json:"name,omitempty"` // group chats only
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	CreatedBy      *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// DirectChatID derives the id of the direct chat between two users. The id
// is order-independent, so it doubles as the dedup key: asking for a chat
// between the same pair always yields the same id.
func DirectChatID(a, b uuid.UUID) string {
	u1, u2 := a.String(), b.String()
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return u1 + ":" + u2
}

// IsParticipant reports whether userID belongs to the chat.
func (c *Chat) IsParticipant(userID uuid.UUID) bool {
	return slices.Contains(c.ParticipantIDs, userID)
}

// OtherParticipant returns the participant that is not userID. Only
// meaningful for direct chats.
func (c *Chat) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ChatSummary is the per-user view of a chat sent on login and chat
// creation: the display name is resolved (group name, or the other
// participant's name for direct chats) and the last message is previewed.
type ChatSummary struct {
	ID             string      `json:"id"`
	Kind           ChatKind    `json:"kind"`
	DisplayName    string      `json:"display_name"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	LastMessage    *Message    `json:"last_message,omitempty"`
	OtherOnline    bool        `json:"other_online"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Preview shortens message text for chat-list rendering. Truncation is
// rune-safe.
func Preview(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}

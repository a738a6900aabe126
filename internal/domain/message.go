package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable entry in a chat's append-only log. Exactly one of
// Text and Attachment is set at creation.
type Message struct {
	ID                uuid.UUID   `json:"id"`
	ChatID            string      `json:"chat_id"`
	SenderID          uuid.UUID   `json:"sender_id"`
	SenderDisplayName string      `json:"sender_display_name"`
	Text              *string     `json:"text,omitempty"`
	Attachment        *Attachment `json:"attachment,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`

	// Read is reserved for read-receipt logic; nothing flips it yet.
	Read bool `json:"read"`
}

// Attachment describes a stored upload referenced by a message. The bytes
// themselves live behind URL.
type Attachment struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// MessageView is a message as delivered to one recipient: Sent marks
// whether that recipient is the sender.
type MessageView struct {
	Message
	Sent bool `json:"sent"`
}

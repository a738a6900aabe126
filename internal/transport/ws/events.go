package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeLogin           = "login"
	EventTypeListOnlineUsers = "listOnlineUsers"
	EventTypeStartDirectChat = "startDirectChat"
	EventTypeSendMessage     = "sendMessage"
	EventTypeSetTyping       = "setTyping"
	EventTypeCreateGroupChat = "createGroupChat"
	EventTypeGetMessages     = "getMessages"
)

// Event types - Server → Client
const (
	EventTypeLoginSuccess = "loginSuccess"
	EventTypeOnlineUsers  = "onlineUsers"
	EventTypeChatHistory  = "chatHistory"
	EventTypeNewChat      = "newChat"
	EventTypeNewMessage   = "newMessage"
	EventTypeTyping       = "typing"
	EventTypeUserOnline   = "userOnline"
	EventTypeUserOffline  = "userOffline"
	EventTypeMessages     = "messages"
	EventTypeError        = "error"
)

// Event is the envelope for every message on the WebSocket, both directions.
// Unrecognized types are answered with an error event, never a dropped
// connection.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type LoginPayload struct {
	DisplayName string `json:"display_name"`
}

type StartDirectChatPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type SendMessagePayload struct {
	ChatID     string             `json:"chat_id"`
	Text       string             `json:"text,omitempty"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type SetTypingPayload struct {
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type CreateGroupChatPayload struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

type GetMessagesPayload struct {
	ChatID string `json:"chat_id"`
}

// --- Server → Client payloads ---

type OnlineUsersPayload struct {
	Users []domain.User `json:"users"`
}

type MessagesPayload struct {
	ChatID   string               `json:"chat_id"`
	Messages []domain.MessageView `json:"messages"`
}

type TypingPayload struct {
	ChatID      string    `json:"chat_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsTyping    bool      `json:"is_typing"`
}

type PresencePayload struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

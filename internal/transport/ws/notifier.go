package ws

import (
	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// HubNotifier implements service.Notifier on top of the Hub. Every method is
// a non-blocking enqueue, so the router can call it while holding its lock.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(connID uuid.UUID, msg domain.MessageView) {
	n.push(connID, EventTypeNewMessage, msg)
}

func (n *HubNotifier) NotifyNewChat(connID uuid.UUID, chat domain.ChatSummary) {
	n.push(connID, EventTypeNewChat, chat)
}

func (n *HubNotifier) NotifyTyping(connID uuid.UUID, chatID string, userID uuid.UUID, displayName string, isTyping bool) {
	n.push(connID, EventTypeTyping, TypingPayload{
		ChatID:      chatID,
		UserID:      userID,
		DisplayName: displayName,
		IsTyping:    isTyping,
	})
}

func (n *HubNotifier) NotifyPresence(connID uuid.UUID, user domain.User, online bool) {
	eventType := EventTypeUserOnline
	if !online {
		eventType = EventTypeUserOffline
	}
	n.push(connID, eventType, PresencePayload{UserID: user.ID, DisplayName: user.DisplayName})
}

func (n *HubNotifier) push(connID uuid.UUID, eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		return
	}
	n.hub.Send(connID, evt)
}

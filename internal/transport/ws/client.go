package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/observability"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/service"
	"github.com/Leothelion6721/Whatsapp-attachments/pkg/validator"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBufSize    = 256
)

// Client is one WebSocket connection and its per-connection session state.
// It starts anonymous; a successful login binds it to a user id. Nothing but
// login works while anonymous, and a second login on the same connection is
// rejected.
type Client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	svc  *service.ChatService

	// userID is uuid.Nil until login succeeds. Only the read pump goroutine
	// touches it.
	userID uuid.UUID

	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, svc *service.ChatService) *Client {
	return &Client{
		id:   uuid.New(),
		hub:  hub,
		conn: conn,
		svc:  svc,
		send: make(chan []byte, sendBufSize),
	}
}

// ReadPump reads client events and dispatches them until the connection
// dies. On exit the connection is removed from the hub and, if identified,
// the user is marked offline.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
		if c.userID != uuid.Nil {
			c.svc.Disconnect(ctx, c.userID, c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var event Event
		if err := wsjson.Read(ctx, c.conn, &event); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Debug().Str("conn_id", c.id.String()).Msg("ws: client disconnected")
			} else {
				log.Debug().Err(err).Str("conn_id", c.id.String()).Msg("ws: read error")
			}
			return
		}
		c.handleEvent(ctx, &event)
	}
}

// WritePump drains the send channel to the socket in FIFO order, so each
// recipient sees pushes in the order the router emitted them.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(wctx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent dispatches one inbound event. Failed preconditions answer the
// caller with an error event; they never tear the session down or leak into
// other sessions.
func (c *Client) handleEvent(ctx context.Context, event *Event) {
	observability.EventsProcessed.WithLabelValues(event.Type).Inc()

	if event.Type != EventTypeLogin && c.userID == uuid.Nil {
		c.sendError("NOT_IDENTIFIED", "log in first")
		return
	}

	switch event.Type {
	case EventTypeLogin:
		c.handleLogin(ctx, event)

	case EventTypeListOnlineUsers:
		users, err := c.svc.ListOnlineUsers(ctx, c.userID)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.sendEvent(EventTypeOnlineUsers, OnlineUsersPayload{Users: users})

	case EventTypeStartDirectChat:
		var p StartDirectChatPayload
		if !c.decode(event, &p) {
			return
		}
		history, err := c.svc.StartDirectChat(ctx, c.userID, p.UserID)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.sendEvent(EventTypeChatHistory, history)

	case EventTypeSendMessage:
		var p SendMessagePayload
		if !c.decode(event, &p) {
			return
		}
		if _, err := c.svc.SendMessage(ctx, c.userID, p.ChatID, p.Text, p.Attachment); err != nil {
			c.sendServiceError(err)
			return
		}
		observability.MessagesSent.Inc()

	case EventTypeSetTyping:
		var p SetTypingPayload
		if !c.decode(event, &p) {
			return
		}
		if err := c.svc.SetTyping(ctx, c.userID, p.ChatID, p.IsTyping); err != nil {
			c.sendServiceError(err)
		}

	case EventTypeCreateGroupChat:
		var p CreateGroupChatPayload
		if !c.decode(event, &p) {
			return
		}
		if errs := validator.ValidateGroupChat(p.Name, len(p.MemberIDs)); errs.HasErrors() {
			c.sendError("INVALID_ARGUMENT", errs.First())
			return
		}
		summary, err := c.svc.CreateGroupChat(ctx, c.userID, p.Name, p.MemberIDs)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.sendEvent(EventTypeNewChat, summary)

	case EventTypeGetMessages:
		var p GetMessagesPayload
		if !c.decode(event, &p) {
			return
		}
		messages, err := c.svc.GetMessages(ctx, c.userID, p.ChatID)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.sendEvent(EventTypeMessages, MessagesPayload{ChatID: p.ChatID, Messages: messages})

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) handleLogin(ctx context.Context, event *Event) {
	if c.userID != uuid.Nil {
		c.sendError("ALREADY_IDENTIFIED", "this connection is already logged in")
		return
	}
	var p LoginPayload
	if !c.decode(event, &p) {
		return
	}
	if errs := validator.ValidateDisplayName(p.DisplayName); errs.HasErrors() {
		c.sendError("INVALID_ARGUMENT", errs.First())
		return
	}
	result, err := c.svc.Login(ctx, p.DisplayName, c.id)
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.userID = result.User.ID
	c.sendEvent(EventTypeLoginSuccess, result)
}

func (c *Client) decode(event *Event, v any) bool {
	if err := json.Unmarshal(event.Payload, v); err != nil {
		c.sendError("INVALID_PAYLOAD", "invalid "+event.Type+" payload")
		return false
	}
	return true
}

func (c *Client) sendEvent(eventType string, payload any) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("ws: marshal error")
		return
	}
	c.hub.Send(c.id, evt)
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}

// sendServiceError maps service errors onto the wire error taxonomy.
func (c *Client) sendServiceError(err error) {
	switch {
	case errors.Is(err, service.ErrEmptyDisplayName),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrAmbiguous),
		errors.Is(err, service.ErrEmptyGroupName),
		errors.Is(err, service.ErrNoMembers),
		errors.Is(err, service.ErrCannotChatSelf):
		c.sendError("INVALID_ARGUMENT", err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrChatNotFound):
		c.sendError("NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		c.sendError("PERMISSION_DENIED", err.Error())
	default:
		log.Error().Err(err).Str("conn_id", c.id.String()).Msg("ws: handler error")
		c.sendError("INTERNAL", "something went wrong")
	}
}

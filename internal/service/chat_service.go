package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/repository"
)

const previewLength = 80

// Notifier pushes real-time events to a specific connection. Implementations
// must not block: ChatService calls them while holding the registry lock.
type Notifier interface {
	NotifyNewMessage(connID uuid.UUID, msg domain.MessageView)
	NotifyNewChat(connID uuid.UUID, chat domain.ChatSummary)
	NotifyTyping(connID uuid.UUID, chatID string, userID uuid.UUID, displayName string, isTyping bool)
	NotifyPresence(connID uuid.UUID, user domain.User, online bool)
}

// ChatService is the presence and fan-out router. Every operation runs
// start-to-finish under one mutex, so no event ever observes the identity,
// chat or message registries in a partially updated state. Fan-out is always
// scoped to chat membership plus online status; presence changes are the one
// legitimate broadcast.
type ChatService struct {
	mu sync.Mutex

	userRepo    repository.UserRepository
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	tokens      *TokenService
	notifier    Notifier
}

func NewChatService(
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	tokens *TokenService,
) *ChatService {
	return &ChatService{
		userRepo:    userRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		tokens:      tokens,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

type LoginResult struct {
	User         domain.User          `json:"user"`
	SessionToken string               `json:"session_token"`
	Chats        []domain.ChatSummary `json:"chats"`
}

type ChatHistory struct {
	Chat     domain.ChatSummary   `json:"chat"`
	Messages []domain.MessageView `json:"messages"`
}

type Stats struct {
	Users    int `json:"users"`
	Chats    int `json:"chats"`
	Messages int `json:"messages"`
}

// Login resolves a display name to a user, creating one on first sight and
// resuming the existing identity otherwise. The connection handle is rebound
// to connID, the user goes online, and everyone else online is told so.
func (s *ChatService) Login(ctx context.Context, displayName string, connID uuid.UUID) (*LoginResult, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrEmptyDisplayName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.userRepo.GetByDisplayName(ctx, displayName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &domain.User{
			ID:          uuid.New(),
			DisplayName: displayName,
			CreatedAt:   time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
	}

	user.ConnID = connID
	user.Online = true

	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, fmt.Errorf("minting session token: %w", err)
	}

	chats, err := s.chatRepo.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ChatSummary, 0, len(chats))
	for i := range chats {
		summaries = append(summaries, s.summarize(ctx, &chats[i], user.ID))
	}

	s.broadcastPresence(ctx, user, true)

	log.Info().Str("user_id", user.ID.String()).Str("display_name", displayName).Msg("user logged in")

	// Copy the user out: the registry-owned struct keeps changing under the
	// lock while callers marshal the result outside of it.
	return &LoginResult{User: *user, SessionToken: token, Chats: summaries}, nil
}

// Disconnect marks the user offline and broadcasts the change, but only if
// connID is still the user's bound handle. A stale socket dying after the
// same name logged back in must not knock the new session offline.
func (s *ChatService) Disconnect(ctx context.Context, userID, connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil || user.ConnID != connID || !user.Online {
		return
	}

	user.Online = false // ConnID left stale on purpose

	s.broadcastPresence(ctx, user, false)

	log.Info().Str("user_id", user.ID.String()).Str("display_name", user.DisplayName).Msg("user went offline")
}

// ListOnlineUsers returns every online user except the caller.
func (s *ChatService) ListOnlineUsers(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userRepo.ListOnlineExcept(ctx, userID)
}

// StartDirectChat finds or lazily creates the direct chat between the caller
// and target. The id is deterministic over the unordered pair, so repeated
// calls from either side converge on the same chat. The caller gets the chat
// with its full history; the target, if online, gets a newChat push.
func (s *ChatService) StartDirectChat(ctx context.Context, userID, targetID uuid.UUID) (*ChatHistory, error) {
	if userID == targetID {
		return nil, ErrCannotChatSelf
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	chatID := domain.DirectChatID(userID, targetID)
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		chat = &domain.Chat{
			ID:             chatID,
			Kind:           domain.ChatKindDirect,
			ParticipantIDs: []uuid.UUID{userID, targetID},
			CreatedBy:      &userID,
			CreatedAt:      time.Now(),
		}
		if err := s.chatRepo.Create(ctx, chat); err != nil {
			return nil, fmt.Errorf("creating direct chat: %w", err)
		}
	}

	if s.notifier != nil && target.Online {
		s.notifier.NotifyNewChat(target.ConnID, s.summarize(ctx, chat, targetID))
	}

	messages, err := s.historyFor(ctx, chat, userID)
	if err != nil {
		return nil, err
	}

	return &ChatHistory{Chat: s.summarize(ctx, chat, userID), Messages: messages}, nil
}

// SendMessage appends to the chat's log and fans the message out to every
// participant currently online, the sender included. A message carries
// exactly one of text or attachment; payloads with both, or neither, are
// rejected. Each delivered copy is tagged sent relative to its recipient.
// Offline participants simply miss the push and catch up through
// getMessages or their next login.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, chatID, text string, attachment *domain.Attachment) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return nil, ErrEmptyMessage
	}
	if text != "" && attachment != nil {
		return nil, ErrAmbiguous
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, sender, err := s.chatAndMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:                uuid.New(),
		ChatID:            chat.ID,
		SenderID:          sender.ID,
		SenderDisplayName: sender.DisplayName,
		CreatedAt:         time.Now(),
	}
	if text != "" {
		msg.Text = &text
	} else {
		msg.Attachment = attachment
	}

	if err := s.messageRepo.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	if s.notifier != nil {
		for _, pid := range chat.ParticipantIDs {
			p, err := s.userRepo.GetByID(ctx, pid)
			if err != nil || p == nil || !p.Online {
				continue
			}
			s.notifier.NotifyNewMessage(p.ConnID, domain.MessageView{Message: *msg, Sent: pid == sender.ID})
		}
	}

	return msg, nil
}

// SetTyping pushes the caller's typing state to every other participant
// currently online.
func (s *ChatService) SetTyping(ctx context.Context, userID uuid.UUID, chatID string, isTyping bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, sender, err := s.chatAndMember(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if s.notifier == nil {
		return nil
	}
	for _, pid := range chat.ParticipantIDs {
		if pid == sender.ID {
			continue
		}
		p, err := s.userRepo.GetByID(ctx, pid)
		if err != nil || p == nil || !p.Online {
			continue
		}
		s.notifier.NotifyTyping(p.ConnID, chat.ID, sender.ID, sender.DisplayName, isTyping)
	}
	return nil
}

// CreateGroupChat creates a group chat owned by nobody in particular:
// membership is the creator plus memberIDs, deduplicated, and fixed forever.
// Every member online at creation gets a newChat push; the creator sees the
// chat in the returned summary.
func (s *ChatService) CreateGroupChat(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*domain.ChatSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}
	if len(memberIDs) == 0 {
		return nil, ErrNoMembers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	participants := lo.Uniq(append([]uuid.UUID{creatorID}, memberIDs...))

	chat := &domain.Chat{
		ID:             uuid.NewString(),
		Kind:           domain.ChatKindGroup,
		Name:           name,
		ParticipantIDs: participants,
		CreatedBy:      &creatorID,
		CreatedAt:      time.Now(),
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("creating group chat: %w", err)
	}

	if s.notifier != nil {
		for _, pid := range participants {
			if pid == creatorID {
				continue
			}
			p, err := s.userRepo.GetByID(ctx, pid)
			if err != nil || p == nil || !p.Online {
				continue
			}
			s.notifier.NotifyNewChat(p.ConnID, s.summarize(ctx, chat, pid))
		}
	}

	log.Info().Str("chat_id", chat.ID).Str("name", name).Int("participants", len(participants)).Msg("group chat created")

	summary := s.summarize(ctx, chat, creatorID)
	return &summary, nil
}

// GetMessages returns the chat's full history in append order, each message
// tagged sent relative to the caller.
func (s *ChatService) GetMessages(ctx context.Context, userID uuid.UUID, chatID string) ([]domain.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, _, err := s.chatAndMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	return s.historyFor(ctx, chat, userID)
}

// Stats reports aggregate registry sizes for the status endpoint.
func (s *ChatService) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	chats, err := s.chatRepo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	messages, err := s.messageRepo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: users, Chats: chats, Messages: messages}, nil
}

// chatAndMember loads the chat and checks the caller's membership. Callers
// hold s.mu.
func (s *ChatService) chatAndMember(ctx context.Context, chatID string, userID uuid.UUID) (*domain.Chat, *domain.User, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if chat == nil {
		return nil, nil, ErrChatNotFound
	}
	if !chat.IsParticipant(userID) {
		return nil, nil, ErrNotParticipant
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}
	return chat, user, nil
}

// historyFor reads the chat's log tagged for one recipient. Callers hold s.mu.
func (s *ChatService) historyFor(ctx context.Context, chat *domain.Chat, userID uuid.UUID) ([]domain.MessageView, error) {
	messages, err := s.messageRepo.ListForChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m domain.Message, _ int) domain.MessageView {
		return domain.MessageView{Message: m, Sent: m.SenderID == userID}
	}), nil
}

// summarize builds the per-user view of a chat: group name or the other
// participant's display name, last-message preview, other-side online flag.
// Callers hold s.mu.
func (s *ChatService) summarize(ctx context.Context, chat *domain.Chat, forUser uuid.UUID) domain.ChatSummary {
	summary := domain.ChatSummary{
		ID:             chat.ID,
		Kind:           chat.Kind,
		DisplayName:    chat.Name,
		ParticipantIDs: chat.ParticipantIDs,
		CreatedAt:      chat.CreatedAt,
	}

	if chat.Kind == domain.ChatKindDirect {
		if otherID, ok := chat.OtherParticipant(forUser); ok {
			// Participant ids are best-effort references; an unknown user
			// just leaves the name blank.
			if other, err := s.userRepo.GetByID(ctx, otherID); err == nil && other != nil {
				summary.DisplayName = other.DisplayName
				summary.OtherOnline = other.Online
			}
		}
	}

	if last, err := s.messageRepo.LastForChat(ctx, chat.ID); err == nil && last != nil {
		if last.Text != nil {
			preview := domain.Preview(*last.Text, previewLength)
			last.Text = &preview
		}
		summary.LastMessage = last
	}

	return summary
}

// broadcastPresence tells every other online user about a presence change.
// Callers hold s.mu.
func (s *ChatService) broadcastPresence(ctx context.Context, user *domain.User, online bool) {
	if s.notifier == nil {
		return
	}
	others, err := s.userRepo.ListOnlineExcept(ctx, user.ID)
	if err != nil {
		return
	}
	for _, other := range others {
		s.notifier.NotifyPresence(other.ConnID, *user, online)
	}
}

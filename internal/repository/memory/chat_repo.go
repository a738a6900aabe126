package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// ChatRepo is the chat registry: chat id → membership, kind and name.
// Chats are created lazily and never destroyed.
type ChatRepo struct {
	chats map[string]*domain.Chat
}

func NewChatRepo() *ChatRepo {
	return &ChatRepo{chats: make(map[string]*domain.Chat)}
}

func (r *ChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	r.chats[chat.ID] = chat
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	return r.chats[id], nil
}

// ListForUser returns every chat userID participates in, newest first.
func (r *ChatRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats := make([]domain.Chat, 0)
	for _, c := range r.chats {
		if c.IsParticipant(userID) {
			chats = append(chats, *c)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (r *ChatRepo) Count(ctx context.Context) (int, error) {
	return len(r.chats), nil
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// All repositories follow the same lookup convention: a miss is (nil, nil),
// not an error. The in-memory implementations do no locking of their own;
// the service serializes access (see service.ChatService).

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	ListOnlineExcept(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id string) (*domain.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
	Count(ctx context.Context) (int, error)
}

type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	ListForChat(ctx context.Context, chatID string) ([]domain.Message, error)
	LastForChat(ctx context.Context, chatID string) (*domain.Message, error)
	Count(ctx context.Context) (int, error)
}

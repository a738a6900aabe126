package memory

import (
	"context"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// MessageRepo is the append-only message log, one ordered slice per chat.
// Read order always equals append order; wall-clock timestamp ties are
// broken by insertion position.
type MessageRepo struct {
	byChat map[string][]domain.Message
	total  int
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{byChat: make(map[string][]domain.Message)}
}

func (r *MessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	r.byChat[msg.ChatID] = append(r.byChat[msg.ChatID], *msg)
	r.total++
	return nil
}

// ListForChat returns a copy of the chat's log in append order. An existing
// chat with no messages yields an empty slice, never nil.
func (r *MessageRepo) ListForChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	log := r.byChat[chatID]
	out := make([]domain.Message, len(log))
	copy(out, log)
	return out, nil
}

func (r *MessageRepo) LastForChat(ctx context.Context, chatID string) (*domain.Message, error) {
	log := r.byChat[chatID]
	if len(log) == 0 {
		return nil, nil
	}
	last := log[len(log)-1]
	return &last, nil
}

func (r *MessageRepo) Count(ctx context.Context) (int, error) {
	return r.total, nil
}

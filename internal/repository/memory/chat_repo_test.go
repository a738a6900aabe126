package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

func TestChatRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepo()

	a, b := uuid.New(), uuid.New()
	chat := &domain.Chat{
		ID:             domain.DirectChatID(a, b),
		Kind:           domain.ChatKindDirect,
		ParticipantIDs: []uuid.UUID{a, b},
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repo.Create(ctx, chat))

	got, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	require.Same(t, chat, got)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestChatRepo_ListForUser(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepo()

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	older := &domain.Chat{
		ID:             domain.DirectChatID(alice, bob),
		Kind:           domain.ChatKindDirect,
		ParticipantIDs: []uuid.UUID{alice, bob},
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	newer := &domain.Chat{
		ID:             uuid.NewString(),
		Kind:           domain.ChatKindGroup,
		Name:           "Team",
		ParticipantIDs: []uuid.UUID{alice, bob, carol},
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	chats, err := repo.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	// Newest first.
	require.Equal(t, newer.ID, chats[0].ID)
	require.Equal(t, older.ID, chats[1].ID)

	chats, err = repo.ListForUser(ctx, carol)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, newer.ID, chats[0].ID)

	chats, err = repo.ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, chats)
}

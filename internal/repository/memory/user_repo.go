// Package memory holds the in-process registries backing the chat server.
// Nothing here survives a restart and nothing here locks: every call site
// goes through the service layer, which serializes all registry access
// behind a single mutex.
package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/domain"
)

// UserRepo is the identity registry: display name → stable user id plus
// online state and the current connection handle.
type UserRepo struct {
	byID   map[uuid.UUID]*domain.User
	byName map[string]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:   make(map[uuid.UUID]*domain.User),
		byName: make(map[string]*domain.User),
	}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.byID[user.ID] = user
	r.byName[user.DisplayName] = user
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.byID[id], nil
}

func (r *UserRepo) GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error) {
	return r.byName[displayName], nil
}

// ListOnlineExcept returns every online user other than userID, ordered by
// display name so presence listings are stable.
func (r *UserRepo) ListOnlineExcept(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	users := make([]domain.User, 0)
	for _, u := range r.byID {
		if u.Online && u.ID != userID {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName) < strings.ToLower(users[j].DisplayName)
	})
	return users, nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	return len(r.byID), nil
}

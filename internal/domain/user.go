package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity created the first time a display name logs in. Users
// are never destroyed; Online toggles with the connection lifecycle and the
// same display name always resolves to the same ID.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Online      bool      `json:"online"`
	CreatedAt   time.Time `json:"created_at"`

	// ConnID is the id of the WebSocket client currently bound to this user.
	// It is overwritten on reconnect and left stale when the user goes
	// offline, so delivery must always be gated on Online first.
	ConnID uuid.UUID `json:"-"`
}

package service

import "errors"

// Service-level errors. The transport layers translate these into WebSocket
// error events or HTTP status codes; none of them are fatal to the process.
var (
	// Invalid argument family.
	ErrEmptyDisplayName = errors.New("display name is required")
	ErrEmptyMessage     = errors.New("message needs text or an attachment")
	ErrAmbiguous        = errors.New("message takes text or an attachment, not both")
	ErrEmptyGroupName   = errors.New("group name is required")
	ErrNoMembers        = errors.New("group needs at least one member")
	ErrCannotChatSelf   = errors.New("cannot start a chat with yourself")

	// Not found.
	ErrUserNotFound = errors.New("user not found")
	ErrChatNotFound = errors.New("chat not found")

	// Permission denied.
	ErrNotParticipant = errors.New("you are not a participant of this chat")

	// Session tokens.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

package domain

import "errors"

// Errors surfaced by the chat service. Handlers map them onto status codes.
var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidUser          = errors.New("invalid user")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrForbidden            = errors.New("conversation not owned by user")
)

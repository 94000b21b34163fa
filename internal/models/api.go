package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SendMessageRequest defines the expected body for the send-message endpoint.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// --- Response Structs ---

// ChatResource is the representation of a chat returned by the API.
type ChatResource struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateChatResponse wraps the newly created chat.
type CreateChatResponse struct {
	Chat ChatResource `json:"chat"`
}

// SendMessageResponse carries the assistant reply back to the caller.
type SendMessageResponse struct {
	ChatID   uuid.UUID `json:"chat_id"`
	Response string    `json:"response"`
	Role     string    `json:"role"`
	SentAt   time.Time `json:"sent_at"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelErrorResponse is returned when the language model could not produce a
// reply; Reason carries the underlying provider failure for diagnostics.
type ModelErrorResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

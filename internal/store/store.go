package store

import (
	"context"
	"errors"

	"chatbridge-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateMessagePairParams carries the user/assistant pair written after a
// successful model call. Both rows are inserted in one transaction; no
// partial pair is ever visible to a subsequent history read.
type CreateMessagePairParams struct {
	ChatID           uuid.UUID
	UserContent      string
	AssistantContent string
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// CreateChat inserts a new chat with a generated id and server timestamp.
	CreateChat(ctx context.Context) (*models.Chat, error)

	// GetChatByID returns ErrNotFound when the chat does not exist.
	GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)

	// ListMessagesByChat returns the chat's messages ordered by created_at
	// ascending. A chat with no messages yields an empty slice, not an error.
	ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)

	// CreateMessagePair atomically inserts the user message and the assistant
	// reply it provoked, and returns the persisted assistant message.
	CreateMessagePair(ctx context.Context, arg CreateMessagePairParams) (*models.Message, error)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. These are the only two values ever written; the column is a
// plain varchar, not an enum.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat represents a conversation in the database.
type Chat struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// Message represents a single turn in a conversation. Messages ordered by
// created_at ascending form the canonical history of their chat.
type Message struct {
	ID        uuid.UUID `db:"id"`
	ChatID    uuid.UUID `db:"chat_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"chatbridge-backend/internal/models"
	"chatbridge-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// created_at defaults to clock_timestamp() rather than NOW() so the two rows
// of a message pair, inserted in the same transaction, still sort user before
// assistant.
const schema = `
CREATE TABLE IF NOT EXISTS chats (
    id UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE TABLE IF NOT EXISTS messages (
    id UUID PRIMARY KEY,
    chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    role VARCHAR(20) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at);
`

// InitSchema creates the chats and messages tables if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error creating schema: %w", err)
	}
	return nil
}

const createChat = `-- name: CreateChat :one
INSERT INTO chats (id)
VALUES ($1)
RETURNING id, created_at;
`

func (s *PostgresStore) CreateChat(ctx context.Context) (*models.Chat, error) {
	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, createChat, uuid.New()).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("database error creating chat: %w", err)
	}
	return chat, nil
}

const getChatByID = `-- name: GetChatByID :one
SELECT id, created_at
FROM chats
WHERE id = $1;
`

// GetChatByID retrieves a chat by its id.
// Returns store.ErrNotFound if the chat does not exist.
func (s *PostgresStore) GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	chat := &models.Chat{}
	err := s.db.QueryRow(ctx, getChatByID, id).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}
	return chat, nil
}

const listMessagesByChat = `-- name: ListMessagesByChat :many
SELECT id, chat_id, role, content, created_at
FROM messages
WHERE chat_id = $1
ORDER BY created_at ASC;
`

func (s *PostgresStore) ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, listMessagesByChat, chatID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var items []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		items = append(items, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return items, nil
}

const insertMessage = `-- name: InsertMessage :one
INSERT INTO messages (id, chat_id, role, content)
VALUES ($1, $2, $3, $4)
RETURNING id, chat_id, role, content, created_at;
`

// CreateMessagePair inserts the user message and the assistant reply inside
// one transaction. Either both rows are durably recorded or neither is.
func (s *PostgresStore) CreateMessagePair(ctx context.Context, arg store.CreateMessagePairParams) (*models.Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var user models.Message
	err = tx.QueryRow(ctx, insertMessage, uuid.New(), arg.ChatID, models.RoleUser, arg.UserContent).Scan(
		&user.ID, &user.ChatID, &user.Role, &user.Content, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("database error inserting user message: %w", err)
	}

	var assistant models.Message
	err = tx.QueryRow(ctx, insertMessage, uuid.New(), arg.ChatID, models.RoleAssistant, arg.AssistantContent).Scan(
		&assistant.ID, &assistant.ChatID, &assistant.Role, &assistant.Content, &assistant.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("database error inserting assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing message pair: %w", err)
	}

	return &assistant, nil
}

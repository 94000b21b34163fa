package memory

import (
	"context"
	"sync"
	"time"

	"chatbridge-backend/internal/models"
	"chatbridge-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory store.Store used by tests and local runs
// without a database. Messages are kept in insertion order, which matches
// created_at order because timestamps are assigned monotonically.
type MemoryStore struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]models.Chat
	messages map[uuid.UUID][]models.Message
	lastTime time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[uuid.UUID]models.Chat),
		messages: make(map[uuid.UUID][]models.Message),
	}
}

// nextTime returns a strictly increasing timestamp. Callers must hold mu.
func (s *MemoryStore) nextTime() time.Time {
	now := time.Now()
	if !now.After(s.lastTime) {
		now = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = now
	return now
}

func (s *MemoryStore) CreateChat(ctx context.Context) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := models.Chat{ID: uuid.New(), CreatedAt: s.nextTime()}
	s.chats[chat.ID] = chat
	return &chat, nil
}

func (s *MemoryStore) GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &chat, nil
}

func (s *MemoryStore) ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) CreateMessagePair(ctx context.Context, arg store.CreateMessagePairParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[arg.ChatID]; !ok {
		return nil, store.ErrNotFound
	}

	user := models.Message{
		ID:        uuid.New(),
		ChatID:    arg.ChatID,
		Role:      models.RoleUser,
		Content:   arg.UserContent,
		CreatedAt: s.nextTime(),
	}
	assistant := models.Message{
		ID:        uuid.New(),
		ChatID:    arg.ChatID,
		Role:      models.RoleAssistant,
		Content:   arg.AssistantContent,
		CreatedAt: s.nextTime(),
	}
	s.messages[arg.ChatID] = append(s.messages[arg.ChatID], user, assistant)

	result := assistant
	return &result, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"chatbridge-backend/internal/cache"
	"chatbridge-backend/internal/llm"
	"chatbridge-backend/internal/models"
	"chatbridge-backend/internal/store"

	"github.com/google/uuid"
)

// MaxMessageLength is the largest user message accepted by SendMessage,
// counted in characters.
const MaxMessageLength = 4096

// ErrChatNotFound is returned when the caller references a chat id that does
// not exist. It is always wrapped with the offending id.
var ErrChatNotFound = errors.New("chat not found")

// ModelUnavailableError wraps the model-client failure that prevented a
// reply. It is the only failure path of SendMessage besides ErrChatNotFound.
type ModelUnavailableError struct {
	Reason error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Reason)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Reason }

// ChatService orchestrates chat persistence and the model client. It is the
// only component that reads or writes Chat and Message state, and the only
// caller of the model client.
type ChatService struct {
	store store.Store
	llm   llm.Client
	cache *cache.HistoryCache // nil disables history caching
}

func NewChatService(st store.Store, llmClient llm.Client, historyCache *cache.HistoryCache) *ChatService {
	return &ChatService{
		store: st,
		llm:   llmClient,
		cache: historyCache,
	}
}

// CreateChat inserts a new chat and returns it with server-assigned fields.
func (s *ChatService) CreateChat(ctx context.Context) (*models.Chat, error) {
	chat, err := s.store.CreateChat(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat in store: %w", err)
	}
	return chat, nil
}

// SendMessage loads the chat's history, appends the new user turn, asks the
// model client for a reply and persists both turns in one transaction. It
// returns the persisted assistant message.
//
// Concurrent calls against the same chat are not serialized; their history
// reads may interleave with each other's writes.
func (s *ChatService) SendMessage(ctx context.Context, chatID uuid.UUID, content string) (*models.Message, error) {
	if _, err := s.store.GetChatByID(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("chat %s: %w", chatID, ErrChatNotFound)
		}
		return nil, fmt.Errorf("failed to get chat from store: %w", err)
	}

	messages, err := s.loadHistory(ctx, chatID)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Turn, 0, len(messages)+1)
	for _, m := range messages {
		history = append(history, llm.Turn{Role: m.Role, Content: m.Content})
	}
	history = append(history, llm.Turn{Role: llm.RoleUser, Content: content})

	reply, err := s.llm.GetCompletion(ctx, history)
	if err != nil {
		return nil, &ModelUnavailableError{Reason: err}
	}

	assistant, err := s.store.CreateMessagePair(ctx, store.CreateMessagePairParams{
		ChatID:           chatID,
		UserContent:      content,
		AssistantContent: reply,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist message pair: %w", err)
	}

	s.invalidateHistory(ctx, chatID)

	return assistant, nil
}

// loadHistory reads the ordered message history, going through the Redis
// cache when one is configured. Cache failures degrade to a database read.
func (s *ChatService) loadHistory(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetHistory(ctx, chatID)
		if err != nil {
			log.Printf("WARN: history cache read failed for chat %s: %v", chatID, err)
		} else if ok {
			return cached, nil
		}
	}

	messages, err := s.store.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetHistory(ctx, chatID, messages); err != nil {
			log.Printf("WARN: history cache write failed for chat %s: %v", chatID, err)
		}
	}
	return messages, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, chatID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteHistory(ctx, chatID); err != nil {
		log.Printf("WARN: history cache invalidation failed for chat %s: %v", chatID, err)
	}
}

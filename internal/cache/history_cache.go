package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatbridge-backend/internal/models"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// HistoryCache keeps a short-lived copy of a chat's message history in Redis.
// It is an optimization only: the database row order stays canonical and the
// entry is dropped whenever a new message pair commits.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, chatID uuid.UUID) ([]models.Message, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(chatID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, chatID uuid.UUID, messages []models.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(chatID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, chatID uuid.UUID) error {
	if err := c.client.Del(ctx, c.historyKey(chatID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(chatID uuid.UUID) string {
	return "chat:history:" + chatID.String()
}

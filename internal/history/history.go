// Package history keeps the ordered conversation log for each interview in
// a Redis list, one JSON message per entry.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/InterviewAndHealth/Conversation-Service/internal/models"
)

const keyPrefix = "messages:"

// Log is the conversation store consumed by the orchestrator.
type Log interface {
	Append(ctx context.Context, interviewID string, msg models.Message) error
	Messages(ctx context.Context, interviewID string) ([]models.Message, error)
}

// RedisLog implements Log on a Redis list.
type RedisLog struct {
	client *redis.Client
}

func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client}
}

func (l *RedisLog) key(interviewID string) string {
	return keyPrefix + interviewID
}

// Append adds a message at the end of the interview's log.
func (l *RedisLog) Append(ctx context.Context, interviewID string, msg models.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return l.client.RPush(ctx, l.key(interviewID), raw).Err()
}

// Messages returns the full log in append order. An interview with no log
// yields an empty slice, not an error.
func (l *RedisLog) Messages(ctx context.Context, interviewID string) ([]models.Message, error) {
	raws, err := l.client.LRange(ctx, l.key(interviewID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation %s: %w", interviewID, err)
	}

	msgs := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		var m models.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode message in %s: %w", interviewID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

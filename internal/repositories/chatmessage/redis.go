package chatmessage

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
)

// Key pattern: chat_messages:{session_id} -> list of message JSON in commit
// order. Append order is the server ordering contract for chat.
const messagesKeyPrefix = "chat_messages:"

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
}

// NewRedisRepository creates a new Redis repository for chat messages
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

// Append stores a message at the end of the session history
func (r *redisRepository) Append(ctx context.Context, input AppendInput) (*AppendOutput, error) {
	if input.Message == nil {
		return nil, errors.InvalidArgument("message cannot be nil")
	}
	if input.Message.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	data, err := json.Marshal(input.Message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}

	key := messagesKeyPrefix + input.Message.SessionID
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to append message in Redis")
	}

	return &AppendOutput{Message: input.Message}, nil
}

// List returns the full history in commit order (SentAt ascending)
func (r *redisRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	raw, err := r.client.LRange(ctx, messagesKeyPrefix+input.SessionID, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages from Redis")
	}

	messages := make([]*entities.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg entities.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal message")
		}
		messages = append(messages, &msg)
	}

	return &ListOutput{Messages: messages}, nil
}

// Clear drops the whole history for a session
func (r *redisRepository) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	key := messagesKeyPrefix + input.SessionID
	count, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to count messages")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to clear messages from Redis")
	}

	return &ClearOutput{MessagesDeleted: count}, nil
}

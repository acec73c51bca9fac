package initiativeorder

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
)

// Key pattern: initiative:{session_id} -> JSON array of entries
const orderKeyPrefix = "initiative:"

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

// NewRedisRepository creates a new Redis repository for initiative orders
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

// Get retrieves the stored order for a session
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	data, err := r.client.Get(ctx, orderKeyPrefix+input.SessionID).Result()
	if err != nil {
		if err == redis.Nil {
			return &GetOutput{Entries: []entities.InitiativeEntry{}}, nil
		}
		return nil, errors.Wrap(err, "failed to get initiative order from Redis")
	}

	var entries []entities.InitiativeEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal initiative order")
	}

	return &GetOutput{Entries: entries}, nil
}

// Replace stores the full order, overwriting whatever was there
func (r *redisRepository) Replace(ctx context.Context, input ReplaceInput) (*ReplaceOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	entries := input.Entries
	if entries == nil {
		entries = []entities.InitiativeEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal initiative order")
	}

	if err := r.client.Set(ctx, orderKeyPrefix+input.SessionID, data, 0).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to store initiative order in Redis")
	}

	return &ReplaceOutput{Entries: entries}, nil
}

// Clear removes the order for a session
func (r *redisRepository) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	if err := r.client.Del(ctx, orderKeyPrefix+input.SessionID).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to clear initiative order from Redis")
	}

	return &ClearOutput{}, nil
}

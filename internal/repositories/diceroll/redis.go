package diceroll

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
)

// Key pattern: dice_rolls:{session_id} -> list of roll JSON in commit order
const rollsKeyPrefix = "dice_rolls:"

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

// NewRedisRepository creates a new Redis repository for dice rolls
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

// Append stores a roll at the end of the session history
func (r *redisRepository) Append(ctx context.Context, input AppendInput) (*AppendOutput, error) {
	if input.Roll == nil {
		return nil, errors.InvalidArgument("roll cannot be nil")
	}
	if input.Roll.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	data, err := json.Marshal(input.Roll)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal roll")
	}

	key := rollsKeyPrefix + input.Roll.SessionID
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to append roll in Redis")
	}

	return &AppendOutput{Roll: input.Roll}, nil
}

// List returns the most recent rolls, newest first
func (r *redisRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	start := int64(0)
	if input.Limit > 0 {
		start = -input.Limit
	}

	raw, err := r.client.LRange(ctx, rollsKeyPrefix+input.SessionID, start, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rolls from Redis")
	}

	// Stored oldest first; reverse for display order
	rolls := make([]*Roll, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var roll Roll
		if err := json.Unmarshal([]byte(raw[i]), &roll); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal roll")
		}
		rolls = append(rolls, &roll)
	}

	return &ListOutput{Rolls: rolls}, nil
}

// Clear drops the whole roll history for a session
func (r *redisRepository) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	key := rollsKeyPrefix + input.SessionID
	count, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to count rolls")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to clear rolls from Redis")
	}

	return &ClearOutput{RollsDeleted: count}, nil
}

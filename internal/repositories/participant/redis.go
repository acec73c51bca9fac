package participant

import (
	"context"
	"encoding/json"
	"sort"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
)

// Key pattern: session_participants:{session_id} -> hash of user_id to
// participant JSON. The hash field gives (session, user) uniqueness for free.
const participantsKeyPrefix = "session_participants:"

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

// NewRedisRepository creates a new Redis repository for participants
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

// Upsert stores a membership record, replacing any existing one for the
// same (session, user) pair
func (r *redisRepository) Upsert(ctx context.Context, input UpsertInput) (*UpsertOutput, error) {
	if input.Participant == nil {
		return nil, errors.InvalidArgument("participant cannot be nil")
	}
	if input.Participant.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.Participant.UserID == "" {
		return nil, errors.InvalidArgument("user ID cannot be empty")
	}

	data, err := json.Marshal(input.Participant)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal participant")
	}

	key := participantsKeyPrefix + input.Participant.SessionID
	if err := r.client.HSet(ctx, key, input.Participant.UserID, data).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to store participant in Redis")
	}

	return &UpsertOutput{Participant: input.Participant}, nil
}

// Get retrieves one membership record
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.UserID == "" {
		return nil, errors.InvalidArgument("user ID cannot be empty")
	}

	data, err := r.client.HGet(ctx, participantsKeyPrefix+input.SessionID, input.UserID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("participant not found: %s", input.UserID)
		}
		return nil, errors.Wrap(err, "failed to get participant from Redis")
	}

	var p entities.SessionParticipant
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal participant")
	}

	return &GetOutput{Participant: &p}, nil
}

// List returns the roster ordered by join time
func (r *redisRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	raw, err := r.client.HGetAll(ctx, participantsKeyPrefix+input.SessionID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list participants from Redis")
	}

	participants := make([]*entities.SessionParticipant, 0, len(raw))
	for _, item := range raw {
		var p entities.SessionParticipant
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal participant")
		}
		participants = append(participants, &p)
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return &ListOutput{Participants: participants}, nil
}

// Remove deletes one membership record. Removing an absent record is a no-op.
func (r *redisRepository) Remove(ctx context.Context, input RemoveInput) (*RemoveOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.UserID == "" {
		return nil, errors.InvalidArgument("user ID cannot be empty")
	}

	key := participantsKeyPrefix + input.SessionID
	if err := r.client.HDel(ctx, key, input.UserID).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to remove participant from Redis")
	}

	return &RemoveOutput{}, nil
}

// Clear drops the whole roster for a session
func (r *redisRepository) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	if err := r.client.Del(ctx, participantsKeyPrefix+input.SessionID).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to clear participants from Redis")
	}

	return &ClearOutput{}, nil
}

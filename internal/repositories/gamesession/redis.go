package gamesession

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
)

const (
	// Key patterns:
	//   game_session:{id}                 -> session JSON
	//   game_session:campaign:{id}        -> zset of session ids scored by created_at
	//   game_session:all                  -> zset of all session ids scored by created_at
	sessionKeyPrefix  = "game_session:"
	campaignKeyPrefix = "game_session:campaign:"
	allSessionsKey    = "game_session:all"
)

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

// NewRedisRepository creates a new Redis repository for game sessions
func NewRedisRepository(cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{client: cfg.Client}, nil
}

var _ Repository = (*redisRepository)(nil)

// Create stores a new session and indexes it for listing
func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument("session cannot be nil")
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	if err := r.store(ctx, input.Session); err != nil {
		return nil, err
	}

	score := float64(input.Session.CreatedAt.UnixMilli())
	member := redis.Z{Score: score, Member: input.Session.ID}
	if err := r.client.ZAdd(ctx, allSessionsKey, member).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to index session")
	}
	if input.Session.CampaignID != "" {
		key := campaignKeyPrefix + input.Session.CampaignID
		if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
			return nil, errors.Wrap(err, "failed to index session by campaign")
		}
	}

	return &CreateOutput{Session: input.Session}, nil
}

// Get retrieves a session by id
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	data, err := r.client.Get(ctx, sessionKeyPrefix+input.ID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("game session not found: %s", input.ID)
		}
		return nil, errors.Wrap(err, "failed to get session from Redis")
	}

	var session entities.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}

	return &GetOutput{Session: &session}, nil
}

// List returns sessions newest first, optionally filtered by campaign
func (r *redisRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	key := allSessionsKey
	if input.CampaignID != "" {
		key = campaignKeyPrefix + input.CampaignID
	}

	ids, err := r.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session ids")
	}

	sessions := make([]*entities.GameSession, 0, len(ids))
	for _, id := range ids {
		out, err := r.Get(ctx, GetInput{ID: id})
		if err != nil {
			if errors.IsNotFound(err) {
				// Index can briefly outlive a deleted session
				continue
			}
			return nil, err
		}
		sessions = append(sessions, out.Session)
	}

	return &ListOutput{Sessions: sessions}, nil
}

// Update replaces the stored session
func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument("session cannot be nil")
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	// Make sure it exists so updates can't resurrect deleted sessions
	if _, err := r.Get(ctx, GetInput{ID: input.Session.ID}); err != nil {
		return nil, err
	}

	if err := r.store(ctx, input.Session); err != nil {
		return nil, err
	}

	return &UpdateOutput{Session: input.Session}, nil
}

// Delete removes a session and its index entries
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	out, err := r.Get(ctx, GetInput{ID: input.ID})
	if err != nil {
		return nil, err
	}

	if err := r.client.Del(ctx, sessionKeyPrefix+input.ID).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to delete session from Redis")
	}
	if err := r.client.ZRem(ctx, allSessionsKey, input.ID).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to remove session index")
	}
	if out.Session.CampaignID != "" {
		key := campaignKeyPrefix + out.Session.CampaignID
		if err := r.client.ZRem(ctx, key, input.ID).Err(); err != nil {
			return nil, errors.Wrap(err, "failed to remove campaign index")
		}
	}

	return &DeleteOutput{}, nil
}

func (r *redisRepository) store(ctx context.Context, session *entities.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	key := fmt.Sprintf("%s%s", sessionKeyPrefix, session.ID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to store session in Redis")
	}
	return nil
}

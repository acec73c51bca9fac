// Package gamesession provides repository interface and types for game
// session aggregates.
package gamesession

import (
	"context"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=gamesessionmock github.com/KirkDiggler/vtt-api/internal/repositories/gamesession Repository

// CreateInput contains parameters for storing a new session
type CreateInput struct {
	Session *entities.GameSession
}

// CreateOutput contains the stored session
type CreateOutput struct {
	Session *entities.GameSession
}

// GetInput identifies a session to retrieve
type GetInput struct {
	ID string
}

// GetOutput contains the retrieved session
type GetOutput struct {
	Session *entities.GameSession
}

// ListInput filters the session listing. CampaignID is optional; when empty
// all sessions are returned, newest first.
type ListInput struct {
	CampaignID string
}

// ListOutput contains the matching sessions, newest first
type ListOutput struct {
	Sessions []*entities.GameSession
}

// UpdateInput contains the full session to store
type UpdateInput struct {
	Session *entities.GameSession
}

// UpdateOutput contains the stored session
type UpdateOutput struct {
	Session *entities.GameSession
}

// DeleteInput identifies a session to delete
type DeleteInput struct {
	ID string
}

// DeleteOutput is the result of deleting a session
type DeleteOutput struct{}

// Repository defines storage operations for game sessions
type Repository interface {
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)
	Get(ctx context.Context, input GetInput) (*GetOutput, error)
	List(ctx context.Context, input ListInput) (*ListOutput, error)
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// Package participant provides repository interface and types for session
// membership records.
package participant

import (
	"context"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=participantmock github.com/KirkDiggler/vtt-api/internal/repositories/participant Repository

// UpsertInput contains the participant to store. Writing the same
// (session, user) pair twice replaces the record, which gives the
// upsert-by-unique-constraint semantics the membership table needs.
type UpsertInput struct {
	Participant *entities.SessionParticipant
}

// UpsertOutput contains the stored participant
type UpsertOutput struct {
	Participant *entities.SessionParticipant
}

// GetInput identifies one membership record
type GetInput struct {
	SessionID string
	UserID    string
}

// GetOutput contains the retrieved participant
type GetOutput struct {
	Participant *entities.SessionParticipant
}

// ListInput identifies a session roster to fetch
type ListInput struct {
	SessionID string
}

// ListOutput contains the roster ordered by join time
type ListOutput struct {
	Participants []*entities.SessionParticipant
}

// RemoveInput identifies one membership record to delete
type RemoveInput struct {
	SessionID string
	UserID    string
}

// RemoveOutput is the result of removing a participant
type RemoveOutput struct{}

// ClearInput identifies the session roster to drop
type ClearInput struct {
	SessionID string
}

// ClearOutput is the result of clearing a roster
type ClearOutput struct{}

// Repository defines storage operations for session participants
type Repository interface {
	Upsert(ctx context.Context, input UpsertInput) (*UpsertOutput, error)
	Get(ctx context.Context, input GetInput) (*GetOutput, error)
	List(ctx context.Context, input ListInput) (*ListOutput, error)
	Remove(ctx context.Context, input RemoveInput) (*RemoveOutput, error)
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

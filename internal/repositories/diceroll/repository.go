// Package diceroll provides repository interface and types for the durable
// dice roll history of a session.
package diceroll

import (
	"context"
	"time"

	"github.com/KirkDiggler/vtt-api/internal/dice"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=dicerollmock github.com/KirkDiggler/vtt-api/internal/repositories/diceroll Repository

// Roll is one persisted dice roll. The result is stored verbatim, breakdown
// included, so it can be displayed later without re-simulating randomness.
type Roll struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	UserID    string           `json:"user_id"`
	Purpose   string           `json:"purpose,omitempty"`
	Result    *dice.RollResult `json:"result"`
	RolledAt  time.Time        `json:"rolled_at"`
}

// AppendInput contains the roll to persist
type AppendInput struct {
	Roll *Roll
}

// AppendOutput contains the stored roll
type AppendOutput struct {
	Roll *Roll
}

// ListInput identifies a session's roll history. Limit bounds the number of
// returned rolls; zero means no limit.
type ListInput struct {
	SessionID string
	Limit     int64
}

// ListOutput contains the most recent rolls, newest first
type ListOutput struct {
	Rolls []*Roll
}

// ClearInput identifies the session whose history to drop
type ClearInput struct {
	SessionID string
}

// ClearOutput is the result of clearing a history
type ClearOutput struct {
	RollsDeleted int64
}

// Repository defines storage operations for dice rolls
type Repository interface {
	Append(ctx context.Context, input AppendInput) (*AppendOutput, error)
	List(ctx context.Context, input ListInput) (*ListOutput, error)
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

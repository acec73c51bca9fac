// Package initiativeorder provides repository interface and types for a
// session's initiative order.
//
// The order is persisted wholesale: every write replaces the entire list.
// Concurrent GM edits from two clients therefore race with last-write-wins
// semantics. That is an accepted limitation of the single-GM-editing
// convention, not a protocol guarantee.
package initiativeorder

import (
	"context"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=initiativeordermock github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder Repository

// GetInput identifies the session order to fetch
type GetInput struct {
	SessionID string
}

// GetOutput contains the stored order. A session with no order yet yields an
// empty slice, not an error.
type GetOutput struct {
	Entries []entities.InitiativeEntry
}

// ReplaceInput contains the full order to store
type ReplaceInput struct {
	SessionID string
	Entries   []entities.InitiativeEntry
}

// ReplaceOutput contains the stored order
type ReplaceOutput struct {
	Entries []entities.InitiativeEntry
}

// ClearInput identifies the session order to drop
type ClearInput struct {
	SessionID string
}

// ClearOutput is the result of clearing an order
type ClearOutput struct{}

// Repository defines storage operations for initiative orders
type Repository interface {
	Get(ctx context.Context, input GetInput) (*GetOutput, error)
	Replace(ctx context.Context, input ReplaceInput) (*ReplaceOutput, error)
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

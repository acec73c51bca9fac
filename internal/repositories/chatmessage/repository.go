// Package chatmessage provides repository interface and types for the
// append-only chat history of a session.
package chatmessage

import (
	"context"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=chatmessagemock github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage Repository

// AppendInput contains the message to append. Messages are never edited or
// removed individually; history is only cleared with the session.
type AppendInput struct {
	Message *entities.ChatMessage
}

// AppendOutput contains the stored message
type AppendOutput struct {
	Message *entities.ChatMessage
}

// ListInput identifies the session history to fetch
type ListInput struct {
	SessionID string
}

// ListOutput contains messages ordered by SentAt ascending
type ListOutput struct {
	Messages []*entities.ChatMessage
}

// ClearInput identifies the session whose history to drop
type ClearInput struct {
	SessionID string
}

// ClearOutput is the result of clearing a history
type ClearOutput struct {
	MessagesDeleted int64
}

// Repository defines storage operations for chat messages
type Repository interface {
	Append(ctx context.Context, input AppendInput) (*AppendOutput, error)
	List(ctx context.Context, input ListInput) (*ListOutput, error)
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

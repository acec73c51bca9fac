// Package session implements the session aggregate service: lifecycle and
// content verbs over the repositories, plus a merged live projection of the
// one session this service instance is connected to.
//
// Two write policies coexist. Chat messages and dice rolls are write-through:
// the verb persists and broadcasts, and the local projection only changes when
// the broadcast echoes back through the channel, so every subscriber including
// the author sees the same ordering. Initiative and session metadata apply
// directly to the projection after the write, with a broadcast invalidation
// signal for everyone else.
package session

import (
	"context"
	"time"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
)

//go:generate mockgen -destination=mock/mock_service.go -package=sessionmock github.com/KirkDiggler/vtt-api/internal/orchestrators/session Service

// CreateSessionInput contains parameters for creating a session. The caller
// becomes the session's GM.
type CreateSessionInput struct {
	CampaignID  string
	Name        string
	Description string
	ScheduledAt time.Time
}

// CreateSessionOutput contains the created session
type CreateSessionOutput struct {
	Session *entities.GameSession
}

// GetSessionInput identifies a session to retrieve
type GetSessionInput struct {
	SessionID string
}

// GetSessionOutput contains the retrieved session
type GetSessionOutput struct {
	Session *entities.GameSession
}

// ListSessionsInput filters the listing. CampaignID is optional.
type ListSessionsInput struct {
	CampaignID string
}

// ListSessionsOutput contains the matching sessions, newest first
type ListSessionsOutput struct {
	Sessions []*entities.GameSession
}

// UpdateSessionInput contains metadata changes. Nil fields are left unchanged.
type UpdateSessionInput struct {
	SessionID    string
	Name         *string
	Description  *string
	CurrentScene *string
	Notes        *string
	ScheduledAt  *time.Time
}

// UpdateSessionOutput contains the updated session
type UpdateSessionOutput struct {
	Session *entities.GameSession
}

// DeleteSessionInput identifies a session to delete along with its chat, dice,
// initiative, and participant records
type DeleteSessionInput struct {
	SessionID string
}

// DeleteSessionOutput is the result of deleting a session
type DeleteSessionOutput struct{}

// StartSessionInput identifies the session to start
type StartSessionInput struct {
	SessionID string
}

// StartSessionOutput contains the session after the transition
type StartSessionOutput struct {
	Session *entities.GameSession
}

// PauseSessionInput identifies the session to pause
type PauseSessionInput struct {
	SessionID string
}

// PauseSessionOutput contains the session after the transition
type PauseSessionOutput struct {
	Session *entities.GameSession
}

// EndSessionInput identifies the session to complete
type EndSessionInput struct {
	SessionID string
}

// EndSessionOutput contains the session after the transition
type EndSessionOutput struct {
	Session *entities.GameSession
}

// SendMessageInput contains a chat message to append. Kind defaults to the
// plain message kind.
type SendMessageInput struct {
	SessionID string
	Kind      entities.MessageKind
	Body      string
	Metadata  map[string]string
}

// SendMessageOutput contains the stored message
type SendMessageOutput struct {
	Message *entities.ChatMessage
}

// RollDiceInput contains a dice roll request. Modifier is added on top of the
// expression's own modifier; Advantage defaults to normal.
type RollDiceInput struct {
	SessionID  string
	Expression string
	Modifier   int32
	Advantage  dice.AdvantageMode
	Purpose    string
}

// RollDiceOutput contains the persisted roll and the dice-kind chat message
// announcing it
type RollDiceOutput struct {
	Roll    *diceroll.Roll
	Message *entities.ChatMessage
}

// AddToInitiativeInput contains a combatant to add to the turn order
type AddToInitiativeInput struct {
	SessionID   string
	CharacterID string
	DisplayName string
	Score       int32
	HitPoints   *entities.HitPoints
}

// AddToInitiativeOutput contains the new entry and the resulting order
type AddToInitiativeOutput struct {
	Entry   *entities.InitiativeEntry
	Entries []entities.InitiativeEntry
}

// UpdateInitiativeInput contains changes to one entry. Nil fields are left
// unchanged; a non-nil empty Conditions slice clears the conditions.
type UpdateInitiativeInput struct {
	SessionID  string
	EntryID    string
	Score      *int32
	HitPoints  *entities.HitPoints
	Conditions []string
}

// UpdateInitiativeOutput contains the resulting order
type UpdateInitiativeOutput struct {
	Entries []entities.InitiativeEntry
}

// RemoveFromInitiativeInput identifies an entry to remove
type RemoveFromInitiativeInput struct {
	SessionID string
	EntryID   string
}

// RemoveFromInitiativeOutput contains the resulting order
type RemoveFromInitiativeOutput struct {
	Entries []entities.InitiativeEntry
}

// NextTurnInput identifies the session whose turn to advance
type NextTurnInput struct {
	SessionID string
}

// NextTurnOutput reports the turn that just began. Round counts wraparounds,
// starting at 1.
type NextTurnOutput struct {
	Entries []entities.InitiativeEntry
	Active  *entities.InitiativeEntry
	Round   int
}

// ResetInitiativeInput identifies the session whose order to clear
type ResetInitiativeInput struct {
	SessionID string
}

// ResetInitiativeOutput is the result of clearing the order
type ResetInitiativeOutput struct{}

// JoinSessionInput contains a membership request. Role defaults to player;
// joining twice updates the existing record.
type JoinSessionInput struct {
	SessionID   string
	CharacterID string
	Role        entities.ParticipantRole
}

// JoinSessionOutput contains the stored membership
type JoinSessionOutput struct {
	Participant *entities.SessionParticipant
}

// LeaveSessionInput identifies the membership to remove
type LeaveSessionInput struct {
	SessionID string
}

// LeaveSessionOutput is the result of leaving
type LeaveSessionOutput struct{}

// ConnectToSessionInput identifies the session to go live on
type ConnectToSessionInput struct {
	SessionID string
}

// ConnectToSessionOutput contains the projection snapshot after connecting
type ConnectToSessionOutput struct {
	State *State
}

// ConnectionState reports where the live connection is in its lifecycle
type ConnectionState struct {
	SessionID  string
	Loading    bool
	Connecting bool
	Connected  bool
}

// State is a snapshot of the live projection for the connected session
type State struct {
	Session      *entities.GameSession
	Messages     []*entities.ChatMessage
	DiceRolls    []*diceroll.Roll
	Initiative   []entities.InitiativeEntry
	Participants []*entities.SessionParticipant
	Presence     map[string]entities.PresenceStatus
	Round        int
	Loading      bool
	Connecting   bool
	Connected    bool
}

// Service defines the session aggregate operations
type Service interface {
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
	UpdateSession(ctx context.Context, input *UpdateSessionInput) (*UpdateSessionOutput, error)
	DeleteSession(ctx context.Context, input *DeleteSessionInput) (*DeleteSessionOutput, error)

	StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error)
	PauseSession(ctx context.Context, input *PauseSessionInput) (*PauseSessionOutput, error)
	EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error)

	SendMessage(ctx context.Context, input *SendMessageInput) (*SendMessageOutput, error)
	RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error)

	AddToInitiative(ctx context.Context, input *AddToInitiativeInput) (*AddToInitiativeOutput, error)
	UpdateInitiative(ctx context.Context, input *UpdateInitiativeInput) (*UpdateInitiativeOutput, error)
	RemoveFromInitiative(ctx context.Context, input *RemoveFromInitiativeInput) (*RemoveFromInitiativeOutput, error)
	NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error)
	ResetInitiative(ctx context.Context, input *ResetInitiativeInput) (*ResetInitiativeOutput, error)

	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)
	LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error)

	ConnectToSession(ctx context.Context, input *ConnectToSessionInput) (*ConnectToSessionOutput, error)
	DisconnectFromSession(ctx context.Context)

	// CurrentState returns a snapshot of the live projection. The zero
	// snapshot (no session, not connected) is returned when nothing is live.
	CurrentState() *State

	// Focused projection reads, each a copy safe to retain
	Messages() []*entities.ChatMessage
	DiceRolls() []*diceroll.Roll
	InitiativeOrder() []entities.InitiativeEntry
	Participants() []*entities.SessionParticipant
	ConnectionState() ConnectionState

	// Channel exposes the realtime channel for transport gateways
	Channel() realtime.Channel
}

// Package entities provides core data structures for vtt-api.
package entities

import (
	"time"
)

// SessionStatus represents the lifecycle state of a game session
type SessionStatus string

// Session statuses. Completed and Cancelled are terminal.
const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// CanTransitionTo reports whether the status may move to the target status.
// Valid moves: scheduled→active, active→paused, paused→active,
// active→completed, paused→completed, scheduled/active/paused→cancelled.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	switch target {
	case SessionStatusActive:
		return s == SessionStatusScheduled || s == SessionStatusPaused
	case SessionStatusPaused:
		return s == SessionStatusActive
	case SessionStatusCompleted:
		return s == SessionStatusActive || s == SessionStatusPaused
	case SessionStatusCancelled:
		return s == SessionStatusScheduled || s == SessionStatusActive || s == SessionStatusPaused
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// GameSession is the aggregate root for a live game session
type GameSession struct {
	ID           string        `json:"id"`
	CampaignID   string        `json:"campaign_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Status       SessionStatus `json:"status"`
	CurrentScene string        `json:"current_scene,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	ScheduledAt  time.Time     `json:"scheduled_at,omitempty"`
	StartedAt    time.Time     `json:"started_at,omitempty"`
	EndedAt      time.Time     `json:"ended_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// MessageKind classifies a chat message
type MessageKind string

// Message kinds
const (
	MessageKindMessage MessageKind = "message"
	MessageKindAction  MessageKind = "action"
	MessageKindSystem  MessageKind = "system"
	MessageKindDice    MessageKind = "dice"
	MessageKindAI      MessageKind = "ai"
)

// Valid reports whether the kind is one of the known message kinds
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindMessage, MessageKindAction, MessageKindSystem, MessageKindDice, MessageKindAI:
		return true
	default:
		return false
	}
}

// ChatMessage is one timestamped utterance in a session. Messages are
// append-only; ordering is by the server-assigned SentAt.
type ChatMessage struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	AuthorID  string            `json:"author_id"`
	Kind      MessageKind       `json:"kind"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	SentAt    time.Time         `json:"sent_at"`
}

// ParticipantRole distinguishes the GM from players
type ParticipantRole string

// Participant roles
const (
	RoleGM     ParticipantRole = "gm"
	RolePlayer ParticipantRole = "player"
)

// PresenceStatus is the ephemeral online state of a participant
type PresenceStatus string

// Presence statuses
const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// SessionParticipant is a membership plus presence record. Uniqueness of
// (session, user) is enforced by the persistence layer, not re-validated here.
type SessionParticipant struct {
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	CharacterID string          `json:"character_id,omitempty"`
	Role        ParticipantRole `json:"role"`
	Presence    PresenceStatus  `json:"presence"`
	JoinedAt    time.Time       `json:"joined_at"`
}

// Package realtime provides the per-session realtime channel: one logical
// subscription per live session that fans out chat messages, dice rolls,
// initiative mutations, and participant changes to connected clients, plus an
// ephemeral presence sub-protocol.
//
// Initiative and participant events carry no payload on purpose: they are
// invalidation signals and subscribers re-fetch the full collection. That is
// a deliberate simplification for single-table session sizes; a finer-grained
// diff protocol could replace it without changing this interface.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
)

//go:generate mockgen -destination=mock/mock_channel.go -package=realtimemock github.com/KirkDiggler/vtt-api/internal/realtime Channel

// EventType classifies a realtime event
type EventType string

// Event types
const (
	EventChatMessage         EventType = "chat_message.created"
	EventDiceRoll            EventType = "dice_roll.created"
	EventInitiativeChanged   EventType = "initiative.changed"
	EventParticipantsChanged EventType = "participants.changed"
	EventPresenceJoin        EventType = "presence.join"
	EventPresenceLeave       EventType = "presence.leave"
)

// Event is one message on a session's channel
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// PresenceState is one participant's ephemeral online status
type PresenceState struct {
	UserID string                  `json:"user_id"`
	Status entities.PresenceStatus `json:"status"`
}

// Handlers are the subscriber callbacks. Nil callbacks are skipped. They are
// invoked from the channel's receive goroutine; subscribers guard their own
// state.
type Handlers struct {
	OnChatMessage         func(*entities.ChatMessage)
	OnDiceRoll            func(*diceroll.Roll)
	OnInitiativeChanged   func()
	OnParticipantsChanged func()
	OnPresenceJoin        func(PresenceState)
	OnPresenceLeave       func(PresenceState)
	OnPresenceSync        func([]PresenceState)
	OnConnectionChange    func(connected bool)
}

// Channel is the realtime transport for one client. At most one session is
// subscribed at a time; Connect to a new session tears down the previous
// subscription first. The channel never reconnects on its own: a dropped
// connection surfaces through OnConnectionChange(false) and reconnection is
// the caller's policy.
type Channel interface {
	// Connect subscribes to a session's events. It returns only after the
	// subscription handshake confirms active status.
	Connect(ctx context.Context, sessionID string) error

	// Disconnect tears down the subscription. Idempotent; always leaves the
	// channel reporting disconnected.
	Disconnect()

	// Connected reports whether the subscription is live
	Connected() bool

	// SessionID returns the currently subscribed session, or empty
	SessionID() string

	// Publish broadcasts an event to every subscriber of the event's session.
	// Publishing does not require a subscription.
	Publish(ctx context.Context, event *Event) error

	// Track records this client's presence and announces it to the session
	Track(ctx context.Context, userID string, status entities.PresenceStatus) error
}

// NewChatMessageEvent wraps a chat message for broadcast
func NewChatMessageEvent(msg *entities.ChatMessage) (*Event, error) {
	return newPayloadEvent(EventChatMessage, msg.SessionID, msg)
}

// NewDiceRollEvent wraps a dice roll for broadcast
func NewDiceRollEvent(roll *diceroll.Roll) (*Event, error) {
	return newPayloadEvent(EventDiceRoll, roll.SessionID, roll)
}

// NewInitiativeChangedEvent signals that a session's initiative order changed
func NewInitiativeChangedEvent(sessionID string) *Event {
	return &Event{Type: EventInitiativeChanged, SessionID: sessionID}
}

// NewParticipantsChangedEvent signals that a session's roster changed
func NewParticipantsChangedEvent(sessionID string) *Event {
	return &Event{Type: EventParticipantsChanged, SessionID: sessionID}
}

func newPayloadEvent(eventType EventType, sessionID string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event payload")
	}
	return &Event{Type: eventType, SessionID: sessionID, Payload: data}, nil
}

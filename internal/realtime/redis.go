package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
)

const (
	// Key patterns:
	//   session_events:{session_id}   -> pub/sub topic for all event classes
	//   session_presence:{session_id} -> hash of user_id to presence status
	eventsKeyPrefix   = "session_events:"
	presenceKeyPrefix = "session_presence:"

	defaultConnectTimeout = 10 * time.Second
)

// Config holds the dependencies for the Redis channel
type Config struct {
	Client redisclient.Client

	// ConnectTimeout bounds the subscription handshake. Zero means the
	// default of ten seconds.
	ConnectTimeout time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	return nil
}

type redisChannel struct {
	client   redisclient.Client
	handlers Handlers
	timeout  time.Duration

	mu          sync.Mutex
	pubsub      *redisclient.PubSub
	sessionID   string
	connected   bool
	trackedUser string
}

// NewRedisChannel creates a realtime channel backed by Redis pub/sub
func NewRedisChannel(cfg *Config, handlers Handlers) (Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	return &redisChannel{
		client:   cfg.Client,
		handlers: handlers,
		timeout:  timeout,
	}, nil
}

var _ Channel = (*redisChannel)(nil)

// Connect subscribes to the session's event topic. Any previous subscription
// is torn down first so events from two sessions can never interleave.
func (c *redisChannel) Connect(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.InvalidArgument("session ID cannot be empty")
	}

	c.Disconnect()

	pubsub := c.client.Subscribe(ctx, eventsKeyPrefix+sessionID)

	// The handshake: Receive blocks until the server confirms the
	// subscription. A failure here means we never went live.
	handshakeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := pubsub.Receive(handshakeCtx); err != nil {
		_ = pubsub.Close()
		c.notifyConnection(false)
		return errors.WrapWithCode(err, errors.CodeUnavailable, "realtime subscription handshake failed")
	}

	c.mu.Lock()
	c.pubsub = pubsub
	c.sessionID = sessionID
	c.connected = true
	c.mu.Unlock()

	go c.receive(pubsub, sessionID)

	if c.handlers.OnPresenceSync != nil {
		states, err := c.presenceStates(ctx, sessionID)
		if err != nil {
			slog.Warn("Failed to load presence state", "session_id", sessionID, "error", err)
		} else {
			c.handlers.OnPresenceSync(states)
		}
	}

	c.notifyConnection(true)
	return nil
}

// Disconnect tears down the subscription and withdraws tracked presence.
// Safe to call when not connected.
func (c *redisChannel) Disconnect() {
	c.mu.Lock()
	pubsub := c.pubsub
	sessionID := c.sessionID
	trackedUser := c.trackedUser
	wasConnected := c.connected
	c.pubsub = nil
	c.sessionID = ""
	c.trackedUser = ""
	c.connected = false
	c.mu.Unlock()

	if trackedUser != "" {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		c.withdrawPresence(ctx, sessionID, trackedUser)
		cancel()
	}

	if pubsub != nil {
		_ = pubsub.Close()
	}
	if wasConnected {
		c.notifyConnection(false)
	}
}

// Connected reports whether the subscription is live
func (c *redisChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionID returns the currently subscribed session, or empty
func (c *redisChannel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Publish broadcasts an event to the event's session topic
func (c *redisChannel) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.InvalidArgument("event cannot be nil")
	}
	if event.SessionID == "" {
		return errors.InvalidArgument("event session ID cannot be empty")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	if err := c.client.Publish(ctx, eventsKeyPrefix+event.SessionID, data).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to publish event")
	}
	return nil
}

// Track records this client's presence in the session hash and announces the
// change. Tracking again with a new status updates it (online -> away).
func (c *redisChannel) Track(ctx context.Context, userID string, status entities.PresenceStatus) error {
	c.mu.Lock()
	sessionID := c.sessionID
	connected := c.connected
	if connected {
		c.trackedUser = userID
	}
	c.mu.Unlock()

	if !connected {
		return errors.FailedPrecondition("cannot track presence while disconnected")
	}

	if err := c.client.HSet(ctx, presenceKeyPrefix+sessionID, userID, string(status)).Err(); err != nil {
		return errors.Wrap(err, "failed to store presence")
	}

	event, err := newPayloadEvent(EventPresenceJoin, sessionID, PresenceState{UserID: userID, Status: status})
	if err != nil {
		return err
	}
	return c.Publish(ctx, event)
}

// receive pumps events from the subscription until it closes. A closed
// message stream with the subscription still current means the connection
// dropped; that surfaces as connected=false and no automatic reconnect.
func (c *redisChannel) receive(pubsub *redisclient.PubSub, sessionID string) {
	for msg := range pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			slog.Warn("Dropping malformed realtime event", "session_id", sessionID, "error", err)
			continue
		}
		c.dispatch(&event)
	}

	c.mu.Lock()
	dropped := c.pubsub == pubsub
	if dropped {
		c.pubsub = nil
		c.connected = false
	}
	c.mu.Unlock()

	if dropped {
		slog.Info("Realtime connection dropped", "session_id", sessionID)
		c.notifyConnection(false)
	}
}

func (c *redisChannel) dispatch(event *Event) {
	switch event.Type {
	case EventChatMessage:
		if c.handlers.OnChatMessage == nil {
			return
		}
		var msg entities.ChatMessage
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			slog.Warn("Dropping malformed chat message event", "error", err)
			return
		}
		c.handlers.OnChatMessage(&msg)

	case EventDiceRoll:
		if c.handlers.OnDiceRoll == nil {
			return
		}
		var roll diceroll.Roll
		if err := json.Unmarshal(event.Payload, &roll); err != nil {
			slog.Warn("Dropping malformed dice roll event", "error", err)
			return
		}
		c.handlers.OnDiceRoll(&roll)

	case EventInitiativeChanged:
		if c.handlers.OnInitiativeChanged != nil {
			c.handlers.OnInitiativeChanged()
		}

	case EventParticipantsChanged:
		if c.handlers.OnParticipantsChanged != nil {
			c.handlers.OnParticipantsChanged()
		}

	case EventPresenceJoin, EventPresenceLeave:
		var state PresenceState
		if err := json.Unmarshal(event.Payload, &state); err != nil {
			slog.Warn("Dropping malformed presence event", "error", err)
			return
		}
		if event.Type == EventPresenceJoin && c.handlers.OnPresenceJoin != nil {
			c.handlers.OnPresenceJoin(state)
		}
		if event.Type == EventPresenceLeave && c.handlers.OnPresenceLeave != nil {
			c.handlers.OnPresenceLeave(state)
		}
	}
}

func (c *redisChannel) presenceStates(ctx context.Context, sessionID string) ([]PresenceState, error) {
	raw, err := c.client.HGetAll(ctx, presenceKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load presence hash")
	}

	states := make([]PresenceState, 0, len(raw))
	for userID, status := range raw {
		states = append(states, PresenceState{
			UserID: userID,
			Status: entities.PresenceStatus(status),
		})
	}
	return states, nil
}

func (c *redisChannel) withdrawPresence(ctx context.Context, sessionID, userID string) {
	if err := c.client.HDel(ctx, presenceKeyPrefix+sessionID, userID).Err(); err != nil {
		slog.Warn("Failed to withdraw presence", "session_id", sessionID, "user_id", userID, "error", err)
	}

	event, err := newPayloadEvent(EventPresenceLeave, sessionID, PresenceState{
		UserID: userID,
		Status: entities.PresenceOffline,
	})
	if err != nil {
		return
	}
	if err := c.Publish(ctx, event); err != nil {
		slog.Warn("Failed to announce presence leave", "session_id", sessionID, "error", err)
	}
}

func (c *redisChannel) notifyConnection(connected bool) {
	if c.handlers.OnConnectionChange != nil {
		c.handlers.OnConnectionChange(connected)
	}
}

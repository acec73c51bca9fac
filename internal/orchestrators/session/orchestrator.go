package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/pkg/clock"
	"github.com/KirkDiggler/vtt-api/internal/pkg/idgen"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
	"github.com/KirkDiggler/vtt-api/internal/repositories/gamesession"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
	"github.com/KirkDiggler/vtt-api/internal/repositories/participant"
)

const (
	defaultDiceHistoryLimit = 50
	refreshTimeout          = 10 * time.Second
)

// ChannelFactory builds the realtime channel with the orchestrator's event
// handlers bound. Injected so tests can supply a mock.
type ChannelFactory func(handlers realtime.Handlers) (realtime.Channel, error)

// Config holds the dependencies for the session orchestrator
type Config struct {
	SessionRepo     gamesession.Repository
	ChatRepo        chatmessage.Repository
	DiceRepo        diceroll.Repository
	InitiativeRepo  initiativeorder.Repository
	ParticipantRepo participant.Repository
	NewChannel      ChannelFactory
	Roller          dice.Roller
	IDGenerator     idgen.Generator
	Clock           clock.Clock

	// DiceHistoryLimit bounds the roll history loaded on connect. Zero means
	// the default of 50.
	DiceHistoryLimit int64
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.ChatRepo == nil {
		vb.RequiredField("ChatRepo")
	}
	if c.DiceRepo == nil {
		vb.RequiredField("DiceRepo")
	}
	if c.InitiativeRepo == nil {
		vb.RequiredField("InitiativeRepo")
	}
	if c.ParticipantRepo == nil {
		vb.RequiredField("ParticipantRepo")
	}
	if c.NewChannel == nil {
		vb.RequiredField("NewChannel")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	return vb.Build()
}

// Orchestrator implements Service
type Orchestrator struct {
	sessionRepo     gamesession.Repository
	chatRepo        chatmessage.Repository
	diceRepo        diceroll.Repository
	initiativeRepo  initiativeorder.Repository
	participantRepo participant.Repository
	channel         realtime.Channel
	roller          dice.Roller
	idGen           idgen.Generator
	clock           clock.Clock
	historyLimit    int64

	// mu guards the live projection below. Channel callbacks run on the
	// receive goroutine and merge into the same state the verbs read.
	mu    sync.RWMutex
	state State
}

// New creates a new session orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	limit := cfg.DiceHistoryLimit
	if limit == 0 {
		limit = defaultDiceHistoryLimit
	}

	o := &Orchestrator{
		sessionRepo:     cfg.SessionRepo,
		chatRepo:        cfg.ChatRepo,
		diceRepo:        cfg.DiceRepo,
		initiativeRepo:  cfg.InitiativeRepo,
		participantRepo: cfg.ParticipantRepo,
		roller:          cfg.Roller,
		idGen:           cfg.IDGenerator,
		clock:           cfg.Clock,
		historyLimit:    limit,
	}

	channel, err := cfg.NewChannel(realtime.Handlers{
		OnChatMessage:         o.onChatMessage,
		OnDiceRoll:            o.onDiceRoll,
		OnInitiativeChanged:   o.onInitiativeChanged,
		OnParticipantsChanged: o.onParticipantsChanged,
		OnPresenceJoin:        o.onPresenceJoin,
		OnPresenceLeave:       o.onPresenceLeave,
		OnPresenceSync:        o.onPresenceSync,
		OnConnectionChange:    o.onConnectionChange,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create realtime channel")
	}
	o.channel = channel

	return o, nil
}

var _ Service = (*Orchestrator)(nil)

// Channel exposes the realtime channel for transport gateways
func (o *Orchestrator) Channel() realtime.Channel {
	return o.channel
}

// CurrentState returns a snapshot of the live projection
func (o *Orchestrator) CurrentState() *State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

// Messages returns the connected session's chat log, oldest first
func (o *Orchestrator) Messages() []*entities.ChatMessage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*entities.ChatMessage(nil), o.state.Messages...)
}

// DiceRolls returns the connected session's roll history, newest first
func (o *Orchestrator) DiceRolls() []*diceroll.Roll {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*diceroll.Roll(nil), o.state.DiceRolls...)
}

// InitiativeOrder returns the connected session's turn order
func (o *Orchestrator) InitiativeOrder() []entities.InitiativeEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]entities.InitiativeEntry(nil), o.state.Initiative...)
}

// Participants returns the connected session's roster, join order
func (o *Orchestrator) Participants() []*entities.SessionParticipant {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*entities.SessionParticipant(nil), o.state.Participants...)
}

// ConnectionState reports the live connection lifecycle
func (o *Orchestrator) ConnectionState() ConnectionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	cs := ConnectionState{
		Loading:    o.state.Loading,
		Connecting: o.state.Connecting,
		Connected:  o.state.Connected,
	}
	if o.state.Session != nil {
		cs.SessionID = o.state.Session.ID
	}
	return cs
}

// snapshotLocked copies the projection. Callers hold mu.
func (o *Orchestrator) snapshotLocked() *State {
	snap := &State{
		Session:    o.state.Session,
		Round:      o.state.Round,
		Loading:    o.state.Loading,
		Connecting: o.state.Connecting,
		Connected:  o.state.Connected,
	}
	snap.Messages = append([]*entities.ChatMessage(nil), o.state.Messages...)
	snap.DiceRolls = append([]*diceroll.Roll(nil), o.state.DiceRolls...)
	snap.Initiative = append([]entities.InitiativeEntry(nil), o.state.Initiative...)
	snap.Participants = append([]*entities.SessionParticipant(nil), o.state.Participants...)
	if o.state.Presence != nil {
		snap.Presence = make(map[string]entities.PresenceStatus, len(o.state.Presence))
		for k, v := range o.state.Presence {
			snap.Presence[k] = v
		}
	}
	return snap
}

// liveSessionID returns the connected session, or empty
func (o *Orchestrator) liveSessionID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state.Session == nil {
		return ""
	}
	return o.state.Session.ID
}

// --- channel callbacks: the echo side of the write-through policy ---

func (o *Orchestrator) onChatMessage(msg *entities.ChatMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Session == nil || o.state.Session.ID != msg.SessionID {
		return
	}
	o.state.Messages = append(o.state.Messages, msg)
}

func (o *Orchestrator) onDiceRoll(roll *diceroll.Roll) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Session == nil || o.state.Session.ID != roll.SessionID {
		return
	}
	// Projection keeps newest first, matching the repository's List order.
	o.state.DiceRolls = append([]*diceroll.Roll{roll}, o.state.DiceRolls...)
	if o.historyLimit > 0 && int64(len(o.state.DiceRolls)) > o.historyLimit {
		o.state.DiceRolls = o.state.DiceRolls[:o.historyLimit]
	}
}

// onInitiativeChanged re-fetches the order. The event is an invalidation
// signal with no payload; our own verbs already applied the change directly,
// so the refresh is redundant for the author but required for everyone else.
func (o *Orchestrator) onInitiativeChanged() {
	sessionID := o.liveSessionID()
	if sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	out, err := o.initiativeRepo.Get(ctx, initiativeorder.GetInput{SessionID: sessionID})
	if err != nil {
		slog.Warn("Failed to refresh initiative order", "session_id", sessionID, "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Session == nil || o.state.Session.ID != sessionID {
		return
	}
	o.state.Initiative = out.Entries
}

func (o *Orchestrator) onParticipantsChanged() {
	sessionID := o.liveSessionID()
	if sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	out, err := o.participantRepo.List(ctx, participant.ListInput{SessionID: sessionID})
	if err != nil {
		slog.Warn("Failed to refresh participants", "session_id", sessionID, "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Session == nil || o.state.Session.ID != sessionID {
		return
	}
	o.state.Participants = out.Participants
}

func (o *Orchestrator) onPresenceJoin(state realtime.PresenceState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Presence == nil {
		o.state.Presence = make(map[string]entities.PresenceStatus)
	}
	o.state.Presence[state.UserID] = state.Status
}

func (o *Orchestrator) onPresenceLeave(state realtime.PresenceState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.state.Presence, state.UserID)
}

func (o *Orchestrator) onPresenceSync(states []realtime.PresenceState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Presence = make(map[string]entities.PresenceStatus, len(states))
	for _, s := range states {
		o.state.Presence[s.UserID] = s.Status
	}
}

func (o *Orchestrator) onConnectionChange(connected bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Connected = connected
}

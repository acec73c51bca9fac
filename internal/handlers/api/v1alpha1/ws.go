package v1alpha1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/orchestrators/session"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The bearer token is the access control; the API is served to browser
	// clients on other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClientFrame is what a connected browser may send: presence updates
type wsClientFrame struct {
	Type   string                  `json:"type"`
	Status entities.PresenceStatus `json:"status,omitempty"`
}

// serveWebsocket bridges one browser connection onto the session's realtime
// channel. Each connection gets its own subscription; closing the socket
// withdraws the user's presence.
func (h *Handler) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	// Make sure the session exists before upgrading
	if _, err := h.service.GetSession(r.Context(), &session.GetSessionInput{SessionID: sessionID}); err != nil {
		respondError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	bridge := &wsBridge{conn: conn, done: make(chan struct{})}
	channel, err := h.newChannel(bridge.handlers(sessionID))
	if err != nil {
		bridge.close(websocket.CloseInternalServerErr, "channel unavailable")
		return
	}

	if err := channel.Connect(r.Context(), sessionID); err != nil {
		slog.Warn("Websocket channel connect failed", "session_id", sessionID, "error", err)
		bridge.close(websocket.CloseTryAgainLater, "realtime unavailable")
		return
	}
	defer channel.Disconnect()

	if err := channel.Track(r.Context(), user.ID, entities.PresenceOnline); err != nil {
		slog.Warn("Websocket presence track failed", "session_id", sessionID, "user_id", user.ID, "error", err)
	}

	slog.Info("Websocket connected", "session_id", sessionID, "user_id", user.ID)
	go bridge.ping()

	// Read loop: presence updates in, everything else ignored. Returning
	// tears the connection down.
	conn.SetReadDeadline(time.Now().Add(wsPongTimeout)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var frame wsClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "presence" && frame.Status != "" {
			if err := channel.Track(r.Context(), user.ID, frame.Status); err != nil {
				slog.Warn("Presence update failed", "session_id", sessionID, "error", err)
			}
		}
	}

	bridge.stop()
	slog.Info("Websocket disconnected", "session_id", sessionID, "user_id", user.ID)
}

// wsBridge serializes channel events onto a websocket connection. Gorilla
// permits one concurrent writer, so all writes funnel through mu.
type wsBridge struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (b *wsBridge) handlers(sessionID string) realtime.Handlers {
	return realtime.Handlers{
		OnChatMessage: func(msg *entities.ChatMessage) {
			event, err := realtime.NewChatMessageEvent(msg)
			if err != nil {
				return
			}
			b.send(event)
		},
		OnDiceRoll: func(roll *diceroll.Roll) {
			event, err := realtime.NewDiceRollEvent(roll)
			if err != nil {
				return
			}
			b.send(event)
		},
		OnInitiativeChanged: func() {
			b.send(realtime.NewInitiativeChangedEvent(sessionID))
		},
		OnParticipantsChanged: func() {
			b.send(realtime.NewParticipantsChangedEvent(sessionID))
		},
		OnPresenceJoin: func(state realtime.PresenceState) {
			b.sendPresence(realtime.EventPresenceJoin, sessionID, state)
		},
		OnPresenceLeave: func(state realtime.PresenceState) {
			b.sendPresence(realtime.EventPresenceLeave, sessionID, state)
		},
	}
}

func (b *wsBridge) send(event *realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck
	if err := b.conn.WriteJSON(event); err != nil {
		slog.Warn("Websocket write failed", "error", err)
		b.closed = true
	}
}

func (b *wsBridge) sendPresence(eventType realtime.EventType, sessionID string, state realtime.PresenceState) {
	payload, err := json.Marshal(state)
	if err != nil {
		return
	}
	b.send(&realtime.Event{Type: eventType, SessionID: sessionID, Payload: payload})
}

func (b *wsBridge) ping() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				return
			}
			b.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.closed = true
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
		}
	}
}

func (b *wsBridge) stop() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
	}
	b.mu.Unlock()
	close(b.done)
	b.conn.Close() //nolint:errcheck
}

func (b *wsBridge) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	b.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck
	b.conn.WriteMessage(websocket.CloseMessage, msg)        //nolint:errcheck
	b.conn.Close()                                          //nolint:errcheck
}

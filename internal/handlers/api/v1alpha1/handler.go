// Package v1alpha1 exposes the session service over HTTP for browser clients:
// JSON REST verbs for the aggregate operations and a websocket gateway onto
// the realtime channel.
package v1alpha1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/orchestrators/session"
)

// Config holds the dependencies for the HTTP handler
type Config struct {
	Service    session.Service
	Tokens     *identity.TokenService
	NewChannel session.ChannelFactory
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Service == nil {
		vb.RequiredField("Service")
	}
	if c.Tokens == nil {
		vb.RequiredField("Tokens")
	}
	if c.NewChannel == nil {
		vb.RequiredField("NewChannel")
	}
	return vb.Build()
}

// Handler serves the v1alpha1 API
type Handler struct {
	service    session.Service
	tokens     *identity.TokenService
	newChannel session.ChannelFactory
}

// New creates a new API handler
func New(cfg *Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Handler{
		service:    cfg.Service,
		tokens:     cfg.Tokens,
		newChannel: cfg.NewChannel,
	}, nil
}

// Routes builds the router for mounting under /v1alpha1
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.authenticate)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Get("/", h.listSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Patch("/", h.updateSession)
			r.Delete("/", h.deleteSession)

			r.Post("/start", h.startSession)
			r.Post("/pause", h.pauseSession)
			r.Post("/end", h.endSession)

			r.Post("/messages", h.sendMessage)
			r.Post("/rolls", h.rollDice)

			r.Route("/initiative", func(r chi.Router) {
				r.Post("/", h.addToInitiative)
				r.Post("/next", h.nextTurn)
				r.Post("/reset", h.resetInitiative)
				r.Patch("/{entryID}", h.updateInitiative)
				r.Delete("/{entryID}", h.removeFromInitiative)
			})

			r.Post("/join", h.joinSession)
			r.Post("/leave", h.leaveSession)

			r.Get("/ws", h.serveWebsocket)
		})
	})

	return r
}

// authenticate resolves the bearer token into a user on the request context.
// Websocket requests may carry the token as a query parameter instead, since
// browsers cannot set headers on websocket upgrades.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			token = t
		}

		if token == "" {
			respondError(w, errors.Unauthenticated("missing bearer token"))
			return
		}

		user, err := h.tokens.Verify(token)
		if err != nil {
			respondError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
	})
}

type createSessionRequest struct {
	CampaignID  string     `json:"campaign_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	input := &session.CreateSessionInput{
		CampaignID:  req.CampaignID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.ScheduledAt != nil {
		input.ScheduledAt = *req.ScheduledAt
	}

	out, err := h.service.CreateSession(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out.Session)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetSession(r.Context(), &session.GetSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Session)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListSessions(r.Context(), &session.ListSessionsInput{
		CampaignID: r.URL.Query().Get("campaign_id"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"sessions": out.Sessions})
}

type updateSessionRequest struct {
	Name         *string    `json:"name,omitempty"`
	Description  *string    `json:"description,omitempty"`
	CurrentScene *string    `json:"current_scene,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.UpdateSession(r.Context(), &session.UpdateSessionInput{
		SessionID:    chi.URLParam(r, "sessionID"),
		Name:         req.Name,
		Description:  req.Description,
		CurrentScene: req.CurrentScene,
		Notes:        req.Notes,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Session)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.DeleteSession(r.Context(), &session.DeleteSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.StartSession(r.Context(), &session.StartSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Session)
}

func (h *Handler) pauseSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.PauseSession(r.Context(), &session.PauseSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Session)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.EndSession(r.Context(), &session.EndSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Session)
}

type sendMessageRequest struct {
	Kind     entities.MessageKind `json:"kind,omitempty"`
	Body     string               `json:"body"`
	Metadata map[string]string    `json:"metadata,omitempty"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.SendMessage(r.Context(), &session.SendMessageInput{
		SessionID: chi.URLParam(r, "sessionID"),
		Kind:      req.Kind,
		Body:      req.Body,
		Metadata:  req.Metadata,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out.Message)
}

type rollDiceRequest struct {
	Expression string             `json:"expression"`
	Modifier   int32              `json:"modifier,omitempty"`
	Advantage  dice.AdvantageMode `json:"advantage,omitempty"`
	Purpose    string             `json:"purpose,omitempty"`
}

func (h *Handler) rollDice(w http.ResponseWriter, r *http.Request) {
	var req rollDiceRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.RollDice(r.Context(), &session.RollDiceInput{
		SessionID:  chi.URLParam(r, "sessionID"),
		Expression: req.Expression,
		Modifier:   req.Modifier,
		Advantage:  req.Advantage,
		Purpose:    req.Purpose,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out)
}

type addToInitiativeRequest struct {
	CharacterID string              `json:"character_id,omitempty"`
	DisplayName string              `json:"display_name"`
	Score       int32               `json:"score"`
	HitPoints   *entities.HitPoints `json:"hit_points,omitempty"`
}

func (h *Handler) addToInitiative(w http.ResponseWriter, r *http.Request) {
	var req addToInitiativeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.AddToInitiative(r.Context(), &session.AddToInitiativeInput{
		SessionID:   chi.URLParam(r, "sessionID"),
		CharacterID: req.CharacterID,
		DisplayName: req.DisplayName,
		Score:       req.Score,
		HitPoints:   req.HitPoints,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, out)
}

type updateInitiativeRequest struct {
	Score      *int32              `json:"score,omitempty"`
	HitPoints  *entities.HitPoints `json:"hit_points,omitempty"`
	Conditions []string            `json:"conditions,omitempty"`
}

func (h *Handler) updateInitiative(w http.ResponseWriter, r *http.Request) {
	var req updateInitiativeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.UpdateInitiative(r.Context(), &session.UpdateInitiativeInput{
		SessionID:  chi.URLParam(r, "sessionID"),
		EntryID:    chi.URLParam(r, "entryID"),
		Score:      req.Score,
		HitPoints:  req.HitPoints,
		Conditions: req.Conditions,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) removeFromInitiative(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.RemoveFromInitiative(r.Context(), &session.RemoveFromInitiativeInput{
		SessionID: chi.URLParam(r, "sessionID"),
		EntryID:   chi.URLParam(r, "entryID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) nextTurn(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.NextTurn(r.Context(), &session.NextTurnInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) resetInitiative(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.ResetInitiative(r.Context(), &session.ResetInitiativeInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type joinSessionRequest struct {
	CharacterID string                   `json:"character_id,omitempty"`
	Role        entities.ParticipantRole `json:"role,omitempty"`
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.service.JoinSession(r.Context(), &session.JoinSessionInput{
		SessionID:   chi.URLParam(r, "sessionID"),
		CharacterID: req.CharacterID,
		Role:        req.Role,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, out.Participant)
}

func (h *Handler) leaveSession(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.LeaveSession(r.Context(), &session.LeaveSessionInput{
		SessionID: chi.URLParam(r, "sessionID"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body. An empty body decodes to the zero request so
// verbs with all-optional fields work without one.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidArgumentf("invalid request body: %v", err)
	}
	return nil
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	respond(w, code.HTTPStatus(), errorResponse{
		Code:    code.String(),
		Message: errors.GetMessage(err),
	})
}

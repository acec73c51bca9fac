package session

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
	"github.com/KirkDiggler/vtt-api/internal/repositories/gamesession"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
	"github.com/KirkDiggler/vtt-api/internal/repositories/participant"
)

// CreateSession stores a new scheduled session and enrolls the caller as GM
func (o *Orchestrator) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if input.Name == "" {
		vb.RequiredField("Name")
	}
	if input.CampaignID == "" {
		vb.RequiredField("CampaignID")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		return nil, err
	}

	now := o.clock.Now()
	session := &entities.GameSession{
		ID:          o.idGen.Generate(),
		CampaignID:  input.CampaignID,
		Name:        input.Name,
		Description: input.Description,
		Status:      entities.SessionStatusScheduled,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	createOut, err := o.sessionRepo.Create(ctx, gamesession.CreateInput{Session: session})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create session %s", session.ID)
	}

	// The creator is the GM. A failure here leaves a session without a
	// roster entry, which JoinSession can repair later.
	_, err = o.participantRepo.Upsert(ctx, participant.UpsertInput{
		Participant: &entities.SessionParticipant{
			SessionID: session.ID,
			UserID:    user.ID,
			Role:      entities.RoleGM,
			Presence:  entities.PresenceOffline,
			JoinedAt:  now,
		},
	})
	if err != nil {
		slog.Warn("Failed to enroll session creator as GM", "session_id", session.ID, "user_id", user.ID, "error", err)
	}

	slog.Info("Created session", "session_id", session.ID, "campaign_id", session.CampaignID, "gm", user.ID)
	return &CreateSessionOutput{Session: createOut.Session}, nil
}

// GetSession retrieves a session by ID
func (o *Orchestrator) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	out, err := o.sessionRepo.Get(ctx, gamesession.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	return &GetSessionOutput{Session: out.Session}, nil
}

// ListSessions lists sessions, newest first, optionally scoped to a campaign
func (o *Orchestrator) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	if input == nil {
		input = &ListSessionsInput{}
	}

	out, err := o.sessionRepo.List(ctx, gamesession.ListInput{CampaignID: input.CampaignID})
	if err != nil {
		return nil, err
	}
	return &ListSessionsOutput{Sessions: out.Sessions}, nil
}

// UpdateSession applies metadata changes. Status is not touched here; the
// lifecycle verbs own status transitions.
func (o *Orchestrator) UpdateSession(ctx context.Context, input *UpdateSessionInput) (*UpdateSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.Name != nil && *input.Name == "" {
		return nil, errors.InvalidArgument("session name cannot be empty")
	}

	getOut, err := o.sessionRepo.Get(ctx, gamesession.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	session := getOut.Session

	if input.Name != nil {
		session.Name = *input.Name
	}
	if input.Description != nil {
		session.Description = *input.Description
	}
	if input.CurrentScene != nil {
		session.CurrentScene = *input.CurrentScene
	}
	if input.Notes != nil {
		session.Notes = *input.Notes
	}
	if input.ScheduledAt != nil {
		session.ScheduledAt = *input.ScheduledAt
	}
	session.UpdatedAt = o.clock.Now()

	updateOut, err := o.sessionRepo.Update(ctx, gamesession.UpdateInput{Session: session})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update session %s", session.ID)
	}

	o.applySessionLocked(updateOut.Session)
	return &UpdateSessionOutput{Session: updateOut.Session}, nil
}

// DeleteSession removes the session and all of its dependent records
func (o *Orchestrator) DeleteSession(ctx context.Context, input *DeleteSessionInput) (*DeleteSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	if _, err := o.sessionRepo.Delete(ctx, gamesession.DeleteInput{ID: input.SessionID}); err != nil {
		return nil, err
	}

	// Dependent records are cleaned up best-effort; an orphaned history key
	// with no session row is unreachable through the API anyway.
	if _, err := o.chatRepo.Clear(ctx, chatmessage.ClearInput{SessionID: input.SessionID}); err != nil {
		slog.Warn("Failed to clear chat history", "session_id", input.SessionID, "error", err)
	}
	if _, err := o.diceRepo.Clear(ctx, diceroll.ClearInput{SessionID: input.SessionID}); err != nil {
		slog.Warn("Failed to clear dice history", "session_id", input.SessionID, "error", err)
	}
	if _, err := o.initiativeRepo.Clear(ctx, initiativeorder.ClearInput{SessionID: input.SessionID}); err != nil {
		slog.Warn("Failed to clear initiative order", "session_id", input.SessionID, "error", err)
	}
	if _, err := o.participantRepo.Clear(ctx, participant.ClearInput{SessionID: input.SessionID}); err != nil {
		slog.Warn("Failed to clear participants", "session_id", input.SessionID, "error", err)
	}

	if o.liveSessionID() == input.SessionID {
		o.DisconnectFromSession(ctx)
	}

	slog.Info("Deleted session", "session_id", input.SessionID)
	return &DeleteSessionOutput{}, nil
}

// StartSession moves a scheduled or paused session to active
func (o *Orchestrator) StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	session, err := o.transition(ctx, input.SessionID, entities.SessionStatusActive)
	if err != nil {
		return nil, err
	}
	return &StartSessionOutput{Session: session}, nil
}

// PauseSession moves an active session to paused
func (o *Orchestrator) PauseSession(ctx context.Context, input *PauseSessionInput) (*PauseSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	session, err := o.transition(ctx, input.SessionID, entities.SessionStatusPaused)
	if err != nil {
		return nil, err
	}
	return &PauseSessionOutput{Session: session}, nil
}

// EndSession completes an active or paused session
func (o *Orchestrator) EndSession(ctx context.Context, input *EndSessionInput) (*EndSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	session, err := o.transition(ctx, input.SessionID, entities.SessionStatusCompleted)
	if err != nil {
		return nil, err
	}
	return &EndSessionOutput{Session: session}, nil
}

// transition validates and applies a status change, stamping StartedAt on the
// first activation and EndedAt on completion
func (o *Orchestrator) transition(ctx context.Context, sessionID string, target entities.SessionStatus) (*entities.GameSession, error) {
	getOut, err := o.sessionRepo.Get(ctx, gamesession.GetInput{ID: sessionID})
	if err != nil {
		return nil, err
	}
	session := getOut.Session

	if !session.Status.CanTransitionTo(target) {
		return nil, errors.FailedPreconditionf("cannot transition session from %s to %s", session.Status, target)
	}

	now := o.clock.Now()
	session.Status = target
	session.UpdatedAt = now
	switch target {
	case entities.SessionStatusActive:
		if session.StartedAt.IsZero() {
			session.StartedAt = now
		}
	case entities.SessionStatusCompleted, entities.SessionStatusCancelled:
		session.EndedAt = now
	}

	updateOut, err := o.sessionRepo.Update(ctx, gamesession.UpdateInput{Session: session})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update session %s", sessionID)
	}

	o.applySessionLocked(updateOut.Session)
	slog.Info("Session status changed", "session_id", sessionID, "status", target)
	return updateOut.Session, nil
}

// applySessionLocked merges an updated session into the live projection when
// it is the connected one
func (o *Orchestrator) applySessionLocked(session *entities.GameSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Session != nil && o.state.Session.ID == session.ID {
		o.state.Session = session
	}
}

package session

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/gamesession"
	"github.com/KirkDiggler/vtt-api/internal/repositories/participant"
)

// JoinSession enrolls the caller in a session. Joining again updates the
// existing membership (character swap, role change) rather than duplicating.
func (o *Orchestrator) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	role := input.Role
	if role == "" {
		role = entities.RolePlayer
	}
	if role != entities.RoleGM && role != entities.RolePlayer {
		return nil, errors.InvalidArgumentf("invalid role: %s", role)
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		return nil, err
	}

	getOut, err := o.sessionRepo.Get(ctx, gamesession.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, err
	}
	if getOut.Session.Status.IsTerminal() {
		return nil, errors.FailedPreconditionf("cannot join a %s session", getOut.Session.Status)
	}

	p := &entities.SessionParticipant{
		SessionID:   input.SessionID,
		UserID:      user.ID,
		CharacterID: input.CharacterID,
		Role:        role,
		Presence:    entities.PresenceOffline,
		JoinedAt:    o.clock.Now(),
	}

	// Preserve the original join time on re-join.
	if existing, err := o.participantRepo.Get(ctx, participant.GetInput{
		SessionID: input.SessionID,
		UserID:    user.ID,
	}); err == nil {
		p.JoinedAt = existing.Participant.JoinedAt
		p.Presence = existing.Participant.Presence
	}

	if _, err := o.participantRepo.Upsert(ctx, participant.UpsertInput{Participant: p}); err != nil {
		return nil, errors.Wrap(err, "failed to store participant")
	}

	o.broadcastParticipantsChanged(ctx, input.SessionID)
	slog.Info("Participant joined session", "session_id", input.SessionID, "user_id", user.ID, "role", role)
	return &JoinSessionOutput{Participant: p}, nil
}

// LeaveSession removes the caller's membership. Leaving a session the caller
// never joined is a no-op.
func (o *Orchestrator) LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := o.participantRepo.Remove(ctx, participant.RemoveInput{
		SessionID: input.SessionID,
		UserID:    user.ID,
	}); err != nil {
		return nil, err
	}

	o.broadcastParticipantsChanged(ctx, input.SessionID)
	slog.Info("Participant left session", "session_id", input.SessionID, "user_id", user.ID)
	return &LeaveSessionOutput{}, nil
}

func (o *Orchestrator) broadcastParticipantsChanged(ctx context.Context, sessionID string) {
	if err := o.channel.Publish(ctx, realtime.NewParticipantsChangedEvent(sessionID)); err != nil {
		slog.Warn("Failed to broadcast participants change", "session_id", sessionID, "error", err)
	}
}

package session

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/initiative"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
)

// AddToInitiative inserts a combatant into the session's turn order
func (o *Orchestrator) AddToInitiative(ctx context.Context, input *AddToInitiativeInput) (*AddToInitiativeOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if input.SessionID == "" {
		vb.RequiredField("SessionID")
	}
	if input.DisplayName == "" {
		vb.RequiredField("DisplayName")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	entry := entities.InitiativeEntry{
		ID:          o.idGen.Generate(),
		SessionID:   input.SessionID,
		CharacterID: input.CharacterID,
		DisplayName: input.DisplayName,
		Score:       input.Score,
		HitPoints:   input.HitPoints,
	}

	entries, err := o.mutateOrder(ctx, input.SessionID, func(order *initiative.Order) {
		order.Add(entry)
	})
	if err != nil {
		return nil, err
	}

	return &AddToInitiativeOutput{Entry: &entry, Entries: entries}, nil
}

// UpdateInitiative applies partial changes to one entry. Unknown entry IDs
// are a no-op, mirroring the order's idempotent-retry semantics.
func (o *Orchestrator) UpdateInitiative(ctx context.Context, input *UpdateInitiativeInput) (*UpdateInitiativeOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.EntryID == "" {
		return nil, errors.InvalidArgument("entry ID cannot be empty")
	}

	entries, err := o.mutateOrder(ctx, input.SessionID, func(order *initiative.Order) {
		if input.Score != nil {
			order.Update(input.EntryID, func(e *entities.InitiativeEntry) {
				e.Score = *input.Score
			})
		}
		if input.HitPoints != nil {
			order.UpdateHitPoints(input.EntryID, input.HitPoints)
		}
		if input.Conditions != nil {
			order.SetConditions(input.EntryID, input.Conditions)
		}
	})
	if err != nil {
		return nil, err
	}

	return &UpdateInitiativeOutput{Entries: entries}, nil
}

// RemoveFromInitiative deletes one entry from the turn order
func (o *Orchestrator) RemoveFromInitiative(ctx context.Context, input *RemoveFromInitiativeInput) (*RemoveFromInitiativeOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}
	if input.EntryID == "" {
		return nil, errors.InvalidArgument("entry ID cannot be empty")
	}

	entries, err := o.mutateOrder(ctx, input.SessionID, func(order *initiative.Order) {
		order.Remove(input.EntryID)
	})
	if err != nil {
		return nil, err
	}

	return &RemoveFromInitiativeOutput{Entries: entries}, nil
}

// NextTurn advances the active flag to the next combatant. Rounds are counted
// by this service instance's live projection: a wraparound past the top of
// the order increments the round. Round is zero when this instance is not
// connected to the session.
func (o *Orchestrator) NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	var wrapped bool
	entries, err := o.mutateOrder(ctx, input.SessionID, func(order *initiative.Order) {
		wrapped = order.AdvanceTurn()
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.FailedPrecondition("initiative order is empty")
	}

	out := &NextTurnOutput{Entries: entries}
	for i := range entries {
		if entries[i].IsActive {
			out.Active = &entries[i]
			break
		}
	}

	o.mu.Lock()
	if o.state.Session != nil && o.state.Session.ID == input.SessionID {
		if wrapped {
			o.state.Round++
		}
		out.Round = o.state.Round
	}
	o.mu.Unlock()

	return out, nil
}

// ResetInitiative clears the turn order and resets the round count
func (o *Orchestrator) ResetInitiative(ctx context.Context, input *ResetInitiativeInput) (*ResetInitiativeOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID cannot be empty")
	}

	if _, err := o.initiativeRepo.Clear(ctx, initiativeorder.ClearInput{SessionID: input.SessionID}); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.state.Session != nil && o.state.Session.ID == input.SessionID {
		o.state.Initiative = nil
		o.state.Round = 1
	}
	o.mu.Unlock()

	o.broadcastInitiativeChanged(ctx, input.SessionID)
	slog.Info("Reset initiative order", "session_id", input.SessionID)
	return &ResetInitiativeOutput{}, nil
}

// mutateOrder loads the persisted order, applies the mutation, stores the
// whole order back, applies it to the live projection, and broadcasts an
// invalidation signal. Persistence is last-write-wins by design.
func (o *Orchestrator) mutateOrder(ctx context.Context, sessionID string, mutate func(*initiative.Order)) ([]entities.InitiativeEntry, error) {
	getOut, err := o.initiativeRepo.Get(ctx, initiativeorder.GetInput{SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	order := initiative.New(getOut.Entries)
	mutate(order)
	entries := order.Entries()

	if _, err := o.initiativeRepo.Replace(ctx, initiativeorder.ReplaceInput{
		SessionID: sessionID,
		Entries:   entries,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to store initiative order")
	}

	o.mu.Lock()
	if o.state.Session != nil && o.state.Session.ID == sessionID {
		o.state.Initiative = entries
	}
	o.mu.Unlock()

	o.broadcastInitiativeChanged(ctx, sessionID)
	return entries, nil
}

func (o *Orchestrator) broadcastInitiativeChanged(ctx context.Context, sessionID string) {
	if err := o.channel.Publish(ctx, realtime.NewInitiativeChangedEvent(sessionID)); err != nil {
		slog.Warn("Failed to broadcast initiative change", "session_id", sessionID, "error", err)
	}
}

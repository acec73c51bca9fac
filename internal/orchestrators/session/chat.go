package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	"github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
)

// SendMessage persists a chat message and broadcasts it. Write-through: the
// local projection picks the message up from the broadcast echo, never here,
// so the author sees the same ordering as everyone else.
func (o *Orchestrator) SendMessage(ctx context.Context, input *SendMessageInput) (*SendMessageOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}

	kind := input.Kind
	if kind == "" {
		kind = entities.MessageKindMessage
	}

	vb := errors.NewValidationBuilder()
	if input.SessionID == "" {
		vb.RequiredField("SessionID")
	}
	if input.Body == "" {
		vb.RequiredField("Body")
	}
	if !kind.Valid() {
		vb.InvalidField("Kind", string(kind))
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		return nil, err
	}

	msg := &entities.ChatMessage{
		ID:        o.idGen.Generate(),
		SessionID: input.SessionID,
		AuthorID:  user.ID,
		Kind:      kind,
		Body:      input.Body,
		Metadata:  input.Metadata,
		SentAt:    o.clock.Now(),
	}

	if _, err := o.chatRepo.Append(ctx, chatmessage.AppendInput{Message: msg}); err != nil {
		return nil, errors.Wrap(err, "failed to store message")
	}

	o.broadcastChatMessage(ctx, msg)
	return &SendMessageOutput{Message: msg}, nil
}

// RollDice evaluates a dice expression, persists the roll, and announces it as
// a dice-kind chat message. Both records are write-through like SendMessage.
func (o *Orchestrator) RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}

	mode := input.Advantage
	if mode == "" {
		mode = dice.AdvantageNormal
	}

	vb := errors.NewValidationBuilder()
	if input.SessionID == "" {
		vb.RequiredField("SessionID")
	}
	if input.Expression == "" {
		vb.RequiredField("Expression")
	}
	if !mode.Valid() {
		vb.InvalidField("Advantage", string(mode))
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	user, err := identity.UserFromContext(ctx)
	if err != nil {
		return nil, err
	}

	expr, err := dice.Parse(input.Expression)
	if err != nil {
		return nil, err
	}

	result := dice.Evaluate(expr, o.roller, dice.Options{
		Modifier:  input.Modifier,
		Advantage: mode,
	})

	now := o.clock.Now()
	roll := &diceroll.Roll{
		ID:        o.idGen.Generate(),
		SessionID: input.SessionID,
		UserID:    user.ID,
		Purpose:   input.Purpose,
		Result:    result,
		RolledAt:  now,
	}

	if _, err := o.diceRepo.Append(ctx, diceroll.AppendInput{Roll: roll}); err != nil {
		return nil, errors.Wrap(err, "failed to store dice roll")
	}

	if event, err := realtime.NewDiceRollEvent(roll); err != nil {
		slog.Warn("Failed to encode dice roll event", "session_id", roll.SessionID, "error", err)
	} else if err := o.channel.Publish(ctx, event); err != nil {
		slog.Warn("Failed to broadcast dice roll", "session_id", roll.SessionID, "error", err)
	}

	body := dice.Format(result)
	if input.Purpose != "" {
		body = fmt.Sprintf("%s: %s", input.Purpose, body)
	}
	msg := &entities.ChatMessage{
		ID:        o.idGen.Generate(),
		SessionID: input.SessionID,
		AuthorID:  user.ID,
		Kind:      entities.MessageKindDice,
		Body:      body,
		Metadata: map[string]string{
			"roll_id":    roll.ID,
			"expression": result.Expression,
			"total":      fmt.Sprintf("%d", result.Total),
		},
		SentAt: now,
	}

	if _, err := o.chatRepo.Append(ctx, chatmessage.AppendInput{Message: msg}); err != nil {
		return nil, errors.Wrap(err, "failed to store dice roll message")
	}
	o.broadcastChatMessage(ctx, msg)

	return &RollDiceOutput{Roll: roll, Message: msg}, nil
}

// broadcastChatMessage publishes a stored message. The write already
// succeeded; a broadcast failure costs liveness, not durability, so it is
// logged rather than returned.
func (o *Orchestrator) broadcastChatMessage(ctx context.Context, msg *entities.ChatMessage) {
	event, err := realtime.NewChatMessageEvent(msg)
	if err != nil {
		slog.Warn("Failed to encode chat message event", "session_id", msg.SessionID, "error", err)
		return
	}
	if err := o.channel.Publish(ctx, event); err != nil {
		slog.Warn("Failed to broadcast chat message", "session_id", msg.SessionID, "error", err)
	}
}

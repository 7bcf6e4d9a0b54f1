package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/hyperindex/internal/app/model"
	"go.uber.org/zap"
)

// ModerationPublisher publishes moderation events to NATS JetStream.
type ModerationPublisher struct {
	js nats.JetStreamContext
}

// NewModerationPublisher creates a new moderation event publisher.
func NewModerationPublisher(js nats.JetStreamContext) *ModerationPublisher {
	return &ModerationPublisher{js: js}
}

// Publish publishes a moderation event to the stream. The event id doubles as
// the JetStream message id so duplicate publishes are dropped by the server.
func (p *ModerationPublisher) Publish(ctx context.Context, event model.ModerationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode moderation event: %w", err)
	}

	_, err = p.js.Publish(model.ModerationStreamSubject, data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

func newModerationEvent(now func() time.Time, kind model.ModerationEventType, entryID int64, publicCopyID *int64, actorID int64) model.ModerationEvent {
	return model.ModerationEvent{
		ID:           uuid.New().String(),
		Type:         kind,
		EntryID:      entryID,
		PublicCopyID: publicCopyID,
		ActorID:      actorID,
		OccurredAt:   now(),
	}
}

// publishEvent emits a committed transition. Failures are logged; the
// transition itself has already been committed.
func publishEvent(ctx context.Context, deps Deps, kind model.ModerationEventType, entryID int64, publicCopyID *int64, actorID int64) {
	deps.Logger.Info("moderation transition",
		zap.String("transition", string(kind)),
		zap.Int64("entry_id", entryID),
		zap.Int64("actor_id", actorID),
	)
	if deps.Events == nil {
		return
	}

	event := newModerationEvent(deps.Now, kind, entryID, publicCopyID, actorID)
	if err := deps.Events.Publish(ctx, event); err != nil {
		deps.Logger.Error("failed to publish moderation event",
			zap.String("event_id", event.ID),
			zap.String("transition", string(kind)),
			zap.Int64("entry_id", entryID),
			zap.Error(err),
		)
	}
}

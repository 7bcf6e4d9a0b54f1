package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/hyperindex/internal/app/model"
	apprepository "github.com/sifan077/hyperindex/internal/app/repository"
	"go.uber.org/zap"
)

var errMalformedEvent = errors.New("malformed moderation event")

const (
	consumerBatchSize  = 10
	consumerMaxWait    = 5 * time.Second
	consumerRetryDelay = time.Second
)

// ModerationConsumer persists moderation events from NATS JetStream into the audit log.
type ModerationConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.ModerationEventRepository
}

// NewModerationConsumer creates a new moderation event consumer.
func NewModerationConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ModerationEventRepository) *ModerationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationConsumer{js: js, logger: logger, repo: repo}
}

// EnsureStream creates the moderation stream and durable consumer when missing.
func (c *ModerationConsumer) EnsureStream() error {
	if _, err := c.js.StreamInfo(model.ModerationStreamName); err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ModerationStreamName,
			Subjects: []string{model.ModerationStreamSubject},
			MaxBytes: model.ModerationStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.ModerationStreamName, model.ModerationConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ModerationStreamName, &nats.ConsumerConfig{
			Durable:   model.ModerationConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}
	return nil
}

// Start begins consuming moderation events until ctx is cancelled.
func (c *ModerationConsumer) Start(ctx context.Context) error {
	if err := c.EnsureStream(); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(model.ModerationStreamSubject, model.ModerationConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *ModerationConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer func() { _ = sub.Unsubscribe() }()

	for ctx.Err() == nil {
		msgs, err := sub.Fetch(consumerBatchSize, nats.MaxWait(consumerMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch moderation events", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(consumerRetryDelay):
			}
			continue
		}

		for _, msg := range msgs {
			if err := c.handle(ctx, msg.Data); err != nil {
				c.logger.Error("failed to store moderation event", zap.Error(err))
				if errors.Is(err, errMalformedEvent) {
					_ = msg.Term()
				} else {
					_ = msg.Nak()
				}
				continue
			}
			_ = msg.Ack()
		}
	}
}

func (c *ModerationConsumer) handle(ctx context.Context, data []byte) error {
	var event model.ModerationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.ID == "" {
		return fmt.Errorf("%w: missing id", errMalformedEvent)
	}

	if err := c.repo.Create(ctx, &event); err != nil {
		return fmt.Errorf("persist moderation event %s: %w", event.ID, err)
	}

	c.logger.Debug("moderation event stored",
		zap.String("id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int64("entry_id", event.EntryID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

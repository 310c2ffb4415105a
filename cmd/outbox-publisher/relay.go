package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/registry"
)

const publishTimeout = 15 * time.Second

type orderingKeyer interface {
	OrderingKey() string
}

// relay publishes one row and records the outcome on it inside tx. The
// returned error is reserved for bookkeeping failures that must abort the
// batch; publish failures become retried or dead-lettered rows.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (string, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	serverID, pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithField(ctx, "message_id", serverID), "outbox event published")
		return metrics.OutboxPublished, nil
	}

	var permanent registry.NonRetryableError
	if errors.As(pubErr, &permanent) {
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return metrics.OutboxDeadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	s.logg.Warn(s.logg.WithField(ctx, "error", pubErr.Error()), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return metrics.OutboxRetried, nil
}

// deadLetter copies the row into the DLQ and parks it so it is never fetched
// again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error":        cause.Error(),
		"error_reason": reason,
	}), "outbox event dead-lettered")

	msg := cause.Error()
	if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(ctx, buildMessage(event, resolved))
	if result == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	return result.Get(ctx)
}

// buildMessage forwards the stored envelope untouched. Attributes let
// subscribers filter without decoding the body.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	key := event.AggregateID.String()
	if keyer, ok := resolved.Payload.(orderingKeyer); ok && keyer.OrderingKey() != "" {
		key = keyer.OrderingKey()
	}
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"envelope_ver":   fmt.Sprint(resolved.Envelope.Version),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

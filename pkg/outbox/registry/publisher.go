package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to the aggregate that owns it, the topic
// it is published on and the payload type consumers decode.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry knows every event the outbox publisher may relay.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks rows that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes notification events to the notification topic and
// journey lifecycle events to the journey topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}
	if cfg.JourneyTopic == "" {
		return nil, errors.New("journey topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.NotificationRequestedEvent](enums.EventNotificationRequested, enums.AggregateNotification, cfg.NotificationTopic),
		describe[payloads.NotificationResolvedEvent](enums.EventNotificationResolved, enums.AggregateNotification, cfg.NotificationTopic),
		describe[payloads.JourneyActivatedEvent](enums.EventJourneyActivated, enums.AggregateFuelRecord, cfg.JourneyTopic),
		describe[payloads.JourneyCompletedEvent](enums.EventJourneyCompleted, enums.AggregateFuelRecord, cfg.JourneyTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	topics := make([]string, 0, 2)
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; !ok {
			seen[desc.Topic] = struct{}{}
			topics = append(topics, desc.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure here is permanent for the row.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.Version > outbox.EnvelopeVersion {
		return nil, NewNonRetryableError(fmt.Errorf("envelope version %d is newer than %d", envelope.Version, outbox.EnvelopeVersion))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

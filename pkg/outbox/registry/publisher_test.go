package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func TestEventRegistryResolveNotificationRequested(t *testing.T) {
	reg := newTestEventRegistry(t)

	ledgerID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.NotificationRequestedEvent{
		NotificationID: uuid.New(),
		Type:           enums.NotificationTypeMissingTotalLiters,
		Title:          "Fuel record locked",
		RelatedModel:   enums.RelatedModelFuelRecord,
		RelatedID:      ledgerID,
		RecipientRoles: []enums.UserRole{enums.UserRoleAdmin},
	})

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "notification-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.NotificationRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.RelatedID != ledgerID {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryRoutesJourneyEventsToJourneyTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventJourneyCompleted,
		AggregateType: enums.AggregateFuelRecord,
		AggregateID:   uuid.New(),
		Payload: mustEnvelope(t, mustMarshal(t, payloads.JourneyCompletedEvent{
			FuelRecordID: uuid.New(),
			TruckNo:      "T100",
			CompletedAt:  time.Now().UTC(),
		})),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "journey-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}

	topics := reg.Topics()
	if len(topics) != 2 || topics[0] != "journey-topic" || topics[1] != "notification-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("truck_serviced"),
		AggregateType: enums.AggregateFuelRecord,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventJourneyActivated,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{"truck_no":"T100"}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventJourneyActivated,
		AggregateType: enums.AggregateFuelRecord,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventNotificationResolved,
		AggregateType: enums.AggregateNotification,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEventRegistryRejectsNewerEnvelopeVersion(t *testing.T) {
	reg := newTestEventRegistry(t)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version: outbox.EnvelopeVersion + 1,
		EventID: uuid.NewString(),
		Data:    mustMarshal(t, payloads.JourneyActivatedEvent{TruckNo: "T100"}),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventJourneyActivated,
		AggregateType: enums.AggregateFuelRecord,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	})
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatal("expected error when journey topic missing")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		NotificationTopic: "notification-topic",
		JourneyTopic:      "journey-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

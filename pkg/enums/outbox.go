package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column.
type OutboxAggregateType string

const (
	AggregateNotification  OutboxAggregateType = "notification"
	AggregateFuelRecord    OutboxAggregateType = "fuel_record"
	AggregateDeliveryOrder OutboxAggregateType = "delivery_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateNotification,
	AggregateFuelRecord,
	AggregateDeliveryOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column.
type OutboxEventType string

const (
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventNotificationResolved  OutboxEventType = "notification_resolved"
	EventJourneyActivated      OutboxEventType = "journey_activated"
	EventJourneyCompleted      OutboxEventType = "journey_completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventNotificationRequested,
	EventNotificationResolved,
	EventJourneyActivated,
	EventJourneyCompleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

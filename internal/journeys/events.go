package journeys

import (
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/payloads"
)

// Events converts the transition into outbox events. Callers emit them in the
// same transaction that persisted the records.
func (t Transition) Events(actor *outbox.ActorRef) []outbox.DomainEvent {
	events := make([]outbox.DomainEvent, 0, len(t.Completed)+len(t.Promoted))
	for _, rec := range t.Completed {
		completedAt := rec.UpdatedAt
		if rec.CompletedAt != nil {
			completedAt = *rec.CompletedAt
		}
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventJourneyCompleted,
			AggregateType: enums.AggregateFuelRecord,
			AggregateID:   rec.ID,
			Actor:         actor,
			Data: payloads.JourneyCompletedEvent{
				FuelRecordID:   rec.ID,
				TruckNo:        rec.TruckNo,
				GoingDONumber:  rec.GoingDONumber,
				ReturnDONumber: rec.ReturnDONumber,
				CompletedAt:    completedAt,
			},
		})
	}
	for _, p := range t.Promoted {
		rec := p.Record
		activatedAt := rec.UpdatedAt
		if rec.ActivatedAt != nil {
			activatedAt = *rec.ActivatedAt
		}
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventJourneyActivated,
			AggregateType: enums.AggregateFuelRecord,
			AggregateID:   rec.ID,
			Actor:         actor,
			Data: payloads.JourneyActivatedEvent{
				FuelRecordID:  rec.ID,
				TruckNo:       rec.TruckNo,
				GoingDONumber: rec.GoingDONumber,
				PreviousID:    p.PreviousID,
				ActivatedAt:   activatedAt,
			},
		})
	}
	return events
}

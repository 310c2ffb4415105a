package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// NotificationRequestedEvent hands a freshly created notification to the
// delivery transport.
type NotificationRequestedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	RelatedModel   enums.RelatedModel     `json:"related_model"`
	RelatedID      uuid.UUID              `json:"related_id"`
	RecipientRoles []enums.UserRole       `json:"recipient_roles,omitempty"`
	RecipientUser  *string                `json:"recipient_user,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
}

// NotificationResolvedEvent tells the transport to retract notifications
// whose triggering condition was cleared.
type NotificationResolvedEvent struct {
	NotificationIDs []uuid.UUID        `json:"notification_ids"`
	RelatedModel    enums.RelatedModel `json:"related_model"`
	RelatedID       uuid.UUID          `json:"related_id"`
	ResolvedBy      string             `json:"resolved_by"`
	ResolvedAt      time.Time          `json:"resolved_at"`
}

// JourneyActivatedEvent is emitted when a fuel record becomes the truck's active journey.
type JourneyActivatedEvent struct {
	FuelRecordID  uuid.UUID  `json:"fuel_record_id"`
	TruckNo       string     `json:"truck_no"`
	GoingDONumber string     `json:"going_do_number"`
	PreviousID    *uuid.UUID `json:"previous_id,omitempty"`
	ActivatedAt   time.Time  `json:"activated_at"`
}

// JourneyCompletedEvent is emitted when a journey's ledger balances out.
type JourneyCompletedEvent struct {
	FuelRecordID   uuid.UUID `json:"fuel_record_id"`
	TruckNo        string    `json:"truck_no"`
	GoingDONumber  string    `json:"going_do_number"`
	ReturnDONumber *string   `json:"return_do_number,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Ordering keys group events a consumer must apply in sequence: notification
// traffic per related ledger, journey lifecycle per truck.

func (e NotificationRequestedEvent) OrderingKey() string { return e.RelatedID.String() }

func (e NotificationResolvedEvent) OrderingKey() string { return e.RelatedID.String() }

func (e JourneyActivatedEvent) OrderingKey() string { return e.TruckNo }

func (e JourneyCompletedEvent) OrderingKey() string { return e.TruckNo }

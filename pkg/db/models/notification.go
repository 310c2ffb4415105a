package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// Notification is an addressed message about a record that needs attention.
type Notification struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type           enums.NotificationType   `gorm:"column:type;type:text;not null;index:ix_notifications_related,priority:3" json:"type"`
	Title          string                   `gorm:"column:title;type:text;not null" json:"title"`
	Message        string                   `gorm:"column:message;type:text;not null" json:"message"`
	RelatedModel   enums.RelatedModel       `gorm:"column:related_model;type:text;not null;index:ix_notifications_related,priority:1" json:"relatedModel"`
	RelatedID      uuid.UUID                `gorm:"column:related_id;type:uuid;not null;index:ix_notifications_related,priority:2" json:"relatedId"`
	RecipientRoles []enums.UserRole         `gorm:"column:recipient_roles;type:jsonb;serializer:json" json:"recipientRoles"`
	RecipientUser  *string                  `gorm:"column:recipient_user" json:"recipientUser,omitempty"`
	Metadata       map[string]any           `gorm:"column:metadata;type:jsonb;serializer:json" json:"metadata,omitempty"`
	Status         enums.NotificationStatus `gorm:"column:status;type:text;not null;index" json:"status"`
	CreatedBy      string                   `gorm:"column:created_by;not null" json:"createdBy"`
	ResolvedAt     *time.Time               `gorm:"column:resolved_at" json:"resolvedAt,omitempty"`
	ResolvedBy     *string                  `gorm:"column:resolved_by" json:"resolvedBy,omitempty"`
	DismissedAt    *time.Time               `gorm:"column:dismissed_at" json:"dismissedAt,omitempty"`
	DismissedBy    *string                  `gorm:"column:dismissed_by" json:"dismissedBy,omitempty"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	if n.Status == "" {
		n.Status = enums.NotificationStatusPending
	}
	return nil
}

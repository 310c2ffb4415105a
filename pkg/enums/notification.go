package enums

import "fmt"

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypeMissingTotalLiters   NotificationType = "missing_total_liters"
	NotificationTypeMissingExtraFuel     NotificationType = "missing_extra_fuel"
	NotificationTypeMissingConfiguration NotificationType = "missing_configuration"
	NotificationTypeUnlinkedExportDO     NotificationType = "unlinked_export_do"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeMissingTotalLiters,
	NotificationTypeMissingExtraFuel,
	NotificationTypeMissingConfiguration,
	NotificationTypeUnlinkedExportDO,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationTypeForLock maps a lock reason to the notification raised for it.
func NotificationTypeForLock(reason PendingConfigReason) NotificationType {
	switch reason {
	case PendingConfigMissingTotalLiters:
		return NotificationTypeMissingTotalLiters
	case PendingConfigMissingExtraFuel:
		return NotificationTypeMissingExtraFuel
	default:
		return NotificationTypeMissingConfiguration
	}
}

// NotificationStatus is the notification lifecycle: pending, then dismissed or resolved.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDismissed NotificationStatus = "dismissed"
	NotificationStatusResolved  NotificationStatus = "resolved"
)

func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationStatusPending, NotificationStatusDismissed, NotificationStatusResolved:
		return true
	}
	return false
}

// RelatedModel names the entity a notification points at.
type RelatedModel string

const (
	RelatedModelFuelRecord    RelatedModel = "FuelRecord"
	RelatedModelDeliveryOrder RelatedModel = "DeliveryOrder"
)

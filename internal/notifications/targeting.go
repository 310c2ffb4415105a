package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// Request asks for a notification about a record. Pending notifications are
// deduplicated per related record and type.
type Request struct {
	Type           enums.NotificationType
	Title          string
	Message        string
	RelatedModel   enums.RelatedModel
	RelatedID      uuid.UUID
	RecipientRoles []enums.UserRole
	RecipientUser  *string
	Metadata       map[string]any
	CreatedBy      string
}

// Resolution clears pending notifications about a record. An empty Types
// list resolves every pending type.
type Resolution struct {
	RelatedModel enums.RelatedModel
	RelatedID    uuid.UUID
	Types        []enums.NotificationType
	ResolvedBy   string
}

// operationalRecipients receive notifications raised by non-admin staff.
var operationalRecipients = []enums.UserRole{
	enums.UserRoleFuelOrderMaker,
	enums.UserRoleAdmin,
	enums.UserRoleSuperAdmin,
}

// Recipients addresses admin-tier actors back to their own role; everyone
// else escalates to fuel staff and both admin tiers.
func Recipients(actor auth.Actor) []enums.UserRole {
	if actor.Role.IsAdminTier() {
		return []enums.UserRole{actor.Role}
	}
	out := make([]enums.UserRole, len(operationalRecipients))
	copy(out, operationalRecipients)
	return out
}

// LockRequest builds the notification for a ledger locked on missing configuration.
func LockRequest(record *models.FuelRecord, actor auth.Actor) Request {
	reason := record.PendingConfigReason
	missing := missingConfigLabel(reason)
	title := fmt.Sprintf("Fuel record locked: %s", missing)

	var message string
	if actor.Role.IsAdminTier() {
		message = fmt.Sprintf("Truck %s (DO %s, %s to %s) is missing %s. Configure it under %s to unlock the fuel record.",
			record.TruckNo, record.GoingDONumber, record.From, record.To, missing, configLocation(reason))
	} else {
		message = fmt.Sprintf("Truck %s (DO %s, %s to %s) is missing %s and needs admin action before fuel can be reconciled.",
			record.TruckNo, record.GoingDONumber, record.From, record.To, missing)
	}

	return Request{
		Type:           enums.NotificationTypeForLock(reason),
		Title:          title,
		Message:        message,
		RelatedModel:   enums.RelatedModelFuelRecord,
		RelatedID:      record.ID,
		RecipientRoles: Recipients(actor),
		Metadata: map[string]any{
			"truckNo":             record.TruckNo,
			"doNumber":            record.GoingDONumber,
			"from":                record.From,
			"to":                  record.To,
			"pendingConfigReason": string(reason),
		},
		CreatedBy: actor.Username,
	}
}

// UnlinkedReturnRequest builds the notification for a return order that found
// no ledger to attach to.
func UnlinkedReturnRequest(order *models.DeliveryOrder, actor auth.Actor) Request {
	var message string
	if actor.Role.IsAdminTier() {
		message = fmt.Sprintf("EXPORT DO %s for truck %s has no open fuel record. Create the going DO or relink it from the delivery order screen.",
			order.DONumber, order.TruckNo)
	} else {
		message = fmt.Sprintf("EXPORT DO %s for truck %s has no open fuel record and needs admin action.",
			order.DONumber, order.TruckNo)
	}
	return Request{
		Type:           enums.NotificationTypeUnlinkedExportDO,
		Title:          fmt.Sprintf("Unlinked return DO %s", order.DONumber),
		Message:        message,
		RelatedModel:   enums.RelatedModelDeliveryOrder,
		RelatedID:      order.ID,
		RecipientRoles: Recipients(actor),
		Metadata: map[string]any{
			"truckNo":      order.TruckNo,
			"doNumber":     order.DONumber,
			"loadingPoint": order.LoadingPoint,
			"destination":  order.Destination,
		},
		CreatedBy: actor.Username,
	}
}

// LedgerResolution resolves every pending notification about a ledger.
func LedgerResolution(recordID uuid.UUID, actor auth.Actor) Resolution {
	return Resolution{
		RelatedModel: enums.RelatedModelFuelRecord,
		RelatedID:    recordID,
		ResolvedBy:   actor.Username,
	}
}

// UnlinkedReturnResolution resolves the unlinked-return notification of an order.
func UnlinkedReturnResolution(orderID uuid.UUID, actor auth.Actor) Resolution {
	return Resolution{
		RelatedModel: enums.RelatedModelDeliveryOrder,
		RelatedID:    orderID,
		Types:        []enums.NotificationType{enums.NotificationTypeUnlinkedExportDO},
		ResolvedBy:   actor.Username,
	}
}

func missingConfigLabel(reason enums.PendingConfigReason) string {
	switch reason {
	case enums.PendingConfigMissingTotalLiters:
		return "route total liters"
	case enums.PendingConfigMissingExtraFuel:
		return "truck batch extra fuel"
	default:
		return "route total liters and truck batch extra fuel"
	}
}

func configLocation(reason enums.PendingConfigReason) string {
	parts := []string{}
	if reason == enums.PendingConfigMissingTotalLiters || reason == enums.PendingConfigBoth {
		parts = append(parts, "Admin > Routes")
	}
	if reason == enums.PendingConfigMissingExtraFuel || reason == enums.PendingConfigBoth {
		parts = append(parts, "Admin > Truck Batches")
	}
	return strings.Join(parts, " and ")
}

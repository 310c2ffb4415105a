package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// DeliveryOrder is a shipment authorization. Orders are never deleted, only cancelled.
type DeliveryOrder struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DONumber           string          `gorm:"column:do_number;not null;uniqueIndex:ux_delivery_orders_do_number,priority:2" json:"doNumber"`
	OrderType          enums.OrderType `gorm:"column:order_type;type:text;not null;uniqueIndex:ux_delivery_orders_sequence,priority:1;uniqueIndex:ux_delivery_orders_do_number,priority:1" json:"orderType"`
	Year               int             `gorm:"column:year;not null;uniqueIndex:ux_delivery_orders_sequence,priority:2" json:"year"`
	Sequence           int             `gorm:"column:sequence;not null;uniqueIndex:ux_delivery_orders_sequence,priority:3" json:"sequence"`
	ImportOrExport     enums.Direction `gorm:"column:import_or_export;type:text;not null" json:"importOrExport"`
	TruckNo            string          `gorm:"column:truck_no;not null;index" json:"truckNo"`
	LoadingPoint       string          `gorm:"column:loading_point;not null" json:"loadingPoint"`
	Destination        string          `gorm:"column:destination;not null" json:"destination"`
	ClientName         string          `gorm:"column:client_name" json:"clientName,omitempty"`
	CargoType          string          `gorm:"column:cargo_type" json:"cargoType,omitempty"`
	ContainerNo        string          `gorm:"column:container_no" json:"containerNo,omitempty"`
	IsCancelled        bool            `gorm:"column:is_cancelled;not null;default:false" json:"isCancelled"`
	CancellationReason *string         `gorm:"column:cancellation_reason" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time      `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy        *string         `gorm:"column:cancelled_by" json:"cancelledBy,omitempty"`
	EditHistory        []EditEntry     `gorm:"column:edit_history;type:jsonb;serializer:json" json:"editHistory"`
	CreatedBy          string          `gorm:"column:created_by;not null" json:"createdBy"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// EditEntry is one append-only change record on a delivery order.
type EditEntry struct {
	Field    string    `json:"field"`
	OldValue string    `json:"oldValue"`
	NewValue string    `json:"newValue"`
	EditedAt time.Time `json:"editedAt"`
	EditedBy string    `json:"editedBy"`
}

func (o *DeliveryOrder) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsGoingLeg reports whether the order opens a fuel ledger.
func (o *DeliveryOrder) IsGoingLeg() bool {
	return o.OrderType == enums.OrderTypeDO && o.ImportOrExport == enums.DirectionImport
}

// IsReturnLeg reports whether the order closes a fuel ledger.
func (o *DeliveryOrder) IsReturnLeg() bool {
	return o.OrderType == enums.OrderTypeDO && o.ImportOrExport == enums.DirectionExport
}

// FormatDONumber renders the year-scoped sequence, e.g. 0042/25 for a DO and
// SDO-0042/25 for a special order. Each kind numbers from 1, so the prefix keeps
// rendered numbers unique across kinds; LPO entries reference orders by it.
func FormatDONumber(orderType enums.OrderType, sequence, year int) string {
	number := fmt.Sprintf("%04d/%02d", sequence, year%100)
	if orderType == enums.OrderTypeSDO {
		return "SDO-" + number
	}
	return number
}

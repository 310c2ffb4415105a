package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LPONilDONumber marks procurement entries that are not tied to a delivery order.
const LPONilDONumber = "NIL"

// LPOEntry is a fuel purchase line referencing a delivery order by number.
type LPOEntry struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LPONo          string          `gorm:"column:lpo_no;not null;index" json:"lpoNo"`
	DONumber       string          `gorm:"column:do_number;not null;index" json:"doNo"`
	TruckNo        string          `gorm:"column:truck_no;not null" json:"truckNo"`
	Destinations   string          `gorm:"column:destinations" json:"destinations"`
	Station        string          `gorm:"column:station" json:"station"`
	Liters         decimal.Decimal `gorm:"column:liters;type:numeric(12,2);not null" json:"liters"`
	Rate           decimal.Decimal `gorm:"column:rate;type:numeric(12,4);not null" json:"rate"`
	DeletedBy      *string         `gorm:"column:deleted_by" json:"deletedBy,omitempty"`
	DeletionReason *string         `gorm:"column:deletion_reason" json:"deletionReason,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt  `gorm:"column:deleted_at;index" json:"-"`
}

func (e *LPOEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

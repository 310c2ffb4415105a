package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RouteConfig is the configured fuel volume for a route. A nil Origin
// applies to any origin heading to Destination.
type RouteConfig struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Origin      *string         `gorm:"column:origin;index:ix_route_configs_lookup,priority:1" json:"origin,omitempty"`
	Destination string          `gorm:"column:destination;not null;index:ix_route_configs_lookup,priority:2" json:"destination"`
	TotalLiters decimal.Decimal `gorm:"column:total_liters;type:numeric(12,2);not null" json:"totalLiters"`
	IsActive    bool            `gorm:"column:is_active;not null" json:"isActive"`
	UpdatedBy   string          `gorm:"column:updated_by" json:"updatedBy"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (r *RouteConfig) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// TruckBatchRule grants extra liters to trucks whose number ends with
// TruckSuffix. A nil Destination is the default for the suffix.
type TruckBatchRule struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TruckSuffix string          `gorm:"column:truck_suffix;not null;index" json:"truckSuffix"`
	Destination *string         `gorm:"column:destination" json:"destination,omitempty"`
	ExtraLiters decimal.Decimal `gorm:"column:extra_liters;type:numeric(12,2);not null" json:"extraLiters"`
	UpdatedBy   string          `gorm:"column:updated_by" json:"updatedBy"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (r *TruckBatchRule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// FuelRecord is the fuel ledger for one truck journey.
type FuelRecord struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TruckNo        string    `gorm:"column:truck_no;not null;index:ix_fuel_records_truck_status,priority:1;uniqueIndex:ux_fuel_records_active_truck,where:journey_status = 'active' AND deleted_at IS NULL" json:"truckNo"`
	GoingDONumber  string    `gorm:"column:going_do_number;not null;index" json:"goingDoNumber"`
	ReturnDONumber *string   `gorm:"column:return_do_number;index" json:"returnDoNumber,omitempty"`
	Date           time.Time `gorm:"column:date;not null" json:"date"`

	From              string  `gorm:"column:from_location;not null" json:"from"`
	To                string  `gorm:"column:to_location;not null" json:"to"`
	OriginalGoingFrom *string `gorm:"column:original_going_from" json:"originalGoingFrom,omitempty"`
	OriginalGoingTo   *string `gorm:"column:original_going_to" json:"originalGoingTo,omitempty"`

	TotalLiters       decimal.NullDecimal `gorm:"column:total_liters;type:numeric(12,2)" json:"totalLiters"`
	ExtraLiters       decimal.NullDecimal `gorm:"column:extra_liters;type:numeric(12,2)" json:"extraLiters"`
	RouteLiters       decimal.NullDecimal `gorm:"column:route_liters;type:numeric(12,2)" json:"routeLiters"`
	ReturnRouteLiters decimal.NullDecimal `gorm:"column:return_route_liters;type:numeric(12,2)" json:"returnRouteLiters"`

	Checkpoints Checkpoints     `gorm:"embedded" json:"checkpoints"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null" json:"balance"`

	JourneyStatus  enums.JourneyStatus `gorm:"column:journey_status;type:text;not null;index:ix_fuel_records_truck_status,priority:2" json:"journeyStatus"`
	QueueOrder     *int                `gorm:"column:queue_order" json:"queueOrder,omitempty"`
	QueuedBehindID *uuid.UUID          `gorm:"column:queued_behind_id;type:uuid" json:"queuedBehindId,omitempty"`
	ActivatedAt    *time.Time          `gorm:"column:activated_at" json:"activatedAt,omitempty"`
	CompletedAt    *time.Time          `gorm:"column:completed_at" json:"completedAt,omitempty"`

	IsLocked            bool                      `gorm:"column:is_locked;not null;default:false" json:"isLocked"`
	PendingConfigReason enums.PendingConfigReason `gorm:"column:pending_config_reason;type:text;not null" json:"pendingConfigReason"`

	IsCancelled        bool       `gorm:"column:is_cancelled;not null;default:false" json:"isCancelled"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CancellationReason *string    `gorm:"column:cancellation_reason" json:"cancellationReason,omitempty"`
	CancelledBy        *string    `gorm:"column:cancelled_by" json:"cancelledBy,omitempty"`

	CreatedBy string         `gorm:"column:created_by;not null" json:"createdBy"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (r *FuelRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	if r.PendingConfigReason == "" {
		r.PendingConfigReason = enums.PendingConfigNone
	}
	return nil
}

// Checkpoints holds the fixed set of fuel draws along a journey. Going-leg
// and yard draws come first, return-leg draws last.
type Checkpoints struct {
	MMSAYard    decimal.Decimal `gorm:"column:mmsa_yard;type:numeric(12,2);not null" json:"mmsaYard"`
	TangaYard   decimal.Decimal `gorm:"column:tanga_yard;type:numeric(12,2);not null" json:"tangaYard"`
	DarYard     decimal.Decimal `gorm:"column:dar_yard;type:numeric(12,2);not null" json:"darYard"`
	DarGoing    decimal.Decimal `gorm:"column:dar_going;type:numeric(12,2);not null" json:"darGoing"`
	MoroGoing   decimal.Decimal `gorm:"column:moro_going;type:numeric(12,2);not null" json:"moroGoing"`
	MbeyaGoing  decimal.Decimal `gorm:"column:mbeya_going;type:numeric(12,2);not null" json:"mbeyaGoing"`
	TdmGoing    decimal.Decimal `gorm:"column:tdm_going;type:numeric(12,2);not null" json:"tdmGoing"`
	ZambiaGoing decimal.Decimal `gorm:"column:zambia_going;type:numeric(12,2);not null" json:"zambiaGoing"`
	CongoFuel   decimal.Decimal `gorm:"column:congo_fuel;type:numeric(12,2);not null" json:"congoFuel"`

	ZambiaReturn  decimal.Decimal `gorm:"column:zambia_return;type:numeric(12,2);not null" json:"zambiaReturn"`
	TundumaReturn decimal.Decimal `gorm:"column:tunduma_return;type:numeric(12,2);not null" json:"tundumaReturn"`
	MbeyaReturn   decimal.Decimal `gorm:"column:mbeya_return;type:numeric(12,2);not null" json:"mbeyaReturn"`
	MoroReturn    decimal.Decimal `gorm:"column:moro_return;type:numeric(12,2);not null" json:"moroReturn"`
	DarReturn     decimal.Decimal `gorm:"column:dar_return;type:numeric(12,2);not null" json:"darReturn"`
	TangaReturn   decimal.Decimal `gorm:"column:tanga_return;type:numeric(12,2);not null" json:"tangaReturn"`
}

// GoingLeg returns the yard and going-leg draws.
func (c Checkpoints) GoingLeg() []decimal.Decimal {
	return []decimal.Decimal{
		c.MMSAYard, c.TangaYard, c.DarYard,
		c.DarGoing, c.MoroGoing, c.MbeyaGoing, c.TdmGoing, c.ZambiaGoing, c.CongoFuel,
	}
}

// ReturnLeg returns the six return-leg draws.
func (c Checkpoints) ReturnLeg() []decimal.Decimal {
	return []decimal.Decimal{
		c.ZambiaReturn, c.TundumaReturn, c.MbeyaReturn, c.MoroReturn, c.DarReturn, c.TangaReturn,
	}
}

// All returns every checkpoint draw.
func (c Checkpoints) All() []decimal.Decimal {
	return append(c.GoingLeg(), c.ReturnLeg()...)
}

// ClearReturnLeg zeroes the six return-leg draws.
func (c *Checkpoints) ClearReturnLeg() {
	c.ZambiaReturn = decimal.Zero
	c.TundumaReturn = decimal.Zero
	c.MbeyaReturn = decimal.Zero
	c.MoroReturn = decimal.Zero
	c.DarReturn = decimal.Zero
	c.TangaReturn = decimal.Zero
}

// CheckpointNames lists the checkpoint keys accepted by Set, in ledger order.
var CheckpointNames = []string{
	"mmsaYard", "tangaYard", "darYard",
	"darGoing", "moroGoing", "mbeyaGoing", "tdmGoing", "zambiaGoing", "congoFuel",
	"zambiaReturn", "tundumaReturn", "mbeyaReturn", "moroReturn", "darReturn", "tangaReturn",
}

// Set assigns a checkpoint by its JSON name. It reports false for unknown names.
func (c *Checkpoints) Set(name string, value decimal.Decimal) bool {
	switch name {
	case "mmsaYard":
		c.MMSAYard = value
	case "tangaYard":
		c.TangaYard = value
	case "darYard":
		c.DarYard = value
	case "darGoing":
		c.DarGoing = value
	case "moroGoing":
		c.MoroGoing = value
	case "mbeyaGoing":
		c.MbeyaGoing = value
	case "tdmGoing":
		c.TdmGoing = value
	case "zambiaGoing":
		c.ZambiaGoing = value
	case "congoFuel":
		c.CongoFuel = value
	case "zambiaReturn":
		c.ZambiaReturn = value
	case "tundumaReturn":
		c.TundumaReturn = value
	case "mbeyaReturn":
		c.MbeyaReturn = value
	case "moroReturn":
		c.MoroReturn = value
	case "darReturn":
		c.DarReturn = value
	case "tangaReturn":
		c.TangaReturn = value
	default:
		return false
	}
	return true
}

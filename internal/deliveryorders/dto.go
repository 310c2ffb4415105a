package deliveryorders

import (
	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// CreateOrderInput carries the fields of a new delivery order. Year defaults
// to the current year.
type CreateOrderInput struct {
	OrderType      enums.OrderType
	ImportOrExport enums.Direction
	TruckNo        string
	LoadingPoint   string
	Destination    string
	ClientName     string
	CargoType      string
	ContainerNo    string
	Year           int
}

// EditOrderInput lists editable fields. Nil fields are left unchanged; order
// type and direction are fixed once issued.
type EditOrderInput struct {
	TruckNo      *string
	LoadingPoint *string
	Destination  *string
	ClientName   *string
	CargoType    *string
	ContainerNo  *string
}

// OrderResult is the mutated order plus what the change cascaded into.
type OrderResult struct {
	Order   *models.DeliveryOrder `json:"order"`
	Cascade cascade.Result        `json:"cascade"`
}

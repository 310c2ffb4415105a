package enums

import (
	"fmt"
	"strings"
)

// OrderType distinguishes normal delivery orders from special ones.
// Special delivery orders never touch the fuel ledger.
type OrderType string

const (
	OrderTypeDO  OrderType = "DO"
	OrderTypeSDO OrderType = "SDO"
)

var validOrderTypes = []OrderType{
	OrderTypeDO,
	OrderTypeSDO,
}

func (o OrderType) String() string {
	return string(o)
}

func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType accepts case-insensitive input.
func ParseOrderType(value string) (OrderType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validOrderTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

// Direction is the leg a delivery order covers. IMPORT opens a journey,
// EXPORT closes it.
type Direction string

const (
	DirectionImport Direction = "IMPORT"
	DirectionExport Direction = "EXPORT"
)

var validDirections = []Direction{
	DirectionImport,
	DirectionExport,
}

func (d Direction) String() string {
	return string(d)
}

func (d Direction) IsValid() bool {
	for _, candidate := range validDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDirection(value string) (Direction, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validDirections {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid direction %q", value)
}

package deliveryorders

import (
	"strings"

	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

func normalizeTruck(truck string) string {
	return strings.ToUpper(strings.Join(strings.Fields(truck), " "))
}

func normalizePlace(place string) string {
	return strings.ToUpper(strings.Join(strings.Fields(place), " "))
}

func normalizeCreate(in CreateOrderInput) CreateOrderInput {
	in.TruckNo = normalizeTruck(in.TruckNo)
	in.LoadingPoint = normalizePlace(in.LoadingPoint)
	in.Destination = normalizePlace(in.Destination)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.CargoType = strings.TrimSpace(in.CargoType)
	in.ContainerNo = strings.TrimSpace(in.ContainerNo)
	return in
}

func normalizeEdit(in EditOrderInput) EditOrderInput {
	apply := func(v *string, fn func(string) string) *string {
		if v == nil {
			return nil
		}
		out := fn(*v)
		return &out
	}
	in.TruckNo = apply(in.TruckNo, normalizeTruck)
	in.LoadingPoint = apply(in.LoadingPoint, normalizePlace)
	in.Destination = apply(in.Destination, normalizePlace)
	in.ClientName = apply(in.ClientName, strings.TrimSpace)
	in.CargoType = apply(in.CargoType, strings.TrimSpace)
	in.ContainerNo = apply(in.ContainerNo, strings.TrimSpace)
	return in
}

func validateCreate(in CreateOrderInput) error {
	switch {
	case !in.OrderType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "orderType must be DO or SDO")
	case !in.ImportOrExport.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "importOrExport must be IMPORT or EXPORT")
	case in.TruckNo == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "truckNo required")
	case in.LoadingPoint == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "loadingPoint required")
	case in.Destination == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "destination required")
	case in.Year != 0 && (in.Year < 2000 || in.Year > 2999):
		return pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	return nil
}

func validateEdit(in EditOrderInput) error {
	if in.TruckNo == nil && in.LoadingPoint == nil && in.Destination == nil &&
		in.ClientName == nil && in.CargoType == nil && in.ContainerNo == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	for field, v := range map[string]*string{"truckNo": in.TruckNo, "loadingPoint": in.LoadingPoint, "destination": in.Destination} {
		if v != nil && *v == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" must not be empty")
		}
	}
	return nil
}

package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/api/middleware"
	"github.com/angelmondragon/fleetops-backend/api/responses"
	"github.com/angelmondragon/fleetops-backend/api/validators"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

type updateFuelRecordRequest struct {
	TotalLiters *decimal.Decimal           `json:"totalLiters" validate:"omitempty,gte=0"`
	ExtraLiters *decimal.Decimal           `json:"extraLiters" validate:"omitempty,gte=0"`
	Checkpoints map[string]decimal.Decimal `json:"checkpoints"`
}

func GetFuelRecord(svc fuelrecords.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fuel records service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "fuelRecordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// UpdateFuelRecord records manual volumes and checkpoint draws.
func UpdateFuelRecord(svc fuelrecords.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fuel records service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "fuelRecordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateFuelRecordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithLedgerID(ctx, id.String())
		}
		result, err := svc.Update(ctx, middleware.ActorFromContext(ctx), id, fuelrecords.UpdateInput{
			TotalLiters: body.TotalLiters,
			ExtraLiters: body.ExtraLiters,
			Checkpoints: body.Checkpoints,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListTruckJourneys returns every ledger of a truck, active first.
func ListTruckJourneys(svc fuelrecords.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fuel records service unavailable"))
			return
		}
		truckNo, err := url.PathUnescape(chi.URLParam(r, "truckNo"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid truckNo"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTruckNo(ctx, truckNo)
		}
		records, err := svc.ListTruckJourneys(ctx, middleware.ActorFromContext(ctx), truckNo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

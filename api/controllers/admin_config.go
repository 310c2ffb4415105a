package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/api/middleware"
	"github.com/angelmondragon/fleetops-backend/api/responses"
	"github.com/angelmondragon/fleetops-backend/api/validators"
	"github.com/angelmondragon/fleetops-backend/internal/routeconfig"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

type upsertRouteRequest struct {
	Origin      *string         `json:"origin" validate:"omitempty,max=128"`
	Destination string          `json:"destination" validate:"required,max=128"`
	TotalLiters decimal.Decimal `json:"totalLiters" validate:"gte=0"`
	IsActive    *bool           `json:"isActive"`
}

type upsertTruckBatchRequest struct {
	TruckSuffix string          `json:"truckSuffix" validate:"required,max=16"`
	Destination *string         `json:"destination" validate:"omitempty,max=128"`
	ExtraLiters decimal.Decimal `json:"extraLiters" validate:"gte=0"`
}

// AdminUpsertRoute configures route liters; locked ledgers are reconciled afterwards.
func AdminUpsertRoute(svc routeconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route config service unavailable"))
			return
		}
		var body upsertRouteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		route, err := svc.UpsertRoute(r.Context(), middleware.ActorFromContext(r.Context()), routeconfig.RouteInput{
			Origin:      body.Origin,
			Destination: body.Destination,
			TotalLiters: body.TotalLiters,
			IsActive:    body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, route)
	}
}

func AdminUpsertTruckBatch(svc routeconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "route config service unavailable"))
			return
		}
		var body upsertTruckBatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.UpsertTruckBatch(r.Context(), middleware.ActorFromContext(r.Context()), routeconfig.TruckBatchInput{
			TruckSuffix: body.TruckSuffix,
			Destination: body.Destination,
			ExtraLiters: body.ExtraLiters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

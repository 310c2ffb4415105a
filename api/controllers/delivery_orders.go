package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fleetops-backend/api/middleware"
	"github.com/angelmondragon/fleetops-backend/api/responses"
	"github.com/angelmondragon/fleetops-backend/api/validators"
	"github.com/angelmondragon/fleetops-backend/internal/deliveryorders"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

type createOrderRequest struct {
	OrderType      string `json:"orderType" validate:"omitempty,max=8"`
	ImportOrExport string `json:"importOrExport" validate:"required,max=8"`
	TruckNo        string `json:"truckNo" validate:"required,max=32"`
	LoadingPoint   string `json:"loadingPoint" validate:"required,max=128"`
	Destination    string `json:"destination" validate:"required,max=128"`
	ClientName     string `json:"clientName" validate:"max=256"`
	CargoType      string `json:"cargoType" validate:"max=128"`
	ContainerNo    string `json:"containerNo" validate:"max=64"`
	Year           int    `json:"year" validate:"omitempty,gte=2000,lte=2999"`
}

func (r createOrderRequest) toInput() deliveryorders.CreateOrderInput {
	orderType := enums.OrderType(strings.ToUpper(strings.TrimSpace(r.OrderType)))
	if orderType == "" {
		orderType = enums.OrderTypeDO
	}
	return deliveryorders.CreateOrderInput{
		OrderType:      orderType,
		ImportOrExport: enums.Direction(strings.ToUpper(strings.TrimSpace(r.ImportOrExport))),
		TruckNo:        r.TruckNo,
		LoadingPoint:   r.LoadingPoint,
		Destination:    r.Destination,
		ClientName:     r.ClientName,
		CargoType:      r.CargoType,
		ContainerNo:    r.ContainerNo,
		Year:           r.Year,
	}
}

type editOrderRequest struct {
	TruckNo      *string `json:"truckNo" validate:"omitempty,max=32"`
	LoadingPoint *string `json:"loadingPoint" validate:"omitempty,max=128"`
	Destination  *string `json:"destination" validate:"omitempty,max=128"`
	ClientName   *string `json:"clientName" validate:"omitempty,max=256"`
	CargoType    *string `json:"cargoType" validate:"omitempty,max=128"`
	ContainerNo  *string `json:"containerNo" validate:"omitempty,max=64"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=512"`
}

// CreateDeliveryOrder issues a delivery order and opens or queues its ledger.
func CreateDeliveryOrder(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTruckNo(ctx, body.TruckNo)
		}
		result, err := svc.CreateOrder(ctx, middleware.ActorFromContext(ctx), body.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListDeliveryOrders returns recent orders, newest first.
func ListDeliveryOrders(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeCancelled, err := validators.ParseQueryBool(r, "includeCancelled")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		filter := deliveryorders.ListFilter{
			TruckNo:          q.Get("truckNo"),
			OrderType:        enums.OrderType(strings.ToUpper(strings.TrimSpace(q.Get("orderType")))),
			ImportOrExport:   enums.Direction(strings.ToUpper(strings.TrimSpace(q.Get("importOrExport")))),
			IncludeCancelled: includeCancelled,
			Limit:            limit,
		}
		orders, err := svc.ListOrders(r.Context(), middleware.ActorFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

func GetDeliveryOrder(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// EditDeliveryOrder applies a partial edit and cascades it to the ledger and LPO entries.
func EditDeliveryOrder(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body editOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, id.String())
		}
		result, err := svc.EditOrder(ctx, middleware.ActorFromContext(ctx), id, deliveryorders.EditOrderInput{
			TruckNo:      body.TruckNo,
			LoadingPoint: body.LoadingPoint,
			Destination:  body.Destination,
			ClientName:   body.ClientName,
			CargoType:    body.CargoType,
			ContainerNo:  body.ContainerNo,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CancelDeliveryOrder(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, id.String())
		}
		result, err := svc.CancelOrder(ctx, middleware.ActorFromContext(ctx), id, body.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RelinkDeliveryOrder re-attempts attaching an EXPORT order to its truck's ledger.
func RelinkDeliveryOrder(svc deliveryorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery orders service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, id.String())
		}
		result, err := svc.RelinkReturnOrder(ctx, middleware.ActorFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

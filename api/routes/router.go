package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fleetops-backend/api/controllers"
	"github.com/angelmondragon/fleetops-backend/api/middleware"
	"github.com/angelmondragon/fleetops-backend/internal/deliveryorders"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/internal/routeconfig"
	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/fleetops-backend/pkg/redis"
)

// Deps are the services and infrastructure the API routes to.
type Deps struct {
	DB             controllers.Pinger
	Redis          controllers.Pinger
	Idempotency    pkgredis.IdempotencyStore
	Metrics        prometheus.Gatherer
	DeliveryOrders deliveryorders.Service
	FuelRecords    fuelrecords.Service
	Notifications  notifications.Service
	RouteConfig    routeconfig.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/delivery-orders", func(r chi.Router) {
			r.Get("/", controllers.ListDeliveryOrders(deps.DeliveryOrders, logg))
			r.Post("/", controllers.CreateDeliveryOrder(deps.DeliveryOrders, logg))
			r.Get("/{orderId}", controllers.GetDeliveryOrder(deps.DeliveryOrders, logg))
			r.Patch("/{orderId}", controllers.EditDeliveryOrder(deps.DeliveryOrders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelDeliveryOrder(deps.DeliveryOrders, logg))
			r.Post("/{orderId}/relink", controllers.RelinkDeliveryOrder(deps.DeliveryOrders, logg))
		})

		r.Route("/fuel-records", func(r chi.Router) {
			r.Get("/{fuelRecordId}", controllers.GetFuelRecord(deps.FuelRecords, logg))
			r.Patch("/{fuelRecordId}", controllers.UpdateFuelRecord(deps.FuelRecords, logg))
		})
		r.Get("/trucks/{truckNo}/journeys", controllers.ListTruckJourneys(deps.FuelRecords, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/dismiss", controllers.DismissNotification(deps.Notifications, logg))
			r.Post("/{notificationId}/resolve", controllers.ResolveNotification(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleSuperAdmin, enums.UserRoleAdmin))
		r.Put("/routes", controllers.AdminUpsertRoute(deps.RouteConfig, logg))
		r.Put("/truck-batches", controllers.AdminUpsertTruckBatch(deps.RouteConfig, logg))
	})

	return r
}

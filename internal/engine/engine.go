// Package engine assembles the journey and ledger object graph shared by the
// API and the cron worker.
package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/internal/cron"
	"github.com/angelmondragon/fleetops-backend/internal/deliveryorders"
	"github.com/angelmondragon/fleetops-backend/internal/fuel"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/internal/journeys"
	"github.com/angelmondragon/fleetops-backend/internal/lpo"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/internal/routeconfig"
	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
	"github.com/angelmondragon/fleetops-backend/pkg/redis"
)

type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

// Engine holds the wired repositories, runner and services.
type Engine struct {
	Ledgers       fuelrecords.Repository
	Orders        deliveryorders.Repository
	Notifications notifications.Repository
	Outbox        *outbox.Repository
	Runner        *cascade.Runner
	Reconcile     *cron.LedgerReconcileJob

	DeliveryOrderService deliveryorders.Service
	FuelRecordService    fuelrecords.Service
	NotificationService  notifications.Service
	RouteConfigService   routeconfig.Service
}

func New(p Params) (*Engine, error) {
	if p.Config == nil || p.DB == nil || p.Redis == nil {
		return nil, errors.New("config, database and redis are required")
	}
	conn := p.DB.DB()
	journeyMetrics := metrics.NewJourneyMetrics(p.Registerer)

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, p.Logger)

	ledgers := fuelrecords.NewRepository(conn)
	orders := deliveryorders.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)
	routeRepo := routeconfig.NewRepository(conn)

	lock, err := journeys.NewTruckLock(p.Redis, p.Config.Journeys.TruckLockTTL, p.Config.Journeys.TruckLockWait, journeyMetrics)
	if err != nil {
		return nil, err
	}
	manager := journeys.NewManager(fuel.NewPatternClassifier(p.Config.Journeys.MSADestinationPatterns), journeyMetrics)
	coord, err := cascade.NewCoordinator(manager, routeconfig.NewLookup(routeRepo), p.Logger, journeyMetrics)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notifications.NewDispatcher(notificationRepo, p.DB, emitter, p.Logger)
	if err != nil {
		return nil, err
	}
	runner, err := cascade.NewRunner(coord, lock, p.DB, emitter, lpo.NewRepository(conn), dispatcher, p.Logger)
	if err != nil {
		return nil, err
	}

	reconcile, err := cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:  p.Logger,
		Ledgers: ledgers,
		Runner:  runner,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Ledgers:       ledgers,
		Orders:        orders,
		Notifications: notificationRepo,
		Outbox:        outboxRepo,
		Runner:        runner,
		Reconcile:     reconcile,
	}
	if e.DeliveryOrderService, err = deliveryorders.NewService(orders, ledgers, runner); err != nil {
		return nil, err
	}
	if e.FuelRecordService, err = fuelrecords.NewService(ledgers, runner); err != nil {
		return nil, err
	}
	if e.NotificationService, err = notifications.NewService(notificationRepo, p.DB, emitter); err != nil {
		return nil, err
	}
	if e.RouteConfigService, err = routeconfig.NewService(routeRepo, reconcile, p.Logger); err != nil {
		return nil, err
	}
	return e, nil
}

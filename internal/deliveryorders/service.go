// Package deliveryorders issues, edits and cancels delivery orders and keeps
// the fuel ledgers derived from them in step.
package deliveryorders

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

const sequenceIndex = "ux_delivery_orders_sequence"

// issuerRoles may create, edit, cancel and relink delivery orders.
var issuerRoles = []enums.UserRole{
	enums.UserRoleSuperAdmin,
	enums.UserRoleAdmin,
	enums.UserRoleManager,
	enums.UserRoleSupervisor,
	enums.UserRoleClerk,
	enums.UserRoleFuelOrderMaker,
}

// Service defines the delivery order operations.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderResult, error)
	EditOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, input EditOrderInput) (*OrderResult, error)
	CancelOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*OrderResult, error)
	RelinkReturnOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*OrderResult, error)
	GetOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DeliveryOrder, error)
	ListOrders(ctx context.Context, actor auth.Actor, filter ListFilter) ([]models.DeliveryOrder, error)
}

type service struct {
	repo    Repository
	ledgers fuelrecords.Repository
	runner  *cascade.Runner
	now     func() time.Time
}

// NewService wires delivery order dependencies.
func NewService(repo Repository, ledgers fuelrecords.Repository, runner *cascade.Runner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery order repository required")
	}
	if ledgers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fuel record repository required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cascade runner required")
	}
	return &service{
		repo:    repo,
		ledgers: ledgers,
		runner:  runner,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) store(tx *gorm.DB) (Repository, cascade.Store) {
	orders := s.repo.WithTx(tx)
	return orders, cascade.Store{Ledgers: s.ledgers.WithTx(tx), Orders: orders}
}

func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderResult, error) {
	if err := requireIssuer(actor); err != nil {
		return nil, err
	}
	input = normalizeCreate(input)
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if input.Year == 0 {
		input.Year = s.now().Year()
	}

	var created *models.DeliveryOrder
	unit := func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
		orders, st := s.store(tx)
		seq, err := orders.NextSequence(ctx, input.OrderType, input.Year)
		if err != nil {
			return cascade.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		order := &models.DeliveryOrder{
			DONumber:       models.FormatDONumber(input.OrderType, seq, input.Year),
			OrderType:      input.OrderType,
			Year:           input.Year,
			Sequence:       seq,
			ImportOrExport: input.ImportOrExport,
			TruckNo:        input.TruckNo,
			LoadingPoint:   input.LoadingPoint,
			Destination:    input.Destination,
			ClientName:     input.ClientName,
			CargoType:      input.CargoType,
			ContainerNo:    input.ContainerNo,
			EditHistory:    []models.EditEntry{},
			CreatedBy:      actor.Username,
		}
		if err := orders.Create(ctx, order); err != nil {
			return cascade.Result{}, err
		}
		res, err := s.runner.Coordinator().ApplyCreate(ctx, st, order, actor)
		if err != nil {
			return cascade.Result{}, err
		}
		created = order
		return res, nil
	}

	res, err := s.runner.Run(ctx, actor, []string{input.TruckNo}, unit)
	if err != nil && db.IsUniqueViolation(err, sequenceIndex) {
		res, err = s.runner.Run(ctx, actor, []string{input.TruckNo}, unit)
	}
	if err != nil {
		return nil, wrapStoreError(err, "create delivery order")
	}
	return &OrderResult{Order: created, Cascade: res}, nil
}

func (s *service) EditOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, input EditOrderInput) (*OrderResult, error) {
	if err := requireIssuer(actor); err != nil {
		return nil, err
	}
	input = normalizeEdit(input)
	if err := validateEdit(input); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if current.IsCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be edited")
	}

	trucks := []string{current.TruckNo}
	if input.TruckNo != nil {
		trucks = append(trucks, *input.TruckNo)
	}

	var edited *models.DeliveryOrder
	res, err := s.runner.Run(ctx, actor, trucks, func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
		orders, st := s.store(tx)
		order, err := s.load(ctx, orders, id)
		if err != nil {
			return cascade.Result{}, err
		}
		if order.IsCancelled {
			return cascade.Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be edited")
		}

		before := *order
		before.EditHistory = slices.Clone(order.EditHistory)
		if !s.applyEdit(order, input, actor) {
			edited = order
			return cascade.Result{}, nil
		}
		if err := orders.Save(ctx, order); err != nil {
			return cascade.Result{}, err
		}
		res, err := s.runner.Coordinator().ApplyEdit(ctx, st, &before, order, actor)
		if err != nil {
			return cascade.Result{}, err
		}
		edited = order
		return res, nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "edit delivery order")
	}
	return &OrderResult{Order: edited, Cascade: res}, nil
}

// applyEdit assigns the changed fields and appends one history entry per
// change. It reports whether anything changed.
func (s *service) applyEdit(order *models.DeliveryOrder, input EditOrderInput, actor auth.Actor) bool {
	now := s.now()
	changed := false
	set := func(field string, target *string, value *string) {
		if value == nil || *value == *target {
			return
		}
		order.EditHistory = append(order.EditHistory, models.EditEntry{
			Field:    field,
			OldValue: *target,
			NewValue: *value,
			EditedAt: now,
			EditedBy: actor.Username,
		})
		*target = *value
		changed = true
	}
	set("truckNo", &order.TruckNo, input.TruckNo)
	set("loadingPoint", &order.LoadingPoint, input.LoadingPoint)
	set("destination", &order.Destination, input.Destination)
	set("clientName", &order.ClientName, input.ClientName)
	set("cargoType", &order.CargoType, input.CargoType)
	set("containerNo", &order.ContainerNo, input.ContainerNo)
	return changed
}

func (s *service) CancelOrder(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*OrderResult, error) {
	if err := requireIssuer(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	current, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if current.IsCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	}

	var cancelled *models.DeliveryOrder
	res, err := s.runner.Run(ctx, actor, []string{current.TruckNo}, func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
		orders, st := s.store(tx)
		order, err := s.load(ctx, orders, id)
		if err != nil {
			return cascade.Result{}, err
		}
		if order.IsCancelled {
			return cascade.Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
		}

		now := s.now()
		by := actor.Username
		order.IsCancelled = true
		order.CancelledAt = &now
		order.CancelledBy = &by
		if reason != "" {
			order.CancellationReason = &reason
		}
		if err := orders.Save(ctx, order); err != nil {
			return cascade.Result{}, err
		}
		res, err := s.runner.Coordinator().ApplyCancel(ctx, st, order, actor, reason)
		if err != nil {
			return cascade.Result{}, err
		}
		cancelled = order
		return res, nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "cancel delivery order")
	}
	return &OrderResult{Order: cancelled, Cascade: res}, nil
}

func (s *service) RelinkReturnOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*OrderResult, error) {
	if err := requireIssuer(actor); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	var linked *models.DeliveryOrder
	res, err := s.runner.Run(ctx, actor, []string{current.TruckNo}, func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
		orders, st := s.store(tx)
		order, err := s.load(ctx, orders, id)
		if err != nil {
			return cascade.Result{}, err
		}
		res, err := s.runner.Coordinator().RelinkReturn(ctx, st, order, actor)
		if err != nil {
			return cascade.Result{}, err
		}
		linked = order
		return res, nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "relink return order")
	}
	return &OrderResult{Order: linked, Cascade: res}, nil
}

func (s *service) GetOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DeliveryOrder, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, s.repo, id)
}

func (s *service) ListOrders(ctx context.Context, actor auth.Actor, filter ListFilter) ([]models.DeliveryOrder, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if filter.OrderType != "" && !filter.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type filter")
	}
	if filter.ImportOrExport != "" && !filter.ImportOrExport.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid direction filter")
	}
	filter.TruckNo = normalizeTruck(filter.TruckNo)
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery orders")
	}
	if orders == nil {
		orders = []models.DeliveryOrder{}
	}
	return orders, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.DeliveryOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery order id required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery order")
	}
	return order, nil
}

// wrapStoreError keeps typed errors and marks the rest as store failures.
func wrapStoreError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func requireActor(actor auth.Actor) error {
	if actor.Username == "" || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	return nil
}

func requireIssuer(actor auth.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !slices.Contains(issuerRoles, actor.Role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage delivery orders")
	}
	return nil
}

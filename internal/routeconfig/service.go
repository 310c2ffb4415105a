package routeconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

// Reconciler re-evaluates locked ledgers after configuration changes.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Service defines the admin configuration operations.
type Service interface {
	UpsertRoute(ctx context.Context, actor auth.Actor, input RouteInput) (*models.RouteConfig, error)
	UpsertTruckBatch(ctx context.Context, actor auth.Actor, input TruckBatchInput) (*models.TruckBatchRule, error)
}

// RouteInput configures the total liters for a route. A nil Origin makes
// the entry apply to any origin.
type RouteInput struct {
	Origin      *string
	Destination string
	TotalLiters decimal.Decimal
	IsActive    *bool
}

// TruckBatchInput configures the extra liters for trucks sharing a suffix.
type TruckBatchInput struct {
	TruckSuffix string
	Destination *string
	ExtraLiters decimal.Decimal
}

type service struct {
	repo       Repository
	reconciler Reconciler
	logg       *logger.Logger
}

// NewService wires configuration dependencies. The reconciler is optional.
func NewService(repo Repository, reconciler Reconciler, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "route config repository required")
	}
	return &service{repo: repo, reconciler: reconciler, logg: logg}, nil
}

func (s *service) UpsertRoute(ctx context.Context, actor auth.Actor, input RouteInput) (*models.RouteConfig, error) {
	if !actor.Role.IsAdminTier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	destination := Normalize(input.Destination)
	if destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if !input.TotalLiters.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalLiters must be positive")
	}
	origin := normalizeOptional(input.Origin)

	route, err := s.repo.FindRouteExact(ctx, origin, destination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	if route == nil {
		route = &models.RouteConfig{Origin: origin, Destination: destination, IsActive: true}
	}
	route.TotalLiters = input.TotalLiters
	if input.IsActive != nil {
		route.IsActive = *input.IsActive
	}
	route.UpdatedBy = actor.Username
	if err := s.repo.SaveRoute(ctx, route); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save route")
	}

	s.reconcile(ctx, fmt.Sprintf("route %s", destination))
	return route, nil
}

func (s *service) UpsertTruckBatch(ctx context.Context, actor auth.Actor, input TruckBatchInput) (*models.TruckBatchRule, error) {
	if !actor.Role.IsAdminTier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	suffix := strings.ReplaceAll(Normalize(input.TruckSuffix), " ", "")
	if suffix == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "truckSuffix is required")
	}
	if input.ExtraLiters.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extraLiters must not be negative")
	}
	destination := normalizeOptional(input.Destination)

	rule, err := s.repo.FindBatchRuleExact(ctx, suffix, destination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck batch")
	}
	if rule == nil {
		rule = &models.TruckBatchRule{TruckSuffix: suffix, Destination: destination}
	}
	rule.ExtraLiters = input.ExtraLiters
	rule.UpdatedBy = actor.Username
	if err := s.repo.SaveBatchRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save truck batch")
	}

	s.reconcile(ctx, fmt.Sprintf("truck batch %s", suffix))
	return rule, nil
}

func (s *service) reconcile(ctx context.Context, trigger string) {
	if s.reconciler == nil {
		return
	}
	if err := s.reconciler.Reconcile(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "trigger", trigger), fmt.Sprintf("ledger reconcile after config change failed: %v", err))
	}
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	v := Normalize(*value)
	if v == "" {
		return nil
	}
	return &v
}

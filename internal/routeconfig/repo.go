package routeconfig

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
)

// Repository exposes persistence helpers for route and truck-batch configuration.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRoute(ctx context.Context, origin, destination string) (*models.RouteConfig, error)
	FindRouteByDestination(ctx context.Context, destination string) (*models.RouteConfig, error)
	FindRouteExact(ctx context.Context, origin *string, destination string) (*models.RouteConfig, error)
	SaveRoute(ctx context.Context, route *models.RouteConfig) error
	ListBatchRules(ctx context.Context) ([]models.TruckBatchRule, error)
	FindBatchRuleExact(ctx context.Context, suffix string, destination *string) (*models.TruckBatchRule, error)
	SaveBatchRule(ctx context.Context, rule *models.TruckBatchRule) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a configuration repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindRoute(ctx context.Context, origin, destination string) (*models.RouteConfig, error) {
	var rows []models.RouteConfig
	err := r.db.WithContext(ctx).
		Where("origin = ? AND destination = ? AND is_active = ?", origin, destination, true).
		Order("updated_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// FindRouteByDestination prefers a destination-wide entry over one configured
// for a different origin.
func (r *repositoryImpl) FindRouteByDestination(ctx context.Context, destination string) (*models.RouteConfig, error) {
	var rows []models.RouteConfig
	err := r.db.WithContext(ctx).
		Where("destination = ? AND is_active = ?", destination, true).
		Order("CASE WHEN origin IS NULL THEN 0 ELSE 1 END, updated_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *repositoryImpl) FindRouteExact(ctx context.Context, origin *string, destination string) (*models.RouteConfig, error) {
	query := r.db.WithContext(ctx).Where("destination = ?", destination)
	if origin == nil {
		query = query.Where("origin IS NULL")
	} else {
		query = query.Where("origin = ?", *origin)
	}
	var rows []models.RouteConfig
	if err := query.Limit(1).Find(&rows).Error; err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *repositoryImpl) SaveRoute(ctx context.Context, route *models.RouteConfig) error {
	return r.db.WithContext(ctx).Save(route).Error
}

func (r *repositoryImpl) ListBatchRules(ctx context.Context) ([]models.TruckBatchRule, error) {
	var rules []models.TruckBatchRule
	err := r.db.WithContext(ctx).Order("truck_suffix ASC").Find(&rules).Error
	return rules, err
}

func (r *repositoryImpl) FindBatchRuleExact(ctx context.Context, suffix string, destination *string) (*models.TruckBatchRule, error) {
	query := r.db.WithContext(ctx).Where("truck_suffix = ?", suffix)
	if destination == nil {
		query = query.Where("destination IS NULL")
	} else {
		query = query.Where("destination = ?", *destination)
	}
	var rows []models.TruckBatchRule
	if err := query.Limit(1).Find(&rows).Error; err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *repositoryImpl) SaveBatchRule(ctx context.Context, rule *models.TruckBatchRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

package deliveryorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository exposes persistence helpers for delivery orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.DeliveryOrder) error
	Save(ctx context.Context, order *models.DeliveryOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryOrder, error)
	FindByDONumber(ctx context.Context, orderType enums.OrderType, doNumber string) (*models.DeliveryOrder, error)
	NextSequence(ctx context.Context, orderType enums.OrderType, year int) (int, error)
	List(ctx context.Context, filter ListFilter) ([]models.DeliveryOrder, error)
}

// ListFilter narrows order listings. Zero values match everything.
type ListFilter struct {
	TruckNo          string
	OrderType        enums.OrderType
	ImportOrExport   enums.Direction
	IncludeCancelled bool
	Limit            int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a delivery order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.DeliveryOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) Save(ctx context.Context, order *models.DeliveryOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery order not found")
		}
		return nil, err
	}
	return &order, nil
}

// FindByDONumber returns nil when no order carries the number.
func (r *repositoryImpl) FindByDONumber(ctx context.Context, orderType enums.OrderType, doNumber string) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("order_type = ? AND do_number = ?", orderType, doNumber).
		Limit(1).
		Find(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == uuid.Nil {
		return nil, nil
	}
	return &order, nil
}

// NextSequence returns the next free sequence within the order type and year.
// Concurrent callers may receive the same value; the unique index decides.
func (r *repositoryImpl) NextSequence(ctx context.Context, orderType enums.OrderType, year int) (int, error) {
	var current int
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("order_type = ? AND year = ?", orderType, year).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.DeliveryOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.DeliveryOrder{})
	if filter.TruckNo != "" {
		query = query.Where("truck_no = ?", filter.TruckNo)
	}
	if filter.OrderType != "" {
		query = query.Where("order_type = ?", filter.OrderType)
	}
	if filter.ImportOrExport != "" {
		query = query.Where("import_or_export = ?", filter.ImportOrExport)
	}
	if !filter.IncludeCancelled {
		query = query.Where("is_cancelled = ?", false)
	}

	var orders []models.DeliveryOrder
	err := query.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}

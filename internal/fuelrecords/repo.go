package fuelrecords

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

// Repository exposes persistence helpers for fuel records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.FuelRecord) error
	Save(ctx context.Context, record *models.FuelRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FuelRecord, error)
	FindByGoingDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error)
	FindByReturnDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error)
	FindActiveByTruck(ctx context.Context, truckNo string) (*models.FuelRecord, error)
	ListQueuedByTruck(ctx context.Context, truckNo string) ([]models.FuelRecord, error)
	FindReturnCandidate(ctx context.Context, truckNo string) (*models.FuelRecord, error)
	ListByTruck(ctx context.Context, truckNo string) ([]models.FuelRecord, error)
	ListForReconcile(ctx context.Context, limit int) ([]models.FuelRecord, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a fuel record repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, record *models.FuelRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repositoryImpl) Save(ctx context.Context, record *models.FuelRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.FuelRecord, error) {
	var record models.FuelRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fuel record not found")
		}
		return nil, err
	}
	return &record, nil
}

// FindByGoingDONumber returns nil when no ledger was opened by the order.
func (r *repositoryImpl) FindByGoingDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("going_do_number = ?", doNumber).Order("created_at DESC"))
}

// FindByReturnDONumber returns nil when the order is not linked to any ledger.
func (r *repositoryImpl) FindByReturnDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("return_do_number = ?", doNumber).Order("created_at DESC"))
}

func (r *repositoryImpl) FindActiveByTruck(ctx context.Context, truckNo string) (*models.FuelRecord, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).
		Where("truck_no = ? AND journey_status = ?", truckNo, enums.JourneyStatusActive))
}

func (r *repositoryImpl) ListQueuedByTruck(ctx context.Context, truckNo string) ([]models.FuelRecord, error) {
	var records []models.FuelRecord
	err := r.db.WithContext(ctx).
		Where("truck_no = ? AND journey_status = ?", truckNo, enums.JourneyStatusQueued).
		Order("queue_order ASC, created_at ASC").
		Find(&records).Error
	return records, err
}

// FindReturnCandidate picks the ledger a return order should attach to: the
// truck's active journey without a return leg, else its earliest queued one.
func (r *repositoryImpl) FindReturnCandidate(ctx context.Context, truckNo string) (*models.FuelRecord, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).
		Where("truck_no = ? AND return_do_number IS NULL AND is_cancelled = ?", truckNo, false).
		Where("journey_status IN ?", []enums.JourneyStatus{enums.JourneyStatusActive, enums.JourneyStatusQueued}).
		Order("CASE WHEN journey_status = 'active' THEN 0 ELSE 1 END, queue_order ASC, created_at ASC"))
}

func (r *repositoryImpl) ListByTruck(ctx context.Context, truckNo string) ([]models.FuelRecord, error) {
	var records []models.FuelRecord
	err := r.db.WithContext(ctx).
		Where("truck_no = ?", truckNo).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListForReconcile returns locked or still-active ledgers that a reconcile
// pass may unlock or complete.
func (r *repositoryImpl) ListForReconcile(ctx context.Context, limit int) ([]models.FuelRecord, error) {
	query := r.db.WithContext(ctx).
		Where("is_cancelled = ?", false).
		Where("(is_locked = ? OR journey_status = ?)", true, enums.JourneyStatusActive).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.FuelRecord
	err := query.Find(&records).Error
	return records, err
}

func (r *repositoryImpl) findOne(_ context.Context, query *gorm.DB) (*models.FuelRecord, error) {
	var record models.FuelRecord
	if err := query.Limit(1).Find(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, nil
	}
	return &record, nil
}

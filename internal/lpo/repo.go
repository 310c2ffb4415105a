// Package lpo persists fuel purchase (LPO) entries and applies delivery
// order changes to the entries that reference them.
package lpo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
)

// Changes lists the fields a delivery order edit propagates. Nil fields are left alone.
type Changes struct {
	TruckNo      *string
	Destinations *string
}

// IsEmpty reports whether nothing would be updated.
func (c Changes) IsEmpty() bool {
	return c.TruckNo == nil && c.Destinations == nil
}

// Repository exposes persistence helpers for LPO entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LPOEntry) error
	ListByDONumber(ctx context.Context, doNumber string) ([]models.LPOEntry, error)
	UpdateByDONumber(ctx context.Context, doNumber string, changes Changes) (int64, error)
	SoftDeleteByDONumber(ctx context.Context, doNumber, deletedBy, reason string) (int64, error)
}

type repositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns an LPO repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx, now: r.now}
}

func (r *repositoryImpl) Create(ctx context.Context, entry *models.LPOEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListByDONumber(ctx context.Context, doNumber string) ([]models.LPOEntry, error) {
	var entries []models.LPOEntry
	err := r.db.WithContext(ctx).
		Where("do_number = ?", doNumber).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// UpdateByDONumber never touches NIL entries, which are not tied to an order.
func (r *repositoryImpl) UpdateByDONumber(ctx context.Context, doNumber string, changes Changes) (int64, error) {
	if doNumber == "" || doNumber == models.LPONilDONumber || changes.IsEmpty() {
		return 0, nil
	}
	updates := map[string]any{}
	if changes.TruckNo != nil {
		updates["truck_no"] = *changes.TruckNo
	}
	if changes.Destinations != nil {
		updates["destinations"] = *changes.Destinations
	}
	result := r.db.WithContext(ctx).
		Model(&models.LPOEntry{}).
		Where("do_number = ?", doNumber).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) SoftDeleteByDONumber(ctx context.Context, doNumber, deletedBy, reason string) (int64, error) {
	if doNumber == "" || doNumber == models.LPONilDONumber {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.LPOEntry{}).
		Where("do_number = ?", doNumber).
		Updates(map[string]any{
			"deleted_at":      r.now(),
			"deleted_by":      deletedBy,
			"deletion_reason": reason,
		})
	return result.RowsAffected, result.Error
}

package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	FindPending(ctx context.Context, model enums.RelatedModel, relatedID uuid.UUID, typ enums.NotificationType) (*models.Notification, error)
	ListPendingByRelated(ctx context.Context, model enums.RelatedModel, relatedID uuid.UUID, types []enums.NotificationType) ([]models.Notification, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pageCursor, error)
	MarkResolved(ctx context.Context, ids []uuid.UUID, resolvedBy string, now time.Time) (int64, error)
	MarkDismissed(ctx context.Context, id uuid.UUID, dismissedBy string, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	Role   enums.UserRole
	User   string
	Status enums.NotificationStatus
	Limit  int
	Cursor *pageCursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

func (r *repositoryImpl) FindPending(ctx context.Context, model enums.RelatedModel, relatedID uuid.UUID, typ enums.NotificationType) (*models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("related_model = ? AND related_id = ? AND type = ? AND status = ?", model, relatedID, typ, enums.NotificationStatusPending).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *repositoryImpl) ListPendingByRelated(ctx context.Context, model enums.RelatedModel, relatedID uuid.UUID, types []enums.NotificationType) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("related_model = ? AND related_id = ? AND status = ?", model, relatedID, enums.NotificationStatusPending)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	var rows []models.Notification
	err := query.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

// List returns notifications addressed to the user directly or to their role.
// Role membership is matched against the JSON-encoded recipient list.
func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pageCursor, error) {
	size := pageSize(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("(recipient_user = ? OR CAST(recipient_roles AS TEXT) LIKE ?)", params.User, `%"`+string(params.Role)+`"%`)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(size + 1).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > size {
		last := notifications[size-1]
		return notifications[:size], &pageCursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return notifications, nil, nil
}

func (r *repositoryImpl) MarkResolved(ctx context.Context, ids []uuid.UUID, resolvedBy string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND status = ?", ids, enums.NotificationStatusPending).
		Updates(map[string]any{
			"status":      enums.NotificationStatusResolved,
			"resolved_at": now,
			"resolved_by": resolvedBy,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkDismissed(ctx context.Context, id uuid.UUID, dismissedBy string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, enums.NotificationStatusPending).
		Updates(map[string]any{
			"status":       enums.NotificationStatusDismissed,
			"dismissed_at": now,
			"dismissed_by": dismissedBy,
		})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan purges resolved and dismissed notifications created before
// cutoff. Pending ones are kept however old they are.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", cutoff, enums.NotificationStatusPending).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

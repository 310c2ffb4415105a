package notifications

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

// Service defines notification list/dismiss/resolve operations.
type Service interface {
	List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	Dismiss(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
	Resolve(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Status enums.NotificationStatus
	Limit  int
	Cursor string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if actor.Username == "" || !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	query := listNotificationsParams{
		Role:   actor.Role,
		User:   actor.Username,
		Status: params.Status,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := decodeCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = next.encode()
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Dismiss(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	notification, err := s.loadForActor(ctx, actor, notificationID)
	if err != nil {
		return err
	}
	if notification.Status != enums.NotificationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "notification is no longer pending")
	}
	if _, err := s.repo.MarkDismissed(ctx, notificationID, actor.Username, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dismiss notification")
	}
	return nil
}

func (s *service) Resolve(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	notification, err := s.loadForActor(ctx, actor, notificationID)
	if err != nil {
		return err
	}
	if notification.Status != enums.NotificationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "notification is no longer pending")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).MarkResolved(ctx, []uuid.UUID{notificationID}, actor.Username, now); err != nil {
			return err
		}
		event := resolvedEvent([]uuid.UUID{notificationID}, notification.RelatedModel, notification.RelatedID, actor.Username, now)
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve notification")
	}
	return nil
}

func (s *service) loadForActor(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) (*models.Notification, error) {
	if notificationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	notification, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if notification == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if !addressedTo(notification, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "notification not addressed to caller")
	}
	return notification, nil
}

func addressedTo(n *models.Notification, actor auth.Actor) bool {
	if actor.Role == enums.UserRoleSuperAdmin {
		return true
	}
	if n.RecipientUser != nil && *n.RecipientUser == actor.Username {
		return true
	}
	return slices.Contains(n.RecipientRoles, actor.Role)
}

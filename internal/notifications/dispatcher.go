package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Dispatcher persists notification records and queues them for delivery
// through the outbox. Delivery itself happens in the outbox publisher.
type Dispatcher struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewDispatcher wires the dispatcher dependencies.
func NewDispatcher(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Dispatcher{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Request creates the notification unless an identical one is still pending.
// It reports whether a new record was created.
func (d *Dispatcher) Request(ctx context.Context, req Request) (bool, error) {
	created := false
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		existing, err := repo.FindPending(ctx, req.RelatedModel, req.RelatedID, req.Type)
		if err != nil {
			return fmt.Errorf("find pending notification: %w", err)
		}
		if existing != nil {
			return nil
		}

		notification := &models.Notification{
			Type:           req.Type,
			Title:          req.Title,
			Message:        req.Message,
			RelatedModel:   req.RelatedModel,
			RelatedID:      req.RelatedID,
			RecipientRoles: req.RecipientRoles,
			RecipientUser:  req.RecipientUser,
			Metadata:       req.Metadata,
			Status:         enums.NotificationStatusPending,
			CreatedBy:      req.CreatedBy,
		}
		if err := repo.Create(ctx, notification); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   notification.ID,
			Actor:         &outbox.ActorRef{Username: req.CreatedBy},
			Data: payloads.NotificationRequestedEvent{
				NotificationID: notification.ID,
				Type:           notification.Type,
				Title:          notification.Title,
				Message:        notification.Message,
				RelatedModel:   notification.RelatedModel,
				RelatedID:      notification.RelatedID,
				RecipientRoles: notification.RecipientRoles,
				RecipientUser:  notification.RecipientUser,
				Metadata:       notification.Metadata,
			},
		}
		if err := d.outbox.Emit(ctx, tx, event); err != nil {
			return fmt.Errorf("emit notification requested: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created && d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_type": string(req.Type),
			"related_model":     string(req.RelatedModel),
			"related_id":        req.RelatedID.String(),
		})
		d.logg.Info(logCtx, "notification requested")
	}
	return created, nil
}

// Resolve marks matching pending notifications resolved and returns how many
// changed.
func (d *Dispatcher) Resolve(ctx context.Context, res Resolution) (int, error) {
	resolved := 0
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		pending, err := repo.ListPendingByRelated(ctx, res.RelatedModel, res.RelatedID, res.Types)
		if err != nil {
			return fmt.Errorf("list pending notifications: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		now := d.now()
		ids := make([]uuid.UUID, 0, len(pending))
		for _, n := range pending {
			ids = append(ids, n.ID)
		}
		count, err := repo.MarkResolved(ctx, ids, res.ResolvedBy, now)
		if err != nil {
			return fmt.Errorf("resolve notifications: %w", err)
		}
		resolved = int(count)
		return d.outbox.Emit(ctx, tx, resolvedEvent(ids, res.RelatedModel, res.RelatedID, res.ResolvedBy, now))
	})
	if err != nil {
		return 0, err
	}
	return resolved, nil
}

func resolvedEvent(ids []uuid.UUID, model enums.RelatedModel, relatedID uuid.UUID, by string, at time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventNotificationResolved,
		AggregateType: enums.AggregateNotification,
		AggregateID:   relatedID,
		Actor:         &outbox.ActorRef{Username: by},
		Data: payloads.NotificationResolvedEvent{
			NotificationIDs: ids,
			RelatedModel:    model,
			RelatedID:       relatedID,
			ResolvedBy:      by,
			ResolvedAt:      at,
		},
		OccurredAt: at,
	}
}

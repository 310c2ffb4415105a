package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

const (
	notificationRetentionDays = 90
	outboxRetentionDays       = 30
	outboxMinAttempts         = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// RetentionJobParams configures the retention sweeps. Zero durations fall
// back to the defaults.
type RetentionJobParams struct {
	Logger            *logger.Logger
	DB                txRunner
	Notifications     notificationPurger
	Outbox            outboxPurger
	NotificationDays  int
	OutboxDays        int
	OutboxMinAttempts int
}

type retentionJob struct {
	logg              *logger.Logger
	db                txRunner
	notifications     notificationPurger
	outbox            outboxPurger
	notificationDays  int
	outboxDays        int
	outboxMinAttempts int
	now               func() time.Time
}

// NewRetentionJob purges settled notifications and delivered outbox rows.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &retentionJob{
		logg:              params.Logger,
		db:                params.DB,
		notifications:     params.Notifications,
		outbox:            params.Outbox,
		notificationDays:  params.NotificationDays,
		outboxDays:        params.OutboxDays,
		outboxMinAttempts: params.OutboxMinAttempts,
		now:               time.Now,
	}
	if job.notificationDays <= 0 {
		job.notificationDays = notificationRetentionDays
	}
	if job.outboxDays <= 0 {
		job.outboxDays = outboxRetentionDays
	}
	if job.outboxMinAttempts <= 0 {
		job.outboxMinAttempts = outboxMinAttempts
	}
	return job, nil
}

func (j *retentionJob) Name() string { return "retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	notificationCutoff := now.AddDate(0, 0, -j.notificationDays)
	outboxCutoff := now.AddDate(0, 0, -j.outboxDays)

	var errs error
	notifications, err := j.sweep(ctx, func(tx *gorm.DB) (int64, error) {
		return j.notifications.DeleteOlderThan(ctx, tx, notificationCutoff)
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("notification retention: %w", err))
	}
	events, err := j.sweep(ctx, func(tx *gorm.DB) (int64, error) {
		return j.outbox.DeletePublishedBefore(ctx, tx, outboxCutoff, j.outboxMinAttempts)
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("outbox retention: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"notification_cutoff":   notificationCutoff,
		"notifications_deleted": notifications,
		"outbox_cutoff":         outboxCutoff,
		"outbox_deleted":        events,
	})
	j.logg.Info(logCtx, "retention sweep complete")
	return errs
}

func (j *retentionJob) sweep(ctx context.Context, fn func(tx *gorm.DB) (int64, error)) (int64, error) {
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := fn(tx)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	return deleted, err
}

package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

const defaultReconcileBatch = 500

// LedgerReconcileJobParams configures the ledger reconcile pass.
type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Ledgers   fuelrecords.Repository
	Runner    *cascade.Runner
	BatchSize int
}

// LedgerReconcileJob re-resolves missing configuration on locked ledgers,
// refreshes balances and advances journeys that have balanced out. It also
// serves route and truck-batch upserts that want an immediate pass.
type LedgerReconcileJob struct {
	logg      *logger.Logger
	ledgers   fuelrecords.Repository
	runner    *cascade.Runner
	batchSize int
	actor     auth.Actor
}

// NewLedgerReconcileJob constructs the reconcile job.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (*LedgerReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("fuel record repository required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("cascade runner required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &LedgerReconcileJob{
		logg:      params.Logger,
		ledgers:   params.Ledgers,
		runner:    params.Runner,
		batchSize: batch,
		actor:     auth.SystemActor(),
	}, nil
}

func (j *LedgerReconcileJob) Name() string { return "ledger-reconcile" }

type reconcileStats struct {
	scanned   int
	updated   int
	unlocked  int
	completed int
	promoted  int
	resolved  int
	busy      int
	failed    int
}

func (j *LedgerReconcileJob) Run(ctx context.Context) error {
	records, err := j.ledgers.ListForReconcile(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list fuel records for reconcile: %w", err)
	}

	var (
		errs  error
		stats reconcileStats
	)
	for _, rec := range records {
		stats.scanned++
		id := rec.ID
		res, err := j.runner.Run(ctx, j.actor, []string{rec.TruckNo}, func(ctx context.Context, tx *gorm.DB) (cascade.Result, error) {
			repo := j.ledgers.WithTx(tx)
			current, err := repo.FindByID(ctx, id)
			if err != nil {
				return cascade.Result{}, err
			}
			return j.runner.Coordinator().Reconcile(ctx, cascade.Store{Ledgers: repo}, current, j.actor)
		})
		switch {
		case pkgerrors.Is(err, pkgerrors.CodeConflict):
			// truck busy; the next cycle picks it up
			stats.busy++
			continue
		case err != nil:
			stats.failed++
			errs = multierr.Append(errs, fmt.Errorf("reconcile fuel record %s: %w", id, err))
			continue
		}
		if res.LedgerUpdated {
			stats.updated++
		}
		if res.Unlocked {
			stats.unlocked++
		}
		stats.completed += res.JourneysCompleted
		stats.promoted += res.JourneysPromoted
		stats.resolved += res.NotificationsResolved
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":   stats.scanned,
		"updated":   stats.updated,
		"unlocked":  stats.unlocked,
		"completed": stats.completed,
		"promoted":  stats.promoted,
		"resolved":  stats.resolved,
		"busy":      stats.busy,
		"failed":    stats.failed,
	})
	j.logg.Info(logCtx, "ledger reconcile complete")
	return errs
}

// Reconcile runs one pass outside the schedule.
func (j *LedgerReconcileJob) Reconcile(ctx context.Context) error {
	return j.Run(ctx)
}

package cascade

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/journeys"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
)

// activeTruckIndex is the partial unique index allowing one active ledger per truck.
const activeTruckIndex = "ux_fuel_records_active_truck"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type truckLocker interface {
	Acquire(ctx context.Context, trucks ...string) (journeys.Release, error)
}

// Unit is the transactional part of a command. It runs once per attempt with
// a fresh transaction.
type Unit func(ctx context.Context, tx *gorm.DB) (Result, error)

// Runner executes cascade commands as serialized units of work: truck locks
// are held across the transaction, journey events are emitted in it, and side
// effects are drained once it commits.
type Runner struct {
	coord       *Coordinator
	lock        truckLocker
	tx          txRunner
	outbox      outboxPublisher
	procurement Procurement
	dispatcher  Dispatcher
	logg        *logger.Logger
}

// NewRunner wires the unit-of-work dependencies.
func NewRunner(coord *Coordinator, lock truckLocker, tx txRunner, outbox outboxPublisher, procurement Procurement, dispatcher Dispatcher, logg *logger.Logger) (*Runner, error) {
	if coord == nil {
		return nil, errors.New("cascade coordinator required")
	}
	if lock == nil {
		return nil, errors.New("truck lock required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &Runner{
		coord:       coord,
		lock:        lock,
		tx:          tx,
		outbox:      outbox,
		procurement: procurement,
		dispatcher:  dispatcher,
		logg:        logg,
	}, nil
}

// Coordinator exposes the commands the runner drains for.
func (r *Runner) Coordinator() *Coordinator {
	return r.coord
}

// Run holds the truck locks, runs the unit in a transaction and drains its
// effects. A unit that loses the one-active-ledger race is retried once; the
// retry observes the winner and queues behind it.
func (r *Runner) Run(ctx context.Context, actor auth.Actor, trucks []string, unit Unit) (Result, error) {
	release, err := r.lock.Acquire(ctx, trucks...)
	if err != nil {
		return Result{}, err
	}
	defer release(context.WithoutCancel(ctx))

	res, err := r.attempt(ctx, actor, unit)
	if err != nil && db.IsUniqueViolation(err, activeTruckIndex) {
		r.coord.warn(ctx, "active ledger race lost, retrying unit of work")
		res, err = r.attempt(ctx, actor, unit)
	}
	if err != nil {
		return Result{}, err
	}

	r.coord.Drain(ctx, &res, r.procurement, r.dispatcher)
	return res, nil
}

func (r *Runner) attempt(ctx context.Context, actor auth.Actor, unit Unit) (Result, error) {
	var res Result
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		out, err := unit(ctx, tx)
		if err != nil {
			return err
		}
		for _, event := range out.Events(actor) {
			if err := r.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		res = out
		return nil
	})
	return res, err
}

// Events returns the journey transition events of the result.
func (r Result) Events(actor auth.Actor) []outbox.DomainEvent {
	return r.Journey.Events(&outbox.ActorRef{Username: actor.Username, Role: string(actor.Role)})
}

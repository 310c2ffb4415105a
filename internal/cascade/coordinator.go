// Package cascade keeps fuel records and LPO entries consistent with the
// delivery orders they derive from. Each command mutates ledgers inside the
// caller's unit of work and returns the best-effort side effects separately.
package cascade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/internal/fuel"
	"github.com/angelmondragon/fleetops-backend/internal/journeys"
	"github.com/angelmondragon/fleetops-backend/internal/lpo"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
)

// Ledgers is the fuel record store used by cascades.
type Ledgers interface {
	journeys.Ledgers
	FindByGoingDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error)
	FindByReturnDONumber(ctx context.Context, doNumber string) (*models.FuelRecord, error)
	FindReturnCandidate(ctx context.Context, truckNo string) (*models.FuelRecord, error)
}

// Orders resolves the going order when a return leg is detached without a snapshot.
type Orders interface {
	FindByDONumber(ctx context.Context, orderType enums.OrderType, doNumber string) (*models.DeliveryOrder, error)
}

// ConfigLookup resolves configured route and truck-batch volumes.
type ConfigLookup interface {
	TotalLiters(ctx context.Context, origin, destination string) (decimal.Decimal, bool, error)
	ExtraLiters(ctx context.Context, truckNo, destination string) (decimal.Decimal, bool, error)
}

// Procurement applies order changes to LPO entries.
type Procurement interface {
	UpdateByDONumber(ctx context.Context, doNumber string, changes lpo.Changes) (int64, error)
	SoftDeleteByDONumber(ctx context.Context, doNumber, deletedBy, reason string) (int64, error)
}

// Dispatcher creates and resolves notifications.
type Dispatcher interface {
	Request(ctx context.Context, req notifications.Request) (bool, error)
	Resolve(ctx context.Context, res notifications.Resolution) (int, error)
}

// Store is the set of repositories bound to one unit of work.
type Store struct {
	Ledgers Ledgers
	Orders  Orders
}

// ProcurementChange is a pending LPO update or cancellation for one DO number.
type ProcurementChange struct {
	DONumber string
	Update   *lpo.Changes
	Cancel   bool
	By       string
	Reason   string
}

// Effects are the best-effort side effects of a command, applied by Drain
// after the primary mutation commits.
type Effects struct {
	Procurement   []ProcurementChange
	Notifications []notifications.Request
	Resolutions   []notifications.Resolution
}

// Result summarizes what a command changed besides the order itself.
type Result struct {
	LedgerID        *uuid.UUID `json:"ledgerId,omitempty"`
	LedgerCreated   bool       `json:"ledgerCreated"`
	LedgerUpdated   bool       `json:"ledgerUpdated"`
	LedgerCancelled bool       `json:"ledgerCancelled"`
	Queued          bool       `json:"queued"`
	QueueOrder      int        `json:"queueOrder,omitempty"`
	Locked          bool       `json:"locked"`
	Unlocked        bool       `json:"unlocked"`
	Linked          bool       `json:"linked"`
	AlreadyLinked   bool       `json:"alreadyLinked"`
	Unlinked        bool       `json:"unlinked"`
	ReturnDetached  bool       `json:"returnDetached"`

	JourneysCompleted int `json:"journeysCompleted"`
	JourneysPromoted  int `json:"journeysPromoted"`

	LPOEntriesUpdated     int64 `json:"lpoEntriesUpdated"`
	LPOEntriesCancelled   int64 `json:"lpoEntriesCancelled"`
	NotificationsRaised   int   `json:"notificationsRaised"`
	NotificationsResolved int   `json:"notificationsResolved"`

	Journey journeys.Transition `json:"-"`
	Effects Effects             `json:"-"`
}

func (r *Result) trackLedger(record *models.FuelRecord) {
	id := record.ID
	r.LedgerID = &id
}

func (r *Result) mergeJourney(tr journeys.Transition) {
	r.Journey.Merge(tr)
	r.JourneysCompleted = len(r.Journey.Completed)
	r.JourneysPromoted = len(r.Journey.Promoted)
	if tr.Queued {
		r.Queued = true
		r.QueueOrder = tr.QueueOrder
	}
}

// Coordinator runs the cascade commands.
type Coordinator struct {
	journeys *journeys.Manager
	config   ConfigLookup
	logg     *logger.Logger
	metrics  *metrics.JourneyMetrics
	now      func() time.Time
}

// NewCoordinator wires cascade dependencies.
func NewCoordinator(manager *journeys.Manager, config ConfigLookup, logg *logger.Logger, m *metrics.JourneyMetrics) (*Coordinator, error) {
	if manager == nil {
		return nil, errors.New("journey manager required")
	}
	if config == nil {
		return nil, errors.New("config lookup required")
	}
	return &Coordinator{
		journeys: manager,
		config:   config,
		logg:     logg,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// goingEndpoints returns the going leg of the ledger. Once a return leg is
// linked, the going leg lives in the snapshot fields.
func goingEndpoints(record *models.FuelRecord) (string, string) {
	if record.ReturnDONumber != nil && record.OriginalGoingFrom != nil && record.OriginalGoingTo != nil {
		return *record.OriginalGoingFrom, *record.OriginalGoingTo
	}
	return record.From, record.To
}

func setGoingEndpoints(record *models.FuelRecord, from, to string) {
	if record.ReturnDONumber != nil && record.OriginalGoingFrom != nil && record.OriginalGoingTo != nil {
		record.OriginalGoingFrom = &from
		record.OriginalGoingTo = &to
		return
	}
	record.From = from
	record.To = to
}

// resolveRoute re-reads the going route volume and rebuilds totalLiters from
// it plus any linked return volume.
func (c *Coordinator) resolveRoute(ctx context.Context, record *models.FuelRecord) error {
	from, to := goingEndpoints(record)
	liters, ok, err := c.config.TotalLiters(ctx, from, to)
	if err != nil {
		return err
	}
	if ok {
		record.RouteLiters = fuel.Liters(liters)
	} else {
		record.RouteLiters = fuel.Missing()
	}
	recomposeTotal(record)
	return nil
}

// resolveReturnRoute re-reads the linked return leg volume for the ledger's
// current from/to. A miss nulls totalLiters so the ledger locks until the
// route is configured.
func (c *Coordinator) resolveReturnRoute(ctx context.Context, record *models.FuelRecord) error {
	previous := record.ReturnRouteLiters
	liters, ok, err := c.config.TotalLiters(ctx, record.From, record.To)
	if err != nil {
		return err
	}
	if !ok {
		record.ReturnRouteLiters = fuel.Missing()
		record.TotalLiters = fuel.Missing()
		return nil
	}
	record.ReturnRouteLiters = fuel.Liters(liters)
	switch {
	case record.RouteLiters.Valid:
		recomposeTotal(record)
	case record.TotalLiters.Valid:
		base := record.TotalLiters.Decimal
		if previous.Valid {
			base = base.Sub(previous.Decimal)
		}
		record.TotalLiters = fuel.Liters(base.Add(liters))
	}
	return nil
}

func recomposeTotal(record *models.FuelRecord) {
	if !record.RouteLiters.Valid {
		record.TotalLiters = fuel.Missing()
		return
	}
	total := record.RouteLiters.Decimal
	if record.ReturnRouteLiters.Valid {
		total = total.Add(record.ReturnRouteLiters.Decimal)
	}
	record.TotalLiters = fuel.Liters(total)
}

func (c *Coordinator) resolveExtra(ctx context.Context, record *models.FuelRecord) error {
	_, to := goingEndpoints(record)
	liters, ok, err := c.config.ExtraLiters(ctx, record.TruckNo, to)
	if err != nil {
		return err
	}
	if ok {
		record.ExtraLiters = fuel.Liters(liters)
	} else {
		record.ExtraLiters = fuel.Missing()
	}
	return nil
}

// settle derives lock state and balance from the current snapshot, persists
// the record, queues lock notifications or resolutions, and advances the queue.
func (c *Coordinator) settle(ctx context.Context, st Store, record *models.FuelRecord, before lockSnapshot, actor auth.Actor, res *Result) error {
	fuel.ApplyLockState(record)
	fuel.Recompute(record)
	if err := st.Ledgers.Save(ctx, record); err != nil {
		return err
	}
	res.trackLedger(record)
	res.LedgerUpdated = true
	res.Locked = record.IsLocked

	switch {
	case record.IsLocked && (!before.locked || before.reason != record.PendingConfigReason):
		c.metrics.IncLock(string(record.PendingConfigReason))
		res.Effects.Notifications = append(res.Effects.Notifications, notifications.LockRequest(record, actor))
	case !record.IsLocked && before.locked:
		res.Unlocked = true
		res.Effects.Resolutions = append(res.Effects.Resolutions, notifications.LedgerResolution(record.ID, actor))
	}

	tr, err := c.journeys.Evaluate(ctx, st.Ledgers, record)
	if err != nil {
		return err
	}
	res.mergeJourney(tr)
	return nil
}

type lockSnapshot struct {
	locked bool
	reason enums.PendingConfigReason
}

func snapshotLock(record *models.FuelRecord) lockSnapshot {
	return lockSnapshot{locked: record.IsLocked, reason: record.PendingConfigReason}
}

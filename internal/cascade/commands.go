package cascade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetops-backend/internal/fuel"
	"github.com/angelmondragon/fleetops-backend/internal/lpo"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
)

// ApplyCreate opens a ledger for a going order and links a return order to
// an open ledger. Special orders never touch the ledger.
func (c *Coordinator) ApplyCreate(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor) (Result, error) {
	switch {
	case order.IsGoingLeg():
		return c.openLedger(ctx, st, order, actor)
	case order.IsReturnLeg():
		return c.RelinkReturn(ctx, st, order, actor)
	default:
		return Result{}, nil
	}
}

func (c *Coordinator) openLedger(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor) (Result, error) {
	date := order.CreatedAt
	if date.IsZero() {
		date = c.now()
	}
	record := &models.FuelRecord{
		TruckNo:       order.TruckNo,
		GoingDONumber: order.DONumber,
		Date:          date,
		From:          order.LoadingPoint,
		To:            order.Destination,
		CreatedBy:     actor.Username,
	}
	if err := c.resolveRoute(ctx, record); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve route liters")
	}
	if err := c.resolveExtra(ctx, record); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve truck batch liters")
	}
	fuel.ApplyLockState(record)

	tr, err := c.journeys.Place(ctx, st.Ledgers, record)
	if err != nil {
		return Result{}, err
	}

	res := Result{LedgerCreated: true, Locked: record.IsLocked}
	res.trackLedger(record)
	res.mergeJourney(tr)
	if record.IsLocked {
		c.metrics.IncLock(string(record.PendingConfigReason))
		res.Effects.Notifications = append(res.Effects.Notifications, notifications.LockRequest(record, actor))
	}
	return res, nil
}

// RelinkReturn attaches a return order to the truck's open ledger. Calling it
// for an order that is already linked returns the existing link unchanged.
func (c *Coordinator) RelinkReturn(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor) (Result, error) {
	if !order.IsReturnLeg() {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "only EXPORT DO orders can be linked to a fuel record")
	}
	if order.IsCancelled {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be linked")
	}

	existing, err := st.Ledgers.FindByReturnDONumber(ctx, order.DONumber)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find linked fuel record")
	}
	if existing != nil {
		res := Result{Linked: true, AlreadyLinked: true, Locked: existing.IsLocked}
		res.trackLedger(existing)
		res.Effects.Resolutions = append(res.Effects.Resolutions, notifications.UnlinkedReturnResolution(order.ID, actor))
		return res, nil
	}

	record, err := st.Ledgers.FindReturnCandidate(ctx, order.TruckNo)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find fuel record for return leg")
	}
	if record == nil {
		res := Result{Unlinked: true}
		res.Effects.Notifications = append(res.Effects.Notifications, notifications.UnlinkedReturnRequest(order, actor))
		return res, nil
	}

	before := snapshotLock(record)
	doNumber := order.DONumber
	goingFrom, goingTo := record.From, record.To
	record.ReturnDONumber = &doNumber
	record.OriginalGoingFrom = &goingFrom
	record.OriginalGoingTo = &goingTo
	record.From = order.LoadingPoint
	record.To = order.Destination

	liters, ok, err := c.config.TotalLiters(ctx, order.LoadingPoint, order.Destination)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve return route liters")
	}
	if ok {
		record.ReturnRouteLiters = fuel.Liters(liters)
		if record.TotalLiters.Valid {
			record.TotalLiters = fuel.Liters(record.TotalLiters.Decimal.Add(liters))
		}
	}

	res := Result{Linked: true}
	if err := c.settle(ctx, st, record, before, actor, &res); err != nil {
		return Result{}, err
	}
	res.Effects.Resolutions = append(res.Effects.Resolutions, notifications.UnlinkedReturnResolution(order.ID, actor))
	return res, nil
}

// ApplyEdit propagates truck, destination and loading point changes. IMPORT
// edits move the going leg; EXPORT edits move the linked return leg.
func (c *Coordinator) ApplyEdit(ctx context.Context, st Store, before, after *models.DeliveryOrder, actor auth.Actor) (Result, error) {
	truckChanged := before.TruckNo != after.TruckNo
	destChanged := before.Destination != after.Destination
	loadingChanged := before.LoadingPoint != after.LoadingPoint

	res := Result{}
	if truckChanged || destChanged {
		changes := lpo.Changes{}
		if truckChanged {
			truck := after.TruckNo
			changes.TruckNo = &truck
		}
		if destChanged {
			dest := after.Destination
			changes.Destinations = &dest
		}
		res.Effects.Procurement = append(res.Effects.Procurement, ProcurementChange{
			DONumber: after.DONumber,
			Update:   &changes,
			By:       actor.Username,
		})
	}
	if !truckChanged && !destChanged && !loadingChanged {
		return res, nil
	}

	var err error
	switch {
	case after.IsGoingLeg():
		err = c.editGoing(ctx, st, after, truckChanged, destChanged || loadingChanged, actor, &res)
	case after.IsReturnLeg():
		err = c.editReturn(ctx, st, after, truckChanged, destChanged || loadingChanged, actor, &res)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (c *Coordinator) editGoing(ctx context.Context, st Store, order *models.DeliveryOrder, truckChanged, legChanged bool, actor auth.Actor, res *Result) error {
	record, err := st.Ledgers.FindByGoingDONumber(ctx, order.DONumber)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find fuel record")
	}
	if record == nil || record.IsCancelled {
		return nil
	}
	before := snapshotLock(record)

	if legChanged {
		setGoingEndpoints(record, order.LoadingPoint, order.Destination)
		if err := c.resolveRoute(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve route liters")
		}
	}
	if truckChanged {
		tr, err := c.journeys.Move(ctx, st.Ledgers, record, order.TruckNo)
		if err != nil {
			return err
		}
		res.mergeJourney(tr)
	}
	if !record.ExtraLiters.Valid {
		if err := c.resolveExtra(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve truck batch liters")
		}
	}
	return c.settle(ctx, st, record, before, actor, res)
}

func (c *Coordinator) editReturn(ctx context.Context, st Store, order *models.DeliveryOrder, truckChanged, legChanged bool, actor auth.Actor, res *Result) error {
	record, err := st.Ledgers.FindByReturnDONumber(ctx, order.DONumber)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find linked fuel record")
	}
	if record == nil {
		if !truckChanged || order.IsCancelled {
			return nil
		}
		linked, err := c.RelinkReturn(ctx, st, order, actor)
		if err != nil {
			return err
		}
		mergeResult(res, linked)
		return nil
	}
	if record.IsCancelled {
		return nil
	}
	before := snapshotLock(record)

	if legChanged {
		record.From = order.LoadingPoint
		record.To = order.Destination
		if err := c.resolveReturnRoute(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve return route liters")
		}
	}
	if truckChanged {
		tr, err := c.journeys.Move(ctx, st.Ledgers, record, order.TruckNo)
		if err != nil {
			return err
		}
		res.mergeJourney(tr)
	}
	return c.settle(ctx, st, record, before, actor, res)
}

// ApplyCancel cascades an order cancellation. Cancelling the going order is
// terminal for the ledger; cancelling the return order only detaches the
// return leg.
func (c *Coordinator) ApplyCancel(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor, reason string) (Result, error) {
	res := Result{}
	res.Effects.Procurement = append(res.Effects.Procurement, ProcurementChange{
		DONumber: order.DONumber,
		Cancel:   true,
		By:       actor.Username,
		Reason:   reason,
	})

	var err error
	switch {
	case order.IsGoingLeg():
		err = c.cancelGoing(ctx, st, order, actor, reason, &res)
	case order.IsReturnLeg():
		err = c.cancelReturn(ctx, st, order, actor, &res)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (c *Coordinator) cancelGoing(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor, reason string, res *Result) error {
	record, err := st.Ledgers.FindByGoingDONumber(ctx, order.DONumber)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find fuel record")
	}
	if record == nil || record.IsCancelled {
		return nil
	}

	now := c.now()
	by := actor.Username
	record.IsCancelled = true
	record.CancelledAt = &now
	record.CancelledBy = &by
	if reason != "" {
		r := reason
		record.CancellationReason = &r
	}

	switch record.JourneyStatus {
	case enums.JourneyStatusActive, enums.JourneyStatusQueued:
		tr, err := c.journeys.Withdraw(ctx, st.Ledgers, record)
		if err != nil {
			return err
		}
		res.mergeJourney(tr)
	default:
		if err := st.Ledgers.Save(ctx, record); err != nil {
			return err
		}
	}

	res.trackLedger(record)
	res.LedgerCancelled = true
	res.Effects.Resolutions = append(res.Effects.Resolutions, notifications.LedgerResolution(record.ID, actor))
	return nil
}

func (c *Coordinator) cancelReturn(ctx context.Context, st Store, order *models.DeliveryOrder, actor auth.Actor, res *Result) error {
	record, err := st.Ledgers.FindByReturnDONumber(ctx, order.DONumber)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find linked fuel record")
	}
	if record == nil {
		res.Effects.Resolutions = append(res.Effects.Resolutions, notifications.UnlinkedReturnResolution(order.ID, actor))
		return nil
	}
	before := snapshotLock(record)

	switch {
	case record.OriginalGoingFrom != nil && record.OriginalGoingTo != nil:
		record.From = *record.OriginalGoingFrom
		record.To = *record.OriginalGoingTo
	default:
		going, err := st.Orders.FindByDONumber(ctx, enums.OrderTypeDO, record.GoingDONumber)
		switch {
		case err != nil:
			c.warn(ctx, fmt.Sprintf("going order lookup failed, keeping current legs: %v", err))
		case going != nil:
			record.From = going.LoadingPoint
			record.To = going.Destination
		}
	}
	record.ReturnDONumber = nil
	record.OriginalGoingFrom = nil
	record.OriginalGoingTo = nil
	record.Checkpoints.ClearReturnLeg()
	switch {
	case record.RouteLiters.Valid:
		record.ReturnRouteLiters = fuel.Missing()
		recomposeTotal(record)
	case record.ReturnRouteLiters.Valid && record.TotalLiters.Valid:
		record.TotalLiters = fuel.Liters(record.TotalLiters.Decimal.Sub(record.ReturnRouteLiters.Decimal))
	}
	record.ReturnRouteLiters = fuel.Missing()

	res.ReturnDetached = true
	return c.settle(ctx, st, record, before, actor, res)
}

// LedgerPatch is a manual fuel record edit. Nil volumes are left unchanged;
// checkpoints are keyed by their JSON names.
type LedgerPatch struct {
	TotalLiters *decimal.Decimal
	ExtraLiters *decimal.Decimal
	Checkpoints map[string]decimal.Decimal
}

// ApplyLedgerUpdate applies a manual edit, unlocks the ledger once both
// volumes are present, and advances the journey queue.
func (c *Coordinator) ApplyLedgerUpdate(ctx context.Context, st Store, record *models.FuelRecord, patch LedgerPatch, actor auth.Actor) (Result, error) {
	if record.IsCancelled {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "fuel record is cancelled")
	}
	before := snapshotLock(record)

	if patch.TotalLiters != nil {
		record.TotalLiters = fuel.Liters(*patch.TotalLiters)
	}
	if patch.ExtraLiters != nil {
		record.ExtraLiters = fuel.Liters(*patch.ExtraLiters)
	}
	for name, value := range patch.Checkpoints {
		if !record.Checkpoints.Set(name, value) {
			return Result{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown checkpoint %q", name))
		}
	}

	res := Result{}
	if err := c.settle(ctx, st, record, before, actor, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Reconcile re-resolves missing configuration on a ledger and brings its
// balance, lock and journey state up to date. Re-running it converges.
func (c *Coordinator) Reconcile(ctx context.Context, st Store, record *models.FuelRecord, actor auth.Actor) (Result, error) {
	res := Result{}
	if record.IsCancelled {
		return res, nil
	}
	before := snapshotLock(record)

	if !record.TotalLiters.Valid {
		// a configured going route with a null total means the return leg was
		// edited onto an unconfigured route
		waitingOnReturn := record.ReturnDONumber != nil && record.RouteLiters.Valid && !record.ReturnRouteLiters.Valid
		if record.ReturnDONumber != nil && !record.ReturnRouteLiters.Valid {
			liters, ok, err := c.config.TotalLiters(ctx, record.From, record.To)
			if err != nil {
				return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve return route liters")
			}
			if ok {
				record.ReturnRouteLiters = fuel.Liters(liters)
				waitingOnReturn = false
			}
		}
		if err := c.resolveRoute(ctx, record); err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve route liters")
		}
		if waitingOnReturn {
			record.TotalLiters = fuel.Missing()
		}
	}
	if !record.ExtraLiters.Valid {
		if err := c.resolveExtra(ctx, record); err != nil {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve truck batch liters")
		}
	}

	lockChanged := fuel.LockReason(record) != before.reason
	balanceChanged := !fuel.Balance(record).Equal(record.Balance)
	if lockChanged || balanceChanged {
		if err := c.settle(ctx, st, record, before, actor, &res); err != nil {
			return Result{}, err
		}
	} else {
		tr, err := c.journeys.Evaluate(ctx, st.Ledgers, record)
		if err != nil {
			return Result{}, err
		}
		res.trackLedger(record)
		res.Locked = record.IsLocked
		res.mergeJourney(tr)
	}
	return res, nil
}

func mergeResult(dst *Result, src Result) {
	if src.LedgerID != nil {
		dst.LedgerID = src.LedgerID
	}
	dst.LedgerUpdated = dst.LedgerUpdated || src.LedgerUpdated
	dst.Linked = dst.Linked || src.Linked
	dst.AlreadyLinked = dst.AlreadyLinked || src.AlreadyLinked
	dst.Unlinked = dst.Unlinked || src.Unlinked
	dst.Locked = dst.Locked || src.Locked
	dst.Unlocked = dst.Unlocked || src.Unlocked
	dst.mergeJourney(src.Journey)
	dst.Effects.Procurement = append(dst.Effects.Procurement, src.Effects.Procurement...)
	dst.Effects.Notifications = append(dst.Effects.Notifications, src.Effects.Notifications...)
	dst.Effects.Resolutions = append(dst.Effects.Resolutions, src.Effects.Resolutions...)
}

func (c *Coordinator) warn(ctx context.Context, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(ctx, msg)
}

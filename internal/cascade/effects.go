package cascade

import (
	"context"
	"fmt"
)

const (
	effectProcurementUpdate = "procurement_update"
	effectProcurementCancel = "procurement_cancel"
	effectNotify            = "notification_request"
	effectResolve           = "notification_resolve"
)

// Drain applies the result's side effects one by one. Failures are logged
// and counted, never returned, and leave the primary mutation in place.
func (c *Coordinator) Drain(ctx context.Context, res *Result, procurement Procurement, dispatcher Dispatcher) {
	if res == nil {
		return
	}
	effects := res.Effects
	res.Effects = Effects{}

	if procurement != nil {
		for _, change := range effects.Procurement {
			c.applyProcurement(ctx, res, procurement, change)
		}
	}
	if dispatcher == nil {
		return
	}
	for _, req := range effects.Notifications {
		created, err := dispatcher.Request(ctx, req)
		if err != nil {
			c.sideEffectFailed(ctx, effectNotify, req.RelatedID.String(), err)
			continue
		}
		if created {
			res.NotificationsRaised++
		}
	}
	for _, resolution := range effects.Resolutions {
		n, err := dispatcher.Resolve(ctx, resolution)
		if err != nil {
			c.sideEffectFailed(ctx, effectResolve, resolution.RelatedID.String(), err)
			continue
		}
		res.NotificationsResolved += n
	}
}

func (c *Coordinator) applyProcurement(ctx context.Context, res *Result, procurement Procurement, change ProcurementChange) {
	if change.Cancel {
		n, err := procurement.SoftDeleteByDONumber(ctx, change.DONumber, change.By, change.Reason)
		if err != nil {
			c.sideEffectFailed(ctx, effectProcurementCancel, change.DONumber, err)
			return
		}
		res.LPOEntriesCancelled += n
		return
	}
	if change.Update == nil {
		return
	}
	n, err := procurement.UpdateByDONumber(ctx, change.DONumber, *change.Update)
	if err != nil {
		c.sideEffectFailed(ctx, effectProcurementUpdate, change.DONumber, err)
		return
	}
	res.LPOEntriesUpdated += n
}

func (c *Coordinator) sideEffectFailed(ctx context.Context, effect, ref string, err error) {
	c.metrics.IncSideEffectFailure(effect)
	if c.logg == nil {
		return
	}
	logCtx := c.logg.WithFields(ctx, map[string]any{"effect": effect, "ref": ref})
	c.logg.Warn(logCtx, fmt.Sprintf("cascade side effect skipped: %v", err))
}

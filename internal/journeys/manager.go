// Package journeys runs the per-truck journey queue: one active fuel record
// per truck, the rest queued in FIFO order.
package journeys

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/internal/fuel"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
)

// Ledgers is the transaction-scoped fuel record store the manager works against.
type Ledgers interface {
	Create(ctx context.Context, record *models.FuelRecord) error
	Save(ctx context.Context, record *models.FuelRecord) error
	FindActiveByTruck(ctx context.Context, truckNo string) (*models.FuelRecord, error)
	ListQueuedByTruck(ctx context.Context, truckNo string) ([]models.FuelRecord, error)
}

// Transition reports the queue changes caused by one call.
type Transition struct {
	Queued     bool
	QueueOrder int
	Completed  []models.FuelRecord
	Promoted   []Promotion
	Renumbered int
}

// Promotion is a queued record that took over the truck, together with the
// record it replaced.
type Promotion struct {
	Record     models.FuelRecord
	PreviousID *uuid.UUID
}

// Merge folds another transition into t.
func (t *Transition) Merge(other Transition) {
	t.Completed = append(t.Completed, other.Completed...)
	t.Promoted = append(t.Promoted, other.Promoted...)
	t.Renumbered += other.Renumbered
}

// Changed reports whether any record changed status.
func (t Transition) Changed() bool {
	return len(t.Completed) > 0 || len(t.Promoted) > 0 || t.Renumbered > 0
}

type Manager struct {
	classifier fuel.DestinationClassifier
	metrics    *metrics.JourneyMetrics
	now        func() time.Time
}

func NewManager(classifier fuel.DestinationClassifier, m *metrics.JourneyMetrics) *Manager {
	return &Manager{
		classifier: classifier,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Classifier exposes the destination classifier used for completion checks.
func (m *Manager) Classifier() fuel.DestinationClassifier {
	return m.classifier
}

// Place inserts a new fuel record into its truck's queue. A truck without an
// active record gets the new one as active, otherwise it is queued at the tail.
func (m *Manager) Place(ctx context.Context, ledgers Ledgers, record *models.FuelRecord) (Transition, error) {
	if err := m.assign(ctx, ledgers, record); err != nil {
		return Transition{}, err
	}
	fuel.Recompute(record)
	if err := ledgers.Create(ctx, record); err != nil {
		return Transition{}, err
	}
	m.metrics.IncTransition(string(record.JourneyStatus))
	return m.placement(record), nil
}

// Move re-homes a record onto another truck's queue and closes the gap it left
// behind on the previous truck.
func (m *Manager) Move(ctx context.Context, ledgers Ledgers, record *models.FuelRecord, newTruck string) (Transition, error) {
	oldTruck := record.TruckNo
	oldStatus := record.JourneyStatus
	if oldTruck == newTruck || oldStatus.IsTerminal() {
		record.TruckNo = newTruck
		return Transition{}, nil
	}

	record.TruckNo = newTruck
	if err := m.assign(ctx, ledgers, record); err != nil {
		return Transition{}, err
	}
	if err := ledgers.Save(ctx, record); err != nil {
		return Transition{}, err
	}
	out := m.placement(record)

	var (
		gap Transition
		err error
	)
	if oldStatus == enums.JourneyStatusActive {
		gap, err = m.promoteNext(ctx, ledgers, oldTruck, &record.ID)
	} else {
		gap, err = m.renumber(ctx, ledgers, oldTruck, nil)
	}
	if err != nil {
		return Transition{}, err
	}
	out.Merge(gap)
	return out, nil
}

// Evaluate completes an active record whose ledger has balanced out and
// promotes the next queued record. Promoted records are evaluated as well.
func (m *Manager) Evaluate(ctx context.Context, ledgers Ledgers, record *models.FuelRecord) (Transition, error) {
	out := Transition{}
	current := record
	for current != nil {
		if current.JourneyStatus != enums.JourneyStatusActive || !fuel.IsComplete(current, m.classifier) {
			return out, nil
		}

		now := m.now()
		current.JourneyStatus = enums.JourneyStatusCompleted
		current.CompletedAt = &now
		current.QueueOrder = nil
		current.QueuedBehindID = nil
		if err := ledgers.Save(ctx, current); err != nil {
			return out, fmt.Errorf("complete fuel record %s: %w", current.ID, err)
		}
		m.metrics.IncTransition(string(enums.JourneyStatusCompleted))
		out.Completed = append(out.Completed, *current)

		next, err := m.promoteNext(ctx, ledgers, current.TruckNo, &current.ID)
		if err != nil {
			return out, err
		}
		out.Merge(next)
		if len(next.Promoted) == 0 {
			return out, nil
		}
		promoted := next.Promoted[len(next.Promoted)-1].Record
		current = &promoted
	}
	return out, nil
}

// Withdraw takes a cancelled record out of the queue. A cancelled active
// record leaves the truck as terminally as a completed one, so the next queued
// record is promoted; cancelling a queued one closes the gap.
func (m *Manager) Withdraw(ctx context.Context, ledgers Ledgers, record *models.FuelRecord) (Transition, error) {
	prev := record.JourneyStatus
	record.JourneyStatus = enums.JourneyStatusCancelled
	record.QueueOrder = nil
	record.QueuedBehindID = nil
	if err := ledgers.Save(ctx, record); err != nil {
		return Transition{}, err
	}
	if prev != enums.JourneyStatusCancelled {
		m.metrics.IncTransition(string(enums.JourneyStatusCancelled))
	}

	switch prev {
	case enums.JourneyStatusActive:
		return m.promoteNext(ctx, ledgers, record.TruckNo, &record.ID)
	case enums.JourneyStatusQueued:
		active, err := ledgers.FindActiveByTruck(ctx, record.TruckNo)
		if err != nil {
			return Transition{}, err
		}
		var head *uuid.UUID
		if active != nil {
			head = &active.ID
		}
		return m.renumber(ctx, ledgers, record.TruckNo, head)
	default:
		return Transition{}, nil
	}
}

func (m *Manager) assign(ctx context.Context, ledgers Ledgers, record *models.FuelRecord) error {
	active, err := ledgers.FindActiveByTruck(ctx, record.TruckNo)
	if err != nil {
		return fmt.Errorf("find active fuel record: %w", err)
	}
	if active == nil || active.ID == record.ID {
		now := m.now()
		record.JourneyStatus = enums.JourneyStatusActive
		record.ActivatedAt = &now
		record.QueueOrder = nil
		record.QueuedBehindID = nil
		return nil
	}

	queued, err := ledgers.ListQueuedByTruck(ctx, record.TruckNo)
	if err != nil {
		return fmt.Errorf("list queued fuel records: %w", err)
	}
	position := 0
	behind := active.ID
	for _, q := range queued {
		if q.ID == record.ID {
			continue
		}
		position++
		behind = q.ID
	}
	order := position + 1
	record.JourneyStatus = enums.JourneyStatusQueued
	record.ActivatedAt = nil
	record.QueueOrder = &order
	record.QueuedBehindID = &behind
	return nil
}

func (m *Manager) placement(record *models.FuelRecord) Transition {
	if record.JourneyStatus != enums.JourneyStatusQueued || record.QueueOrder == nil {
		return Transition{}
	}
	return Transition{Queued: true, QueueOrder: *record.QueueOrder}
}

// promoteNext activates the lowest queued record of the truck, if any, and
// renumbers the remainder behind it.
func (m *Manager) promoteNext(ctx context.Context, ledgers Ledgers, truckNo string, previous *uuid.UUID) (Transition, error) {
	queued, err := ledgers.ListQueuedByTruck(ctx, truckNo)
	if err != nil {
		return Transition{}, fmt.Errorf("list queued fuel records: %w", err)
	}
	if len(queued) == 0 {
		return Transition{}, nil
	}
	sortQueue(queued)

	now := m.now()
	next := queued[0]
	next.JourneyStatus = enums.JourneyStatusActive
	next.ActivatedAt = &now
	next.QueueOrder = nil
	next.QueuedBehindID = nil
	if err := ledgers.Save(ctx, &next); err != nil {
		return Transition{}, fmt.Errorf("activate fuel record %s: %w", next.ID, err)
	}
	m.metrics.IncTransition(string(enums.JourneyStatusActive))

	out := Transition{Promoted: []Promotion{{Record: next, PreviousID: copyID(previous)}}}
	renumbered, err := m.applyOrder(ctx, ledgers, queued[1:], &next.ID)
	if err != nil {
		return Transition{}, err
	}
	out.Renumbered = renumbered
	return out, nil
}

// renumber rewrites the truck's queue to a dense 1..N sequence chained behind head.
func (m *Manager) renumber(ctx context.Context, ledgers Ledgers, truckNo string, head *uuid.UUID) (Transition, error) {
	queued, err := ledgers.ListQueuedByTruck(ctx, truckNo)
	if err != nil {
		return Transition{}, fmt.Errorf("list queued fuel records: %w", err)
	}
	sortQueue(queued)
	if head == nil {
		active, err := ledgers.FindActiveByTruck(ctx, truckNo)
		if err != nil {
			return Transition{}, err
		}
		if active != nil {
			head = &active.ID
		}
	}
	n, err := m.applyOrder(ctx, ledgers, queued, head)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Renumbered: n}, nil
}

func (m *Manager) applyOrder(ctx context.Context, ledgers Ledgers, queued []models.FuelRecord, head *uuid.UUID) (int, error) {
	changed := 0
	behind := head
	for i := range queued {
		rec := queued[i]
		order := i + 1
		if sameOrder(rec.QueueOrder, order) && sameID(rec.QueuedBehindID, behind) {
			id := rec.ID
			behind = &id
			continue
		}
		rec.QueueOrder = &order
		rec.QueuedBehindID = copyID(behind)
		if err := ledgers.Save(ctx, &rec); err != nil {
			return changed, fmt.Errorf("renumber fuel record %s: %w", rec.ID, err)
		}
		changed++
		id := rec.ID
		behind = &id
	}
	return changed, nil
}

func sortQueue(queued []models.FuelRecord) {
	sort.SliceStable(queued, func(i, j int) bool {
		a, b := queued[i].QueueOrder, queued[j].QueueOrder
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		}
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})
}

func sameOrder(current *int, want int) bool {
	return current != nil && *current == want
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

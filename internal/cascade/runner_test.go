package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/journeys"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
)

type fakeLock struct {
	acquired [][]string
	released int
	err      error
}

func (f *fakeLock) Acquire(_ context.Context, trucks ...string) (journeys.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired = append(f.acquired, trucks)
	return func(context.Context) { f.released++ }, nil
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestRunner(t *testing.T, h *harness, lock *fakeLock, tx *fakeTx, ob *recordingOutbox, dispatcher *fakeDispatcher) *Runner {
	t.Helper()
	runner, err := NewRunner(h.coord, lock, tx, ob, &fakeProcurement{}, dispatcher, nil)
	require.NoError(t, err)
	return runner
}

func TestRunnerEmitsJourneyEventsAndDrains(t *testing.T) {
	h := newHarness()
	lock := &fakeLock{}
	tx := &fakeTx{}
	ob := &recordingOutbox{}
	dispatcher := &fakeDispatcher{}
	runner := newTestRunner(t, h, lock, tx, ob, dispatcher)
	ctx := context.Background()

	first := h.create(t, h.order(enums.DirectionImport, "T100", "DAR", "ZAMBIA"))
	h.create(t, h.order(enums.DirectionImport, "T100", "DAR", "ZAMBIA"))

	res, err := runner.Run(ctx, clerk, []string{"T100"}, func(ctx context.Context, _ *gorm.DB) (Result, error) {
		rec := h.ledgers.get(*first.LedgerID)
		return h.coord.ApplyLedgerUpdate(ctx, h.store(), &rec, LedgerPatch{Checkpoints: map[string]decimal.Decimal{
			"zambiaGoing": liters(900),
			"mbeyaReturn": liters(150),
		}}, clerk)
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"T100"}}, lock.acquired)
	assert.Equal(t, 1, lock.released)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, ob.events, 2)
	assert.Equal(t, enums.EventJourneyCompleted, ob.events[0].EventType)
	assert.Equal(t, enums.EventJourneyActivated, ob.events[1].EventType)
	assert.Equal(t, "jane", ob.events[0].Actor.Username)
	assert.Equal(t, 1, res.JourneysCompleted)
	assert.Empty(t, res.Effects.Resolutions, "effects are drained")
}

func TestRunnerRetriesLostActiveRaceOnce(t *testing.T) {
	h := newHarness()
	tx := &fakeTx{}
	runner := newTestRunner(t, h, &fakeLock{}, tx, &recordingOutbox{}, &fakeDispatcher{})

	attempts := 0
	res, err := runner.Run(context.Background(), clerk, []string{"T100"}, func(ctx context.Context, _ *gorm.DB) (Result, error) {
		attempts++
		if attempts == 1 {
			return Result{}, errors.New("UNIQUE constraint failed: fuel_records.truck_no")
		}
		return Result{LedgerCreated: true, Queued: true, QueueOrder: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, tx.calls)
	assert.True(t, res.Queued)
}

func TestRunnerDoesNotRetryOtherFailures(t *testing.T) {
	h := newHarness()
	tx := &fakeTx{}
	lock := &fakeLock{}
	runner := newTestRunner(t, h, lock, tx, &recordingOutbox{}, &fakeDispatcher{})

	_, err := runner.Run(context.Background(), clerk, []string{"T100"}, func(context.Context, *gorm.DB) (Result, error) {
		return Result{}, errStoreDown
	})
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1, lock.released)
}

func TestRunnerSurfacesBusyTruck(t *testing.T) {
	h := newHarness()
	tx := &fakeTx{}
	busy := pkgerrors.New(pkgerrors.CodeConflict, "truck T100 is busy")
	runner := newTestRunner(t, h, &fakeLock{err: busy}, tx, &recordingOutbox{}, &fakeDispatcher{})

	_, err := runner.Run(context.Background(), clerk, []string{"T100"}, func(context.Context, *gorm.DB) (Result, error) {
		t.Fatal("unit must not run without the truck lock")
		return Result{}, nil
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	assert.Zero(t, tx.calls)
}

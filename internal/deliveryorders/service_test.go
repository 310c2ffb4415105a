package deliveryorders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/internal/cascade"
	"github.com/angelmondragon/fleetops-backend/internal/fuel"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/internal/journeys"
	"github.com/angelmondragon/fleetops-backend/internal/lpo"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/internal/routeconfig"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox"
)

type sqliteTx struct {
	db *gorm.DB
}

func (s sqliteTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

type noopLock struct{}

func (noopLock) Acquire(context.Context, ...string) (journeys.Release, error) {
	return func(context.Context) {}, nil
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

var (
	clerk  = auth.Actor{Username: "jane", Role: enums.UserRoleClerk}
	driver = auth.Actor{Username: "ali", Role: enums.UserRoleDriver}
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	ledgers fuelrecords.Repository
	lpos    lpo.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.DeliveryOrder{},
		&models.FuelRecord{},
		&models.LPOEntry{},
		&models.Notification{},
		&models.RouteConfig{},
		&models.TruckBatchRule{},
	))

	dar := "DAR"
	ndola := "NDOLA"
	require.NoError(t, conn.Create(&models.RouteConfig{Origin: &dar, Destination: "ZAMBIA", TotalLiters: decimal.NewFromInt(1000), IsActive: true}).Error)
	require.NoError(t, conn.Create(&models.RouteConfig{Destination: "LUSAKA", TotalLiters: decimal.NewFromInt(1200), IsActive: true}).Error)
	require.NoError(t, conn.Create(&models.RouteConfig{Origin: &ndola, Destination: "DAR", TotalLiters: decimal.NewFromInt(900), IsActive: true}).Error)
	require.NoError(t, conn.Create(&models.TruckBatchRule{TruckSuffix: "100", ExtraLiters: decimal.NewFromInt(50)}).Error)
	require.NoError(t, conn.Create(&models.TruckBatchRule{TruckSuffix: "200", ExtraLiters: decimal.NewFromInt(60)}).Error)

	tx := sqliteTx{db: conn}
	ob := &recordingOutbox{}
	ledgers := fuelrecords.NewRepository(conn)
	lpos := lpo.NewRepository(conn)
	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(conn), tx, ob, nil)
	require.NoError(t, err)

	manager := journeys.NewManager(fuel.NewPatternClassifier([]string{"MSA", "MOMBASA"}), nil)
	coord, err := cascade.NewCoordinator(manager, routeconfig.NewLookup(routeconfig.NewRepository(conn)), nil, nil)
	require.NoError(t, err)
	runner, err := cascade.NewRunner(coord, noopLock{}, tx, ob, lpos, dispatcher, nil)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), ledgers, runner)
	require.NoError(t, err)
	return &fixture{db: conn, svc: svc, ledgers: ledgers, lpos: lpos}
}

func (f *fixture) create(t *testing.T, kind enums.OrderType, direction enums.Direction, truck, from, to string) *OrderResult {
	t.Helper()
	out, err := f.svc.CreateOrder(context.Background(), clerk, CreateOrderInput{
		OrderType:      kind,
		ImportOrExport: direction,
		TruckNo:        truck,
		LoadingPoint:   from,
		Destination:    to,
		Year:           2025,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) ledger(t *testing.T, res cascade.Result) *models.FuelRecord {
	t.Helper()
	require.NotNil(t, res.LedgerID)
	rec, err := f.ledgers.FindByID(context.Background(), *res.LedgerID)
	require.NoError(t, err)
	return rec
}

func (f *fixture) pending(t *testing.T, relatedID uuid.UUID) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, f.db.Where("related_id = ? AND status = ?", relatedID, enums.NotificationStatusPending).Find(&rows).Error)
	return rows
}

func strPtr(v string) *string { return &v }

func TestCreateOrderOpensAndQueuesLedgers(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, enums.OrderTypeDO, enums.DirectionImport, " t  100 ", "dar", "zambia")
	assert.Equal(t, "0001/25", first.Order.DONumber)
	assert.Equal(t, "T 100", first.Order.TruckNo)
	assert.True(t, first.Cascade.LedgerCreated)
	assert.False(t, first.Cascade.Locked)

	rec := f.ledger(t, first.Cascade)
	assert.Equal(t, enums.JourneyStatusActive, rec.JourneyStatus)
	assert.True(t, rec.TotalLiters.Decimal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, rec.ExtraLiters.Decimal.Equal(decimal.NewFromInt(50)))
	assert.True(t, rec.Balance.Equal(decimal.NewFromInt(1050)))

	second := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	assert.Equal(t, "0002/25", second.Order.DONumber)
	assert.True(t, second.Cascade.Queued)
	assert.Equal(t, 1, second.Cascade.QueueOrder)

	special := f.create(t, enums.OrderTypeSDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	assert.Equal(t, "SDO-0001/25", special.Order.DONumber, "special orders number separately")
	assert.False(t, special.Cascade.LedgerCreated)
}

func TestEditDestinationLocksThenUnlocks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 200", "DAR", "ZAMBIA")
	ledgerID := *created.Cascade.LedgerID

	locked, err := f.svc.EditOrder(ctx, clerk, created.Order.ID, EditOrderInput{Destination: strPtr("kolwezi")})
	require.NoError(t, err)
	assert.True(t, locked.Cascade.Locked)
	assert.Equal(t, 1, locked.Cascade.NotificationsRaised)
	require.Len(t, locked.Order.EditHistory, 1)
	assert.Equal(t, "destination", locked.Order.EditHistory[0].Field)
	assert.Equal(t, "ZAMBIA", locked.Order.EditHistory[0].OldValue)
	assert.Equal(t, "KOLWEZI", locked.Order.EditHistory[0].NewValue)

	rec := f.ledger(t, locked.Cascade)
	assert.False(t, rec.TotalLiters.Valid)
	assert.Equal(t, enums.PendingConfigMissingTotalLiters, rec.PendingConfigReason)
	pending := f.pending(t, ledgerID)
	require.Len(t, pending, 1)
	assert.Equal(t, enums.NotificationTypeMissingTotalLiters, pending[0].Type)

	fixed, err := f.svc.EditOrder(ctx, clerk, created.Order.ID, EditOrderInput{Destination: strPtr("LUSAKA")})
	require.NoError(t, err)
	assert.True(t, fixed.Cascade.Unlocked)
	assert.Equal(t, 1, fixed.Cascade.NotificationsResolved)
	assert.Empty(t, f.pending(t, ledgerID))
	assert.Len(t, fixed.Order.EditHistory, 2)

	rec = f.ledger(t, fixed.Cascade)
	assert.False(t, rec.IsLocked)
	assert.True(t, rec.Balance.Equal(decimal.NewFromInt(1260)))
}

func TestEditTruckMovesProcurementEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	require.NoError(t, f.lpos.Create(ctx, &models.LPOEntry{
		LPONo:        "LPO-1",
		DONumber:     created.Order.DONumber,
		TruckNo:      "T 100",
		Destinations: "ZAMBIA",
		Liters:       decimal.NewFromInt(300),
		Rate:         decimal.RequireFromString("1.25"),
	}))

	out, err := f.svc.EditOrder(ctx, clerk, created.Order.ID, EditOrderInput{TruckNo: strPtr("T 200")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Cascade.LPOEntriesUpdated)
	assert.Equal(t, "T 200", f.ledger(t, out.Cascade).TruckNo)

	entries, err := f.lpos.ListByDONumber(ctx, created.Order.DONumber)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T 200", entries[0].TruckNo)
}

func TestCancelReturnOrderRestoresGoingLeg(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	going := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	ret := f.create(t, enums.OrderTypeDO, enums.DirectionExport, "T 100", "NDOLA", "DAR")
	require.True(t, ret.Cascade.Linked)

	rec := f.ledger(t, ret.Cascade)
	assert.Equal(t, "NDOLA", rec.From)
	assert.True(t, rec.TotalLiters.Decimal.Equal(decimal.NewFromInt(1900)))

	out, err := f.svc.CancelOrder(ctx, clerk, ret.Order.ID, "  trip aborted ")
	require.NoError(t, err)
	assert.True(t, out.Order.IsCancelled)
	require.NotNil(t, out.Order.CancellationReason)
	assert.Equal(t, "trip aborted", *out.Order.CancellationReason)
	assert.True(t, out.Cascade.ReturnDetached)

	rec, err = f.ledgers.FindByID(ctx, *going.Cascade.LedgerID)
	require.NoError(t, err)
	assert.False(t, rec.IsCancelled)
	assert.Nil(t, rec.ReturnDONumber)
	assert.Equal(t, "DAR", rec.From)
	assert.Equal(t, "ZAMBIA", rec.To)
	assert.True(t, rec.TotalLiters.Decimal.Equal(decimal.NewFromInt(1000)))

	_, err = f.svc.CancelOrder(ctx, clerk, ret.Order.ID, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.EditOrder(ctx, clerk, ret.Order.ID, EditOrderInput{Destination: strPtr("LUSAKA")})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestCancelGoingOrderCancelsLedgerAndProcurement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	second := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	require.NoError(t, f.lpos.Create(ctx, &models.LPOEntry{
		LPONo:        "LPO-9",
		DONumber:     first.Order.DONumber,
		TruckNo:      "T 100",
		Destinations: "ZAMBIA",
		Liters:       decimal.NewFromInt(100),
		Rate:         decimal.NewFromInt(1),
	}))

	out, err := f.svc.CancelOrder(ctx, clerk, first.Order.ID, "duplicate")
	require.NoError(t, err)
	assert.True(t, out.Cascade.LedgerCancelled)
	assert.Equal(t, 1, out.Cascade.JourneysPromoted)
	assert.EqualValues(t, 1, out.Cascade.LPOEntriesCancelled)

	cancelled := f.ledger(t, first.Cascade)
	assert.True(t, cancelled.IsCancelled)
	promoted := f.ledger(t, second.Cascade)
	assert.Equal(t, enums.JourneyStatusActive, promoted.JourneyStatus)

	entries, err := f.lpos.ListByDONumber(ctx, first.Order.DONumber)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRelinkReturnOrderResolvesUnlinkedNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ret := f.create(t, enums.OrderTypeDO, enums.DirectionExport, "T 100", "NDOLA", "DAR")
	assert.True(t, ret.Cascade.Unlinked)
	assert.Equal(t, 1, ret.Cascade.NotificationsRaised)
	require.Len(t, f.pending(t, ret.Order.ID), 1)

	f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")

	linked, err := f.svc.RelinkReturnOrder(ctx, clerk, ret.Order.ID)
	require.NoError(t, err)
	assert.True(t, linked.Cascade.Linked)
	assert.Equal(t, 1, linked.Cascade.NotificationsResolved)
	assert.Empty(t, f.pending(t, ret.Order.ID))

	again, err := f.svc.RelinkReturnOrder(ctx, clerk, ret.Order.ID)
	require.NoError(t, err)
	assert.True(t, again.Cascade.AlreadyLinked)
	rec := f.ledger(t, again.Cascade)
	assert.True(t, rec.TotalLiters.Decimal.Equal(decimal.NewFromInt(1900)))
}

func TestRelinkRejectsImportOrder(t *testing.T) {
	f := newFixture(t)
	going := f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	_, err := f.svc.RelinkReturnOrder(context.Background(), clerk, going.Order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestOrderOperationsRejectBadCallers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateOrder(ctx, driver, CreateOrderInput{OrderType: enums.OrderTypeDO, ImportOrExport: enums.DirectionImport, TruckNo: "T1", LoadingPoint: "A", Destination: "B"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.CreateOrder(ctx, clerk, CreateOrderInput{OrderType: "XDO", ImportOrExport: enums.DirectionImport, TruckNo: "T1", LoadingPoint: "A", Destination: "B"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateOrder(ctx, clerk, CreateOrderInput{OrderType: enums.OrderTypeDO, ImportOrExport: enums.DirectionImport, TruckNo: "  ", LoadingPoint: "A", Destination: "B"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.EditOrder(ctx, clerk, uuid.New(), EditOrderInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.CancelOrder(ctx, clerk, uuid.New(), "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.svc.GetOrder(ctx, auth.Actor{}, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestListOrdersFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 100", "DAR", "ZAMBIA")
	f.create(t, enums.OrderTypeDO, enums.DirectionExport, "T 100", "NDOLA", "DAR")
	f.create(t, enums.OrderTypeDO, enums.DirectionImport, "T 200", "DAR", "ZAMBIA")

	orders, err := f.svc.ListOrders(ctx, driver, ListFilter{TruckNo: "t 100"})
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	exports, err := f.svc.ListOrders(ctx, driver, ListFilter{ImportOrExport: enums.DirectionExport})
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, enums.DirectionExport, exports[0].ImportOrExport)

	_, err = f.svc.ListOrders(ctx, driver, ListFilter{OrderType: "BAD"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

package cascade

import (
	"context"
	"errors"
	"sort"
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
)

type memoryLedgers struct {
	records map[uuid.UUID]models.FuelRecord
	clock   time.Time
}

func newMemoryLedgers() *memoryLedgers {
	return &memoryLedgers{
		records: map[uuid.UUID]models.FuelRecord{},
		clock:   time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *memoryLedgers) Create(_ context.Context, record *models.FuelRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m.clock = m.clock.Add(time.Minute)
	record.CreatedAt = m.clock
	m.records[record.ID] = *record
	return nil
}

func (m *memoryLedgers) Save(_ context.Context, record *models.FuelRecord) error {
	m.records[record.ID] = *record
	return nil
}

func (m *memoryLedgers) find(match func(models.FuelRecord) bool) *models.FuelRecord {
	var found []models.FuelRecord
	for _, rec := range m.records {
		if match(rec) {
			found = append(found, rec)
		}
	}
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	out := found[0]
	return &out
}

func (m *memoryLedgers) FindActiveByTruck(_ context.Context, truckNo string) (*models.FuelRecord, error) {
	return m.find(func(r models.FuelRecord) bool {
		return r.TruckNo == truckNo && r.JourneyStatus == enums.JourneyStatusActive
	}), nil
}

func (m *memoryLedgers) ListQueuedByTruck(_ context.Context, truckNo string) ([]models.FuelRecord, error) {
	var out []models.FuelRecord
	for _, rec := range m.records {
		if rec.TruckNo == truckNo && rec.JourneyStatus == enums.JourneyStatusQueued {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryLedgers) FindByGoingDONumber(_ context.Context, doNumber string) (*models.FuelRecord, error) {
	return m.find(func(r models.FuelRecord) bool { return r.GoingDONumber == doNumber }), nil
}

func (m *memoryLedgers) FindByReturnDONumber(_ context.Context, doNumber string) (*models.FuelRecord, error) {
	return m.find(func(r models.FuelRecord) bool {
		return r.ReturnDONumber != nil && *r.ReturnDONumber == doNumber
	}), nil
}

func (m *memoryLedgers) FindReturnCandidate(ctx context.Context, truckNo string) (*models.FuelRecord, error) {
	open := func(r models.FuelRecord) bool {
		return r.TruckNo == truckNo && r.ReturnDONumber == nil && !r.IsCancelled
	}
	if rec := m.find(func(r models.FuelRecord) bool { return open(r) && r.JourneyStatus == enums.JourneyStatusActive }); rec != nil {
		return rec, nil
	}
	return m.find(func(r models.FuelRecord) bool { return open(r) && r.JourneyStatus == enums.JourneyStatusQueued }), nil
}

func (m *memoryLedgers) get(id uuid.UUID) models.FuelRecord {
	return m.records[id]
}

type memoryOrders struct {
	byNumber map[string]*models.DeliveryOrder
	err      error
}

func (o *memoryOrders) FindByDONumber(_ context.Context, orderType enums.OrderType, doNumber string) (*models.DeliveryOrder, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.byNumber[string(orderType)+doNumber], nil
}

type fakeConfig struct {
	routes map[string]decimal.Decimal
	extras map[string]decimal.Decimal
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		routes: map[string]decimal.Decimal{},
		extras: map[string]decimal.Decimal{},
	}
}

func (f *fakeConfig) TotalLiters(_ context.Context, origin, destination string) (decimal.Decimal, bool, error) {
	if v, ok := f.routes[origin+"|"+destination]; ok {
		return v, true, nil
	}
	v, ok := f.routes["|"+destination]
	return v, ok, nil
}

func (f *fakeConfig) ExtraLiters(_ context.Context, truckNo, _ string) (decimal.Decimal, bool, error) {
	v, ok := f.extras[truckNo]
	return v, ok, nil
}

type fakeProcurement struct {
	updateFn func(ctx context.Context, doNumber string, changes lpo.Changes) (int64, error)
	deleteFn func(ctx context.Context, doNumber, by, reason string) (int64, error)
}

func (f *fakeProcurement) UpdateByDONumber(ctx context.Context, doNumber string, changes lpo.Changes) (int64, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, doNumber, changes)
	}
	return 0, nil
}

func (f *fakeProcurement) SoftDeleteByDONumber(ctx context.Context, doNumber, by, reason string) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, doNumber, by, reason)
	}
	return 0, nil
}

type fakeDispatcher struct {
	requests    []notifications.Request
	resolutions []notifications.Resolution
	requestErr  error
}

func (f *fakeDispatcher) Request(_ context.Context, req notifications.Request) (bool, error) {
	if f.requestErr != nil {
		return false, f.requestErr
	}
	f.requests = append(f.requests, req)
	return true, nil
}

func (f *fakeDispatcher) Resolve(_ context.Context, res notifications.Resolution) (int, error) {
	f.resolutions = append(f.resolutions, res)
	return 1, nil
}

var (
	errStoreDown = errors.New("store down")
	clerk        = auth.Actor{Username: "jane", Role: enums.UserRoleClerk}
)

func liters(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

type harness struct {
	coord   *Coordinator
	ledgers *memoryLedgers
	orders  *memoryOrders
	config  *fakeConfig
	seq     int
}

func newHarness() *harness {
	cfg := newFakeConfig()
	cfg.routes["DAR|ZAMBIA"] = liters(1000)
	cfg.routes["|LUSAKA"] = liters(1200)
	cfg.routes["NDOLA|DAR"] = liters(900)
	cfg.extras["T100"] = liters(50)
	cfg.extras["T200"] = liters(60)

	manager := journeys.NewManager(fuel.NewPatternClassifier([]string{"MSA", "MOMBASA"}), nil)
	coord, err := NewCoordinator(manager, cfg, nil, nil)
	if err != nil {
		panic(err)
	}
	return &harness{
		coord:   coord,
		ledgers: newMemoryLedgers(),
		orders:  &memoryOrders{byNumber: map[string]*models.DeliveryOrder{}},
		config:  cfg,
	}
}

func (h *harness) store() Store {
	return Store{Ledgers: h.ledgers, Orders: h.orders}
}

func (h *harness) order(direction enums.Direction, truck, from, to string) *models.DeliveryOrder {
	h.seq++
	o := &models.DeliveryOrder{
		ID:             uuid.New(),
		DONumber:       models.FormatDONumber(enums.OrderTypeDO, h.seq, 2025),
		OrderType:      enums.OrderTypeDO,
		ImportOrExport: direction,
		TruckNo:        truck,
		LoadingPoint:   from,
		Destination:    to,
	}
	h.orders.byNumber[string(o.OrderType)+o.DONumber] = o
	return o
}

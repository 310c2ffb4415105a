package journeys

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

type memoryLedgers struct {
	records map[uuid.UUID]models.FuelRecord
	clock   time.Time
	saves   int
}

func newMemoryLedgers() *memoryLedgers {
	return &memoryLedgers{
		records: map[uuid.UUID]models.FuelRecord{},
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
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
	m.saves++
	m.records[record.ID] = *record
	return nil
}

func (m *memoryLedgers) FindActiveByTruck(_ context.Context, truckNo string) (*models.FuelRecord, error) {
	for _, rec := range m.records {
		if rec.TruckNo == truckNo && rec.JourneyStatus == enums.JourneyStatusActive {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
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

func (m *memoryLedgers) get(id uuid.UUID) models.FuelRecord {
	return m.records[id]
}

type memoryLockStore struct {
	mu     sync.Mutex
	values map[string]string
	setnx  int
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}}
}

func (s *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setnx++
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryLockStore) ReleaseOwned(_ context.Context, key, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[key] != owner {
		return false, nil
	}
	delete(s.values, key)
	return true, nil
}

func (s *memoryLockStore) TruckLockKey(truckNo string) string {
	return "fleetops:lock:truck:" + truckNo
}

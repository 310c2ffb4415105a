package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fleetops-backend/internal/deliveryorders"
	"github.com/angelmondragon/fleetops-backend/internal/fuelrecords"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/internal/routeconfig"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryIdempotency struct {
	data map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, key string) string { return scope + ":" + key }

type fakeOrders struct {
	createFn func(ctx context.Context, actor auth.Actor, input deliveryorders.CreateOrderInput) (*deliveryorders.OrderResult, error)
	listFn   func(ctx context.Context, actor auth.Actor, filter deliveryorders.ListFilter) ([]models.DeliveryOrder, error)
}

func (f *fakeOrders) CreateOrder(ctx context.Context, actor auth.Actor, input deliveryorders.CreateOrderInput) (*deliveryorders.OrderResult, error) {
	return f.createFn(ctx, actor, input)
}

func (f *fakeOrders) EditOrder(context.Context, auth.Actor, uuid.UUID, deliveryorders.EditOrderInput) (*deliveryorders.OrderResult, error) {
	return &deliveryorders.OrderResult{}, nil
}

func (f *fakeOrders) CancelOrder(context.Context, auth.Actor, uuid.UUID, string) (*deliveryorders.OrderResult, error) {
	return &deliveryorders.OrderResult{}, nil
}

func (f *fakeOrders) RelinkReturnOrder(context.Context, auth.Actor, uuid.UUID) (*deliveryorders.OrderResult, error) {
	return &deliveryorders.OrderResult{}, nil
}

func (f *fakeOrders) GetOrder(context.Context, auth.Actor, uuid.UUID) (*models.DeliveryOrder, error) {
	return &models.DeliveryOrder{}, nil
}

func (f *fakeOrders) ListOrders(ctx context.Context, actor auth.Actor, filter deliveryorders.ListFilter) ([]models.DeliveryOrder, error) {
	return f.listFn(ctx, actor, filter)
}

type fakeFuelRecords struct {
	updateFn func(ctx context.Context, actor auth.Actor, id uuid.UUID, input fuelrecords.UpdateInput) (*fuelrecords.UpdateResult, error)
	listFn   func(ctx context.Context, actor auth.Actor, truckNo string) ([]models.FuelRecord, error)
}

func (f *fakeFuelRecords) Get(context.Context, auth.Actor, uuid.UUID) (*models.FuelRecord, error) {
	return &models.FuelRecord{}, nil
}

func (f *fakeFuelRecords) ListTruckJourneys(ctx context.Context, actor auth.Actor, truckNo string) ([]models.FuelRecord, error) {
	return f.listFn(ctx, actor, truckNo)
}

func (f *fakeFuelRecords) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input fuelrecords.UpdateInput) (*fuelrecords.UpdateResult, error) {
	return f.updateFn(ctx, actor, id, input)
}

type fakeNotifications struct {
	dismissed []uuid.UUID
}

func (f *fakeNotifications) List(context.Context, auth.Actor, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (f *fakeNotifications) Dismiss(_ context.Context, _ auth.Actor, id uuid.UUID) error {
	f.dismissed = append(f.dismissed, id)
	return nil
}

func (f *fakeNotifications) Resolve(context.Context, auth.Actor, uuid.UUID) error { return nil }

type fakeRouteConfig struct {
	routes []routeconfig.RouteInput
}

func (f *fakeRouteConfig) UpsertRoute(_ context.Context, _ auth.Actor, input routeconfig.RouteInput) (*models.RouteConfig, error) {
	f.routes = append(f.routes, input)
	return &models.RouteConfig{Destination: input.Destination, TotalLiters: input.TotalLiters}, nil
}

func (f *fakeRouteConfig) UpsertTruckBatch(context.Context, auth.Actor, routeconfig.TruckBatchInput) (*models.TruckBatchRule, error) {
	return &models.TruckBatchRule{}, nil
}

type routerFixture struct {
	handler http.Handler
	cfg     *config.Config
	orders  *fakeOrders
	ledgers *fakeFuelRecords
	notifs  *fakeNotifications
	routes  *fakeRouteConfig
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "fleetops", ExpirationMinutes: 60},
	}
	f := &routerFixture{
		cfg:     cfg,
		orders:  &fakeOrders{},
		ledgers: &fakeFuelRecords{},
		notifs:  &fakeNotifications{},
		routes:  &fakeRouteConfig{},
	}
	f.handler = NewRouter(cfg, logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}), Deps{
		DB:             stubPinger{},
		Redis:          stubPinger{},
		Idempotency:    &memoryIdempotency{data: map[string]string{}},
		DeliveryOrders: f.orders,
		FuelRecords:    f.ledgers,
		Notifications:  f.notifs,
		RouteConfig:    f.routes,
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string, role enums.UserRole, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		token, err := auth.MintAccessToken(f.cfg.JWT, time.Now(), auth.AccessTokenPayload{Username: "jane", Role: role})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLiveAndReady(t *testing.T) {
	f := newRouterFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/ready", "", "", nil).Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/delivery-orders", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	f := newRouterFixture(t)
	calls := 0
	f.orders.createFn = func(_ context.Context, actor auth.Actor, input deliveryorders.CreateOrderInput) (*deliveryorders.OrderResult, error) {
		calls++
		assert.Equal(t, "jane", actor.Username)
		assert.Equal(t, enums.OrderTypeDO, input.OrderType)
		assert.Equal(t, enums.DirectionImport, input.ImportOrExport)
		return &deliveryorders.OrderResult{Order: &models.DeliveryOrder{DONumber: "0001/25", TruckNo: "T100"}}, nil
	}
	body := `{"importOrExport":"import","truckNo":"t100","loadingPoint":"DAR","destination":"LUSAKA"}`

	missing := f.do(t, http.MethodPost, "/api/v1/delivery-orders", body, enums.UserRoleClerk, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	headers := map[string]string{"Idempotency-Key": "k1"}
	first := f.do(t, http.MethodPost, "/api/v1/delivery-orders", body, enums.UserRoleClerk, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	replay := f.do(t, http.MethodPost, "/api/v1/delivery-orders", body, enums.UserRoleClerk, headers)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, calls)

	var envelope struct {
		Data struct {
			Order struct {
				DONumber string `json:"doNumber"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &envelope))
	assert.Equal(t, "0001/25", envelope.Data.Order.DONumber)
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/delivery-orders", `{"truck":"T100"}`, enums.UserRoleClerk, map[string]string{"Idempotency-Key": "k2"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListOrdersParsesFilters(t *testing.T) {
	f := newRouterFixture(t)
	var got deliveryorders.ListFilter
	f.orders.listFn = func(_ context.Context, _ auth.Actor, filter deliveryorders.ListFilter) ([]models.DeliveryOrder, error) {
		got = filter
		return []models.DeliveryOrder{}, nil
	}
	resp := f.do(t, http.MethodGet, "/api/v1/delivery-orders?truckNo=T100&orderType=sdo&includeCancelled=true&limit=10", "", enums.UserRoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "T100", got.TruckNo)
	assert.Equal(t, enums.OrderTypeSDO, got.OrderType)
	assert.True(t, got.IncludeCancelled)
	assert.Equal(t, 10, got.Limit)

	bad := f.do(t, http.MethodGet, "/api/v1/delivery-orders?includeCancelled=maybe", "", enums.UserRoleViewer, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestUpdateFuelRecordDecodesQuantities(t *testing.T) {
	f := newRouterFixture(t)
	id := uuid.New()
	f.ledgers.updateFn = func(_ context.Context, _ auth.Actor, got uuid.UUID, input fuelrecords.UpdateInput) (*fuelrecords.UpdateResult, error) {
		assert.Equal(t, id, got)
		require.NotNil(t, input.ExtraLiters)
		assert.True(t, input.ExtraLiters.Equal(decimal.NewFromInt(60)))
		assert.True(t, input.Checkpoints["darGoing"].Equal(decimal.RequireFromString("120.5")))
		return &fuelrecords.UpdateResult{Record: &models.FuelRecord{ID: id}}, nil
	}
	resp := f.do(t, http.MethodPatch, "/api/v1/fuel-records/"+id.String(), `{"extraLiters":60,"checkpoints":{"darGoing":"120.5"}}`, enums.UserRoleFuelAttendant, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	negative := f.do(t, http.MethodPatch, "/api/v1/fuel-records/"+id.String(), `{"totalLiters":-1}`, enums.UserRoleFuelAttendant, nil)
	assert.Equal(t, http.StatusBadRequest, negative.Code)

	badID := f.do(t, http.MethodPatch, "/api/v1/fuel-records/not-a-uuid", `{"totalLiters":1}`, enums.UserRoleFuelAttendant, nil)
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestTruckJourneysUnescapesTruckNumber(t *testing.T) {
	f := newRouterFixture(t)
	var got string
	f.ledgers.listFn = func(_ context.Context, _ auth.Actor, truckNo string) ([]models.FuelRecord, error) {
		got = truckNo
		return []models.FuelRecord{}, nil
	}
	resp := f.do(t, http.MethodGet, "/api/v1/trucks/T%20100/journeys", "", enums.UserRoleViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "T 100", got)
}

func TestDismissNotification(t *testing.T) {
	f := newRouterFixture(t)
	id := uuid.New()
	resp := f.do(t, http.MethodPost, "/api/v1/notifications/"+id.String()+"/dismiss", "", enums.UserRoleAdmin, map[string]string{"Idempotency-Key": "d1"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []uuid.UUID{id}, f.notifs.dismissed)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"origin":"DAR","destination":"LUSAKA","totalLiters":1200}`

	forbidden := f.do(t, http.MethodPut, "/api/admin/v1/routes", body, enums.UserRoleClerk, nil)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Empty(t, f.routes.routes)

	ok := f.do(t, http.MethodPut, "/api/admin/v1/routes", body, enums.UserRoleAdmin, nil)
	require.Equal(t, http.StatusOK, ok.Code)
	require.Len(t, f.routes.routes, 1)
	assert.True(t, f.routes.routes[0].TotalLiters.Equal(decimal.NewFromInt(1200)))
}

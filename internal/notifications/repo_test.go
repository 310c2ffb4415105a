package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func TestRepositoryPendingLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupNotificationsTestDB(t))
	related := uuid.New()

	n := &models.Notification{
		Type:           enums.NotificationTypeMissingTotalLiters,
		Title:          "locked",
		Message:        "missing route",
		RelatedModel:   enums.RelatedModelFuelRecord,
		RelatedID:      related,
		RecipientRoles: []enums.UserRole{enums.UserRoleFuelOrderMaker, enums.UserRoleAdmin},
		CreatedBy:      "jane",
	}
	require.NoError(t, repo.Create(ctx, n))
	assert.Equal(t, enums.NotificationStatusPending, n.Status)

	found, err := repo.FindPending(ctx, enums.RelatedModelFuelRecord, related, enums.NotificationTypeMissingTotalLiters)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, n.ID, found.ID)

	other, err := repo.FindPending(ctx, enums.RelatedModelFuelRecord, related, enums.NotificationTypeMissingExtraFuel)
	require.NoError(t, err)
	assert.Nil(t, other)

	count, err := repo.MarkResolved(ctx, []uuid.UUID{n.ID}, "boss", time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	pending, err := repo.ListPendingByRelated(ctx, enums.RelatedModelFuelRecord, related, nil)
	require.NoError(t, err)
	assert.Empty(t, pending)

	reloaded, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationStatusResolved, reloaded.Status)
	require.NotNil(t, reloaded.ResolvedBy)
	assert.Equal(t, "boss", *reloaded.ResolvedBy)
}

func TestRepositoryListByRecipient(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupNotificationsTestDB(t))

	forAdmins := &models.Notification{
		Type: enums.NotificationTypeMissingExtraFuel, Title: "a", Message: "a",
		RelatedModel: enums.RelatedModelFuelRecord, RelatedID: uuid.New(),
		RecipientRoles: []enums.UserRole{enums.UserRoleSuperAdmin}, CreatedBy: "x",
	}
	forMakers := &models.Notification{
		Type: enums.NotificationTypeUnlinkedExportDO, Title: "b", Message: "b",
		RelatedModel: enums.RelatedModelDeliveryOrder, RelatedID: uuid.New(),
		RecipientRoles: []enums.UserRole{enums.UserRoleFuelOrderMaker, enums.UserRoleAdmin}, CreatedBy: "x",
	}
	require.NoError(t, repo.Create(ctx, forAdmins))
	require.NoError(t, repo.Create(ctx, forMakers))

	rows, next, err := repo.List(ctx, listNotificationsParams{Role: enums.UserRoleAdmin, User: "someone"})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, rows, 1)
	assert.Equal(t, forMakers.ID, rows[0].ID)

	rows, _, err = repo.List(ctx, listNotificationsParams{Role: enums.UserRoleSuperAdmin, User: "someone"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, forAdmins.ID, rows[0].ID)
}

func TestRepositoryDeleteOlderThanKeepsPending(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupNotificationsTestDB(t))
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := func(status enums.NotificationStatus, createdAt time.Time) {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			Type:         enums.NotificationTypeUnlinkedExportDO,
			Title:        "unlinked",
			Message:      "no ledger",
			RelatedModel: enums.RelatedModelDeliveryOrder,
			RelatedID:    uuid.New(),
			Status:       status,
			CreatedBy:    "jane",
			CreatedAt:    createdAt,
		}))
	}
	seed(enums.NotificationStatusPending, old)
	seed(enums.NotificationStatusResolved, old)
	seed(enums.NotificationStatusDismissed, old)
	seed(enums.NotificationStatusResolved, old.AddDate(0, 2, 0))

	deleted, err := repo.DeleteOlderThan(ctx, nil, old.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining int64
	require.NoError(t, repo.(*repositoryImpl).db.Model(&models.Notification{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

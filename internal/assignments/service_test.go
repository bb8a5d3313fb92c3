package assignments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/pkg/db"
	"github.com/angelmondragon/gatic-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (pkgredis.Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	rows := inventory.NewRepository(conn)
	reconciler, err := inventory.NewReconciler(db.Wrap(conn), rows, noopLocker{}, nil, logg)
	require.NoError(t, err)
	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), rows, reconciler, activitySvc, outbox.NewService(outbox.NewRepository(conn), logg))
	require.NoError(t, err)
	return svc.(*service), conn
}

func strPtr(v string) *string { return &v }

func seed(t *testing.T, conn *gorm.DB, rows ...models.InventoryRow) {
	t.Helper()
	for i := range rows {
		require.NoError(t, conn.Create(&rows[i]).Error)
	}
}

func group(t *testing.T, conn *gorm.DB, name string) []models.InventoryRow {
	t.Helper()
	var rows []models.InventoryRow
	require.NoError(t, conn.Where("name = ?", name).Order("id ASC").Find(&rows).Error)
	return rows
}

func fleet(rows []models.InventoryRow) int {
	total := 0
	for _, row := range rows {
		total += row.Units()
	}
	return total
}

func TestAssignAndReturnBulk(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seed(t, conn, models.InventoryRow{ID: 1, Name: "Monitor", Model: "P24", Status: enums.ItemStatusAvailable, Quantity: 6})

	a, err := svc.Assign(ctx, "ana", AssignInput{ItemID: 1, Quantity: 4, Assignee: "Contabilidad", Department: strPtr("Finanzas")})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusActive, a.Status)
	assert.Equal(t, 6, fleet(group(t, conn, "Monitor")))

	returned, err := svc.Return(ctx, "ana", a.ID, ReturnInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)

	rows := group(t, conn, "Monitor")
	require.Len(t, rows, 1)
	assert.Equal(t, 6, rows[0].Quantity)

	_, err = svc.Return(ctx, "ana", a.ID, ReturnInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRetireAssignedSerializedUnit(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seed(t, conn, models.InventoryRow{ID: 3, Name: "Laptop", Model: "X1", SerialNumber: strPtr("SN3"), Status: enums.ItemStatusAvailable, Quantity: 1})

	a, err := svc.Assign(ctx, "ana", AssignInput{ItemID: 3, Assignee: "Pedro"})
	require.NoError(t, err)

	at := time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)
	retired, err := svc.Retire(ctx, "ana", a.ID, RetireInput{Reason: enums.RetireReasonNotReturned, At: &at})
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusRetired, retired.Status)
	require.NotNil(t, retired.RetireReason)
	assert.Equal(t, enums.RetireReasonNotReturned, *retired.RetireReason)

	rows := group(t, conn, "Laptop")
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ItemStatusRetired, rows[0].Status)
	require.NotNil(t, rows[0].RetiredAt)
	assert.Equal(t, 1, rows[0].RetiredAt.Day())

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventAssignmentRetired).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestRetireAssignedBulkKeepsFleet(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seed(t, conn, models.InventoryRow{ID: 1, Name: "Silla", Model: "S1", Status: enums.ItemStatusAvailable, Quantity: 5})

	a, err := svc.Assign(ctx, "ana", AssignInput{ItemID: 1, Quantity: 2, Assignee: "Recepción"})
	require.NoError(t, err)
	_, err = svc.Retire(ctx, "ana", a.ID, RetireInput{Reason: enums.RetireReasonDamaged})
	require.NoError(t, err)

	rows := group(t, conn, "Silla")
	assert.Equal(t, 5, fleet(rows))
	for _, row := range rows {
		assert.NotEqual(t, enums.ItemStatusAssigned, row.Status)
	}
}

func TestAssignValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seed(t, conn, models.InventoryRow{ID: 1, Name: "Silla", Model: "S1", Status: enums.ItemStatusLoaned, Quantity: 2})

	_, err := svc.Assign(ctx, "ana", AssignInput{ItemID: 1, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Assign(ctx, "ana", AssignInput{ItemID: 1, Quantity: 1, Assignee: "Pedro"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Retire(ctx, "ana", 1, RetireInput{Reason: "Robado"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Get(ctx, 42)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListByAssignee(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seed(t, conn, models.InventoryRow{ID: 1, Name: "Silla", Model: "S1", Status: enums.ItemStatusAvailable, Quantity: 5})

	for _, who := range []string{"Pedro", "Ana", "pedro g."} {
		_, err := svc.Assign(ctx, "ana", AssignInput{ItemID: 1, Quantity: 1, Assignee: who})
		require.NoError(t, err)
	}
	res, err := svc.List(ctx, ListParams{Assignee: "Pedro"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(ctx, ListParams{ItemID: 1, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.NotEmpty(t, res.Cursor)
}

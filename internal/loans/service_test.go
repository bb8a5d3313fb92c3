package loans

import (
	"context"
	"encoding/json"
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
	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (pkgredis.Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	rows := inventory.NewRepository(conn)
	reconciler, err := inventory.NewReconciler(db.Wrap(conn), rows, noopLocker{}, nil, logg)
	require.NoError(t, err)
	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Rows:       rows,
		Reconciler: reconciler,
		Activity:   activitySvc,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:     logg,
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn
}

func strPtr(v string) *string { return &v }

func seedRows(t *testing.T, conn *gorm.DB, rows ...models.InventoryRow) {
	t.Helper()
	for i := range rows {
		require.NoError(t, conn.Create(&rows[i]).Error)
	}
}

func mouseBucket(id int64, status enums.ItemStatus, qty int) models.InventoryRow {
	return models.InventoryRow{ID: id, Name: "Mouse", Model: "M1", Brand: "Logi", Status: status, Quantity: qty}
}

func groupRows(t *testing.T, conn *gorm.DB, name string) []models.InventoryRow {
	t.Helper()
	var rows []models.InventoryRow
	require.NoError(t, conn.Where("name = ?", name).Order("id ASC").Find(&rows).Error)
	return rows
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestLendBulkThenReturnRestoresBucket(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedRows(t, conn, mouseBucket(1, enums.ItemStatusAvailable, 5))

	loan, err := svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 3, Borrower: "Luis", DueAt: fixedNow.Add(72 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStatusActive, loan.Status)
	assert.Equal(t, 3, loan.Quantity)

	rows := groupRows(t, conn, "Mouse")
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Quantity)
	assert.Equal(t, enums.ItemStatusLoaned, rows[1].Status)
	assert.Equal(t, 3, rows[1].Quantity)

	returned, err := svc.Return(ctx, "ana", loan.ID, ReturnInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)

	rows = groupRows(t, conn, "Mouse")
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ItemStatusAvailable, rows[0].Status)
	assert.Equal(t, 5, rows[0].Quantity)

	_, err = svc.Return(ctx, "ana", loan.ID, ReturnInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("aggregate_type = ?", enums.AggregateLoan).Find(&events).Error)
	require.Len(t, events, 2)
	types := []enums.OutboxEventType{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []enums.OutboxEventType{enums.EventLoanCreated, enums.EventLoanReturned}, types)
}

func TestLendSerializedRejectsSecondCheckout(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedRows(t, conn, models.InventoryRow{ID: 7, Name: "Laptop", Model: "X1", SerialNumber: strPtr("SN1"), Status: enums.ItemStatusAvailable, Quantity: 1})

	loan, err := svc.Lend(ctx, "ana", LendInput{ItemID: 7, Borrower: "Luis", DueAt: fixedNow.Add(time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, loan.SerialNumber)
	assert.Equal(t, 1, loan.Quantity)

	_, err = svc.Lend(ctx, "ana", LendInput{ItemID: 7, Borrower: "Marta", DueAt: fixedNow.Add(time.Hour)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Return(ctx, "ana", loan.ID, ReturnInput{Notes: strPtr("sin daños")})
	require.NoError(t, err)
	rows := groupRows(t, conn, "Laptop")
	require.Len(t, rows, 1)
	assert.Equal(t, enums.ItemStatusAvailable, rows[0].Status)
}

func TestLendValidatesInput(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedRows(t, conn, mouseBucket(1, enums.ItemStatusAvailable, 2))

	_, err := svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 1, DueAt: fixedNow.Add(time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 1, Borrower: "Luis", DueAt: fixedNow.Add(-time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Lend(ctx, "ana", LendInput{ItemID: 99, Quantity: 1, Borrower: "Luis", DueAt: fixedNow.Add(time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 5, Borrower: "Luis", DueAt: fixedNow.Add(time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, conn.Model(&models.Loan{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMarkOverdueFlagsOnceAndStillReturns(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedRows(t, conn, mouseBucket(1, enums.ItemStatusAvailable, 4))

	loan, err := svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 2, Borrower: "Luis", DueAt: fixedNow.Add(24 * time.Hour)})
	require.NoError(t, err)

	later := fixedNow.Add(72 * time.Hour)
	flagged, err := svc.MarkOverdue(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	flagged, err = svc.MarkOverdue(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, flagged)

	got, err := svc.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStatusOverdue, got.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventLoanOverdue).Find(&events).Error)
	require.Len(t, events, 1)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	assert.Contains(t, string(envelope.Data), `"days_overdue":2`)

	returned, err := svc.Return(ctx, "ana", loan.ID, ReturnInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStatusReturned, returned.Status)
}

func TestListFiltersByStatusAndBorrower(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedRows(t, conn, mouseBucket(1, enums.ItemStatusAvailable, 10))

	for _, who := range []string{"Luis Pérez", "Marta", "luisa"} {
		_, err := svc.Lend(ctx, "ana", LendInput{ItemID: 1, Quantity: 1, Borrower: who, DueAt: fixedNow.Add(time.Hour)})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, ListParams{Borrower: "LUIS"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	active := enums.LoanStatusActive
	res, err = svc.List(ctx, ListParams{Status: &active})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)

	returned := enums.LoanStatusReturned
	res, err = svc.List(ctx, ListParams{Status: &returned})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

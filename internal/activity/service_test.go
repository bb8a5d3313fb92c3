package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc.(*service), conn
}

func TestRecordRequiresTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Record(context.Background(), nil, Entry{Type: enums.ActivityLoan, Description: "x", Actor: "ana"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestRecordValidatesEntry(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, conn, Entry{Type: "Desconocido", Description: "x", Actor: "ana"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Record(ctx, conn, Entry{Type: enums.ActivityLoan, Description: " ", Actor: "ana"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Record(ctx, conn, Entry{Type: enums.ActivityLoan, Description: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecordAndListNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.Record(ctx, tx, Entry{
				Type:        enums.ActivityLoan,
				Description: "Préstamo de Mouse M1",
				Details:     map[string]any{"cantidad": i + 1},
				Actor:       "ana",
				OccurredAt:  base.Add(time.Duration(i) * time.Hour),
			})
		})
		require.NoError(t, err)
	}
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Record(ctx, tx, Entry{Type: enums.ActivityRetire, Description: "Retiro", Actor: "luis", OccurredAt: base})
	}))

	loanType := enums.ActivityLoan
	page, err := svc.List(ctx, ListParams{Type: &loanType, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.Cursor)
	assert.True(t, page.Items[0].OccurredAt.After(page.Items[1].OccurredAt))

	var details map[string]int
	require.NoError(t, json.Unmarshal(page.Items[0].Details, &details))
	assert.Equal(t, 3, details["cantidad"])

	rest, err := svc.List(ctx, ListParams{Type: &loanType, Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)

	byActor, err := svc.List(ctx, ListParams{Actor: "luis"})
	require.NoError(t, err)
	require.Len(t, byActor.Items, 1)
	assert.Equal(t, enums.ActivityRetire, byActor.Items[0].Type)
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Record(ctx, tx, Entry{Type: enums.ActivityIntake, Description: "Alta", Actor: "ana"}); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInvariant, "boom")
	})
	require.Error(t, err)

	page, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.List(context.Background(), ListParams{Params: pkgpagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

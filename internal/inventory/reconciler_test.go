package inventory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db"
	"github.com/angelmondragon/gatic-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/metrics"
)

func rowChanges(t *testing.T, reg *prometheus.Registry, kind string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "gatic_reconcile_row_changes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestReconcilerCountsChangesOnlyAfterCommit(t *testing.T) {
	conn := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r, err := NewReconciler(db.Wrap(conn), NewRepository(conn), &stubLocker{}, metrics.NewReconcileMetrics(reg), logg)
	require.NoError(t, err)

	key := reconcile.Key{Name: "Mouse", Model: "M1"}
	intake := func(tx *gorm.DB) error {
		_, err := r.Apply(context.Background(), tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Intake(c, models.InventoryRow{Name: "Mouse", Model: "M1"}, 5, ids)
		})
		return err
	}

	boom := errors.New("activity insert failed")
	err = r.Do(context.Background(), "intake", key, func(tx *gorm.DB) error {
		if err := intake(tx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, rowChanges(t, reg, "created"))

	var count int64
	require.NoError(t, conn.Model(&models.InventoryRow{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, r.Do(context.Background(), "intake", key, intake))
	assert.Equal(t, float64(1), rowChanges(t, reg, "created"))
	assert.Empty(t, r.pending)
}

package inventory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportWritesInventoryAndSummarySheets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, "ana", mouseInput(6))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, "ana", laptopInput("SN-5"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.svc.Export(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{inventorySheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(inventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, inventoryHeadings, rows[0])
	assert.Equal(t, "Mouse", rows[1][1])
	assert.Equal(t, "SN-5", rows[2][5])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "Laptop", summary[1][0])
	assert.Equal(t, "6", summary[2][2])
}

package inventory

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
)

const (
	inventorySheet = "Inventario"
	summarySheet   = "Resumen"
)

var inventoryHeadings = []string{
	"ID", "Nombre", "Modelo", "Marca", "Categoria", "Numero de serie",
	"Estado", "Cantidad", "Costo unitario", "Motivo de retiro", "Fecha de retiro", "Ubicacion",
}

var summaryHeadings = []string{
	"Nombre", "Modelo", "Total", "Disponible", "Prestado", "Asignado",
	"Mantenimiento", "Retirado", "Serializados", "En servicio", "Valor",
}

// Export writes the whole catalog plus a per-group summary as an xlsx workbook.
func (s *service) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	summaries, err := s.Summary(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare workbook")
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare workbook")
	}

	if err := writeRow(f, inventorySheet, 1, toCells(inventoryHeadings)); err != nil {
		return err
	}
	for i, row := range rows {
		item := ToItem(row)
		cells := []any{
			item.ID, item.Name, item.Model, item.Brand, item.Category, deref(item.SerialNumber),
			string(item.Status), item.Quantity, item.UnitCost.InexactFloat64(), reasonCell(item), dateCell(item), deref(item.Location),
		}
		if err := writeRow(f, inventorySheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := writeRow(f, summarySheet, 1, toCells(summaryHeadings)); err != nil {
		return err
	}
	for i, g := range summaries {
		cells := []any{
			g.Name, g.Model, g.Fleet,
			g.ByStatus[enums.ItemStatusAvailable], g.ByStatus[enums.ItemStatusLoaned], g.ByStatus[enums.ItemStatusAssigned],
			g.ByStatus[enums.ItemStatusMaintenance], g.ByStatus[enums.ItemStatusRetired],
			g.Serials, g.InService, g.Value.InexactFloat64(),
		}
		if err := writeRow(f, summarySheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write workbook")
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNo int, cells []any) error {
	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve cell")
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cell")
		}
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func reasonCell(item Item) string {
	if item.RetireReason == nil {
		return ""
	}
	return string(*item.RetireReason)
}

func dateCell(item Item) string {
	if item.RetiredAt == nil {
		return ""
	}
	return item.RetiredAt.Format("2006-01-02")
}

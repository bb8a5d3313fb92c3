package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

// Item is the API shape of a catalog row.
type Item struct {
	ID           int64               `json:"id"`
	Name         string              `json:"nombre"`
	Model        string              `json:"modelo"`
	Brand        string              `json:"marca"`
	Category     string              `json:"categoria"`
	Description  *string             `json:"descripcion,omitempty"`
	Supplier     *string             `json:"proveedor,omitempty"`
	Location     *string             `json:"ubicacion,omitempty"`
	SerialNumber *string             `json:"numeroSerie"`
	Status       enums.ItemStatus    `json:"estado"`
	Quantity     int                 `json:"cantidad"`
	UnitCost     decimal.Decimal     `json:"costoUnitario"`
	RetireReason *enums.RetireReason `json:"motivoRetiro,omitempty"`
	RetiredAt    *time.Time          `json:"fechaRetiro,omitempty"`
	CreatedAt    time.Time           `json:"fechaCreacion"`
	UpdatedAt    time.Time           `json:"fechaActualizacion"`
}

// ToItem maps a row to its API shape.
func ToItem(m models.InventoryRow) Item {
	return Item{
		ID:           m.ID,
		Name:         m.Name,
		Model:        m.Model,
		Brand:        m.Brand,
		Category:     m.Category,
		Description:  m.Description,
		Supplier:     m.Supplier,
		Location:     m.Location,
		SerialNumber: m.SerialNumber,
		Status:       m.Status,
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		RetireReason: m.RetireReason,
		RetiredAt:    m.RetiredAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type ListParams struct {
	Status       *enums.ItemStatus
	Category     string
	Search       string
	IncludeEmpty bool
	pkgpagination.Params
}

type ListResult struct {
	Items  []Item `json:"items"`
	Cursor string `json:"cursor"`
}

type listQuery struct {
	status       *enums.ItemStatus
	category     string
	search       string
	includeEmpty bool
	limit        int
	cursor       *pkgpagination.Cursor
}

// CreateInput registers new stock.
type CreateInput struct {
	Name         string
	Model        string
	Brand        string
	Category     string
	Description  *string
	Supplier     *string
	Location     *string
	SerialNumber *string
	Quantity     int
	UnitCost     decimal.Decimal
}

// RetireInput retires units of a Disponible or Mantenimiento row.
type RetireInput struct {
	Quantity int
	Reason   enums.RetireReason
	At       *time.Time
	Notes    *string
}

// MoveInput sends units to or back from maintenance.
type MoveInput struct {
	Quantity int
	Notes    *string
}

// GroupSummary is the API shape of one group's fleet breakdown.
type GroupSummary struct {
	Name      string                   `json:"nombre"`
	Model     string                   `json:"modelo"`
	Fleet     int                      `json:"total"`
	ByStatus  map[enums.ItemStatus]int `json:"porEstado"`
	Serials   int                      `json:"serializados"`
	InService int                      `json:"enServicio"`
	Value     decimal.Decimal          `json:"valor"`
}

func toGroupSummary(s reconcile.GroupSummary) GroupSummary {
	return GroupSummary{
		Name:      s.Key.Name,
		Model:     s.Key.Model,
		Fleet:     s.Fleet,
		ByStatus:  s.ByStatus,
		Serials:   s.Serials,
		InService: s.InService,
		Value:     s.Value,
	}
}

// ItemRef describes units of row for event payloads.
func ItemRef(row models.InventoryRow, quantity int) payloads.ItemRef {
	ref := payloads.ItemRef{
		ItemID:   row.ID,
		Name:     row.Name,
		Model:    row.Model,
		Quantity: quantity,
	}
	if row.SerialNumber != nil {
		serial := *row.SerialNumber
		ref.SerialNumber = &serial
		ref.Quantity = 1
	}
	return ref
}

// UnitRef describes a reconciliation unit for event payloads.
func UnitRef(u reconcile.Unit) payloads.ItemRef {
	ref := payloads.ItemRef{
		ItemID:       u.ArticuloID,
		Name:         u.Name,
		Model:        u.Model,
		SerialNumber: u.SerialNumber,
		Quantity:     u.Quantity,
	}
	if u.SerialNumber != nil {
		ref.Quantity = 1
	}
	return ref
}

// RowChanges flattens a change set for event payloads.
func RowChanges(changes []reconcile.Change) []payloads.RowChange {
	out := make([]payloads.RowChange, 0, len(changes))
	for _, change := range changes {
		out = append(out, payloads.RowChange{
			RowID:    change.Row.ID,
			Kind:     string(change.Kind),
			Status:   change.Row.Status,
			Quantity: change.Row.Quantity,
		})
	}
	return out
}

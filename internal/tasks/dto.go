package tasks

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

// Task is the API shape of a pending task.
type Task struct {
	ID           int64            `json:"id"`
	Type         enums.TaskType   `json:"tipo"`
	Status       enums.TaskStatus `json:"estado"`
	Requester    string           `json:"solicitante"`
	Origin       string           `json:"origen"`
	Details      json.RawMessage  `json:"detalles"`
	ResolvedBy   *string          `json:"resueltoPor,omitempty"`
	ResolvedAt   *time.Time       `json:"fechaResolucion,omitempty"`
	RejectReason *string          `json:"motivoRechazo,omitempty"`
	CreatedAt    time.Time        `json:"fechaCreacion"`
}

func toTask(m models.PendingTask) Task {
	return Task{
		ID:           m.ID,
		Type:         m.Type,
		Status:       m.Status,
		Requester:    m.Requester,
		Origin:       m.Origin,
		Details:      m.Details,
		ResolvedBy:   m.ResolvedBy,
		ResolvedAt:   m.ResolvedAt,
		RejectReason: m.RejectReason,
		CreatedAt:    m.CreatedAt,
	}
}

// QuickLoad is the stock a CARGA_RAPIDA task asks to register.
type QuickLoad struct {
	Name         string          `json:"nombre"`
	Model        string          `json:"modelo"`
	Brand        string          `json:"marca"`
	Category     string          `json:"categoria"`
	Description  *string         `json:"descripcion,omitempty"`
	Supplier     *string         `json:"proveedor,omitempty"`
	Location     *string         `json:"ubicacion,omitempty"`
	SerialNumber *string         `json:"numeroSerie,omitempty"`
	Quantity     int             `json:"cantidad"`
	UnitCost     decimal.Decimal `json:"costoUnitario"`
}

func (q QuickLoad) input() inventory.CreateInput {
	return inventory.CreateInput{
		Name:         q.Name,
		Model:        q.Model,
		Brand:        q.Brand,
		Category:     q.Category,
		Description:  q.Description,
		Supplier:     q.Supplier,
		Location:     q.Location,
		SerialNumber: q.SerialNumber,
		Quantity:     q.Quantity,
		UnitCost:     q.UnitCost,
	}
}

// QuickRetire is the unit a RETIRO_RAPIDO task asks to retire.
type QuickRetire struct {
	ItemID   int64              `json:"articuloId"`
	Quantity int                `json:"cantidad"`
	Reason   enums.RetireReason `json:"motivo"`
	Notes    *string            `json:"notas,omitempty"`
}

func (q QuickRetire) input() inventory.RetireInput {
	return inventory.RetireInput{Quantity: q.Quantity, Reason: q.Reason, Notes: q.Notes}
}

// CreateInput files a task. Exactly one of QuickLoad or QuickRetire matches Type.
type CreateInput struct {
	Type        enums.TaskType
	Origin      string
	QuickLoad   *QuickLoad
	QuickRetire *QuickRetire
}

type ListParams struct {
	Status *enums.TaskStatus
	Type   *enums.TaskType
	pkgpagination.Params
}

type ListResult struct {
	Items  []Task `json:"items"`
	Cursor string `json:"cursor"`
}

type listQuery struct {
	status   *enums.TaskStatus
	taskType *enums.TaskType
	limit    int
	cursor   *pkgpagination.Cursor
}

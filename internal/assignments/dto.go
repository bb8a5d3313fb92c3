package assignments

import (
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

// Assignment is the API shape of an assignment record.
type Assignment struct {
	ID           int64                  `json:"id"`
	ItemID       int64                  `json:"articuloId"`
	Name         string                 `json:"nombre"`
	Model        string                 `json:"modelo"`
	SerialNumber *string                `json:"numeroSerie"`
	Quantity     int                    `json:"cantidad"`
	Assignee     string                 `json:"asignadoA"`
	Department   *string                `json:"departamento,omitempty"`
	AssignedAt   time.Time              `json:"fechaAsignacion"`
	ReturnedAt   *time.Time             `json:"fechaRetorno,omitempty"`
	Status       enums.AssignmentStatus `json:"estado"`
	RetireReason *enums.RetireReason    `json:"motivoRetiro,omitempty"`
	Notes        *string                `json:"notas,omitempty"`
	CreatedBy    string                 `json:"registradoPor"`
}

func toAssignment(m models.Assignment) Assignment {
	return Assignment{
		ID:           m.ID,
		ItemID:       m.ItemID,
		Name:         m.Name,
		Model:        m.Model,
		SerialNumber: m.SerialNumber,
		Quantity:     m.Quantity,
		Assignee:     m.Assignee,
		Department:   m.Department,
		AssignedAt:   m.AssignedAt,
		ReturnedAt:   m.ReturnedAt,
		Status:       m.Status,
		RetireReason: m.RetireReason,
		Notes:        m.Notes,
		CreatedBy:    m.CreatedBy,
	}
}

type AssignInput struct {
	ItemID     int64
	Quantity   int
	Assignee   string
	Department *string
	Notes      *string
}

type ReturnInput struct {
	Notes *string
}

// RetireInput retires the assigned units in place, typically because they were
// never handed back.
type RetireInput struct {
	Reason enums.RetireReason
	At     *time.Time
	Notes  *string
}

type ListParams struct {
	Status   *enums.AssignmentStatus
	Assignee string
	ItemID   int64
	pkgpagination.Params
}

type ListResult struct {
	Items  []Assignment `json:"items"`
	Cursor string       `json:"cursor"`
}

type listQuery struct {
	status   *enums.AssignmentStatus
	assignee string
	itemID   int64
	limit    int
	cursor   *pkgpagination.Cursor
}

func assignmentItem(m models.Assignment) payloads.ItemRef {
	return payloads.ItemRef{
		ItemID:       m.ItemID,
		Name:         m.Name,
		Model:        m.Model,
		SerialNumber: m.SerialNumber,
		Quantity:     m.Quantity,
	}
}

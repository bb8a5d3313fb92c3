package loans

import (
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

// Loan is the API shape of a loan record.
type Loan struct {
	ID            int64            `json:"id"`
	ItemID        int64            `json:"articuloId"`
	Name          string           `json:"nombre"`
	Model         string           `json:"modelo"`
	SerialNumber  *string          `json:"numeroSerie"`
	Quantity      int              `json:"cantidad"`
	Borrower      string           `json:"prestadoA"`
	BorrowerEmail *string          `json:"email,omitempty"`
	LoanedAt      time.Time        `json:"fechaPrestamo"`
	DueAt         time.Time        `json:"fechaVencimiento"`
	ReturnedAt    *time.Time       `json:"fechaRetorno,omitempty"`
	Status        enums.LoanStatus `json:"estado"`
	Notes         *string          `json:"notas,omitempty"`
	CreatedBy     string           `json:"registradoPor"`
}

func toLoan(m models.Loan) Loan {
	return Loan{
		ID:            m.ID,
		ItemID:        m.ItemID,
		Name:          m.Name,
		Model:         m.Model,
		SerialNumber:  m.SerialNumber,
		Quantity:      m.Quantity,
		Borrower:      m.Borrower,
		BorrowerEmail: m.BorrowerEmail,
		LoanedAt:      m.LoanedAt,
		DueAt:         m.DueAt,
		ReturnedAt:    m.ReturnedAt,
		Status:        m.Status,
		Notes:         m.Notes,
		CreatedBy:     m.CreatedBy,
	}
}

// LendInput checks units out of Disponible to a borrower.
type LendInput struct {
	ItemID        int64
	Quantity      int
	Borrower      string
	BorrowerEmail *string
	DueAt         time.Time
	Notes         *string
}

type ReturnInput struct {
	Notes *string
}

type ListParams struct {
	Status   *enums.LoanStatus
	Borrower string
	ItemID   int64
	pkgpagination.Params
}

type ListResult struct {
	Items  []Loan `json:"items"`
	Cursor string `json:"cursor"`
}

type listQuery struct {
	status   *enums.LoanStatus
	borrower string
	itemID   int64
	limit    int
	cursor   *pkgpagination.Cursor
}

func loanItem(m models.Loan) payloads.ItemRef {
	return payloads.ItemRef{
		ItemID:       m.ItemID,
		Name:         m.Name,
		Model:        m.Model,
		SerialNumber: m.SerialNumber,
		Quantity:     m.Quantity,
	}
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/api/validators"
	"github.com/angelmondragon/gatic-backend/internal/loans"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

type loanCreateRequest struct {
	ItemID        int64     `json:"articuloId" validate:"required,gt=0"`
	Quantity      int       `json:"cantidad" validate:"min=0"`
	Borrower      string    `json:"prestadoA" validate:"required,max=120"`
	BorrowerEmail *string   `json:"email" validate:"omitempty,email"`
	DueAt         time.Time `json:"fechaVencimiento"`
	Notes         *string   `json:"notas"`
}

func (r loanCreateRequest) toInput() loans.LendInput {
	return loans.LendInput{
		ItemID:        r.ItemID,
		Quantity:      r.Quantity,
		Borrower:      validators.SanitizeString(r.Borrower, 120),
		BorrowerEmail: trimmed(r.BorrowerEmail),
		DueAt:         r.DueAt,
		Notes:         trimmed(r.Notes),
	}
}

type notesRequest struct {
	Notes *string `json:"notas"`
}

func LoanList(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "estado", enums.ParseLoanStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseQueryInt64(r, "articuloId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), loans.ListParams{
			Status:   status,
			Borrower: strings.TrimSpace(r.URL.Query().Get("prestadoA")),
			ItemID:   itemID,
			Params:   page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LoanGet(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loan, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}

// LoanCreate lends units of a Disponible row.
func LoanCreate(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload loanCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loan, err := svc.Lend(r.Context(), actor, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, loan)
	}
}

// LoanReturn closes an open loan and reconciles its units back to Disponible.
func LoanReturn(svc loans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload notesRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loan, err := svc.Return(r.Context(), actor, id, loans.ReturnInput{Notes: trimmed(payload.Notes)})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loan)
	}
}

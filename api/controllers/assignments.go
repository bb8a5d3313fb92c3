package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/api/validators"
	"github.com/angelmondragon/gatic-backend/internal/assignments"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

type assignmentCreateRequest struct {
	ItemID     int64   `json:"articuloId" validate:"required,gt=0"`
	Quantity   int     `json:"cantidad" validate:"min=0"`
	Assignee   string  `json:"asignadoA" validate:"required,max=120"`
	Department *string `json:"departamento"`
	Notes      *string `json:"notas"`
}

type assignmentRetireRequest struct {
	Reason string     `json:"motivoRetiro" validate:"required"`
	At     *time.Time `json:"fechaRetiro"`
	Notes  *string    `json:"notas"`
}

func (r assignmentRetireRequest) toInput() (assignments.RetireInput, error) {
	reason, err := enums.ParseRetireReason(strings.TrimSpace(r.Reason))
	if err != nil {
		return assignments.RetireInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid motivoRetiro")
	}
	return assignments.RetireInput{Reason: reason, At: r.At, Notes: trimmed(r.Notes)}, nil
}

func AssignmentList(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "estado", enums.ParseAssignmentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseQueryInt64(r, "articuloId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), assignments.ListParams{
			Status:   status,
			Assignee: strings.TrimSpace(r.URL.Query().Get("asignadoA")),
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

func AssignmentGet(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

func AssignmentCreate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload assignmentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.Assign(r.Context(), actor, assignments.AssignInput{
			ItemID:     payload.ItemID,
			Quantity:   payload.Quantity,
			Assignee:   validators.SanitizeString(payload.Assignee, 120),
			Department: trimmed(payload.Department),
			Notes:      trimmed(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, assignment)
	}
}

func AssignmentReturn(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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
		assignment, err := svc.Return(r.Context(), actor, id, assignments.ReturnInput{Notes: trimmed(payload.Notes)})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// AssignmentRetire retires the assigned units without bringing them back to stock.
func AssignmentRetire(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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
		var payload assignmentRetireRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignment, err := svc.Retire(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

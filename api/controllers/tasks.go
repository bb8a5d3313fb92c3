package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/gatic-backend/api/middleware"
	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/api/validators"
	"github.com/angelmondragon/gatic-backend/internal/tasks"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

type taskCreateRequest struct {
	Type    string          `json:"tipo" validate:"required"`
	Origin  string          `json:"origen" validate:"max=120"`
	Details json.RawMessage `json:"detalles" validate:"required"`
}

func (r taskCreateRequest) toInput() (tasks.CreateInput, error) {
	taskType, err := enums.ParseTaskType(strings.TrimSpace(r.Type))
	if err != nil {
		return tasks.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tipo")
	}
	input := tasks.CreateInput{Type: taskType, Origin: validators.SanitizeString(r.Origin, 120)}
	switch taskType {
	case enums.TaskTypeQuickLoad:
		var load tasks.QuickLoad
		if err := validators.DecodeStrict(r.Details, &load); err != nil {
			return tasks.CreateInput{}, err
		}
		input.QuickLoad = &load
	case enums.TaskTypeQuickRetire:
		var retire tasks.QuickRetire
		if err := validators.DecodeStrict(r.Details, &retire); err != nil {
			return tasks.CreateInput{}, err
		}
		input.QuickRetire = &retire
	}
	return input, nil
}

type taskRejectRequest struct {
	Reason string `json:"motivoRechazo" validate:"required,max=500"`
}

func TaskList(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "estado", enums.ParseTaskStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		taskType, err := validators.ParseQueryEnum(r, "tipo", enums.ParseTaskType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), tasks.ListParams{Status: status, Type: taskType, Params: page})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TaskCreate files a CARGA_RAPIDA or RETIRO_RAPIDO request for admin review.
func TaskCreate(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload taskCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		task, err := svc.Create(r.Context(), actor, middleware.RoleFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, task)
	}
}

// TaskApprove applies the task's change to the inventory and marks it Aprobado.
func TaskApprove(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
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
		task, err := svc.Approve(r.Context(), actor, middleware.RoleFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, task)
	}
}

func TaskReject(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "task service unavailable"))
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
		var payload taskRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		task, err := svc.Reject(r.Context(), actor, middleware.RoleFromContext(r.Context()), id, strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, task)
	}
}

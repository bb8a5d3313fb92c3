package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/api/validators"
	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

// ActivityList pages the activity log, newest first.
func ActivityList(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activityType, err := validators.ParseQueryEnum(r, "tipo", enums.ParseActivityType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), activity.ListParams{
			Type:   activityType,
			Actor:  strings.TrimSpace(r.URL.Query().Get("actor")),
			Params: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

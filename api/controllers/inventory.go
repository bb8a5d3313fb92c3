package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/api/validators"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type inventoryCreateRequest struct {
	Name         string          `json:"nombre" validate:"required,max=120"`
	Model        string          `json:"modelo" validate:"required,max=120"`
	Brand        string          `json:"marca" validate:"max=120"`
	Category     string          `json:"categoria" validate:"max=80"`
	Description  *string         `json:"descripcion"`
	Supplier     *string         `json:"proveedor"`
	Location     *string         `json:"ubicacion"`
	SerialNumber *string         `json:"numeroSerie"`
	Quantity     int             `json:"cantidad" validate:"min=0"`
	UnitCost     decimal.Decimal `json:"costoUnitario"`
}

func (r inventoryCreateRequest) toInput() inventory.CreateInput {
	return inventory.CreateInput{
		Name:         validators.SanitizeString(r.Name, 120),
		Model:        validators.SanitizeString(r.Model, 120),
		Brand:        validators.SanitizeString(r.Brand, 120),
		Category:     validators.SanitizeString(r.Category, 80),
		Description:  trimmed(r.Description),
		Supplier:     trimmed(r.Supplier),
		Location:     trimmed(r.Location),
		SerialNumber: trimmed(r.SerialNumber),
		Quantity:     r.Quantity,
		UnitCost:     r.UnitCost,
	}
}

type inventoryRetireRequest struct {
	Quantity int        `json:"cantidad" validate:"min=0"`
	Reason   string     `json:"motivoRetiro" validate:"required"`
	At       *time.Time `json:"fechaRetiro"`
	Notes    *string    `json:"notas"`
}

func (r inventoryRetireRequest) toInput() (inventory.RetireInput, error) {
	reason, err := enums.ParseRetireReason(strings.TrimSpace(r.Reason))
	if err != nil {
		return inventory.RetireInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid motivoRetiro")
	}
	return inventory.RetireInput{
		Quantity: r.Quantity,
		Reason:   reason,
		At:       r.At,
		Notes:    trimmed(r.Notes),
	}, nil
}

type inventoryMoveRequest struct {
	Quantity int     `json:"cantidad" validate:"min=0"`
	Notes    *string `json:"notas"`
}

// InventoryList pages catalog rows, filtered by estado, categoria and a free text q.
func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "estado", enums.ParseItemStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		result, err := svc.List(r.Context(), inventory.ListParams{
			Status:       status,
			Category:     strings.TrimSpace(query.Get("categoria")),
			Search:       validators.SanitizeString(query.Get("q"), 120),
			IncludeEmpty: query.Get("incluirVacios") == "true",
			Params:       page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := parseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryCreate registers new stock: one serialized unit, or bulk units merged
// into the group's Disponible row.
func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload inventoryCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), actor, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, item)
	}
}

func InventoryRetire(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		var payload inventoryRetireRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Retire(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryMaintenance sends units to Mantenimiento, or brings them back when
// back is true.
func InventoryMaintenance(svc inventory.Service, back bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
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
		var payload inventoryMoveRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := inventory.MoveInput{Quantity: payload.Quantity, Notes: trimmed(payload.Notes)}

		move := svc.SendToMaintenance
		if back {
			move = svc.ReturnFromMaintenance
		}
		item, err := move(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func InventorySummary(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"grupos": summary})
	}
}

// InventoryExport streams the catalog as an xlsx workbook. The workbook is
// rendered into memory first so a failure still yields a JSON error.
func InventoryExport(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("inventario-%s.xlsx", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil && logg != nil {
			logg.Error(r.Context(), "inventory export write failed", err)
		}
	}
}


package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

type inventoryRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindByID(ctx context.Context, id int64) (*models.InventoryRow, error)
	List(ctx context.Context, opts listQuery) ([]models.InventoryRow, error)
	All(ctx context.Context) ([]models.InventoryRow, error)
}

type groupReconciler interface {
	Do(ctx context.Context, op string, key reconcile.Key, fn func(tx *gorm.DB) error) error
	Apply(ctx context.Context, tx *gorm.DB, key reconcile.Key, op Op) (reconcile.Result, error)
}

type activityRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes catalog reads and the commands that act on rows directly.
// Loans and assignments drive the same reconciler from their own packages.
type Service interface {
	Get(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Create(ctx context.Context, actor string, input CreateInput) (*Item, error)
	CreateTx(ctx context.Context, tx *gorm.DB, actor string, input CreateInput) (*models.InventoryRow, error)
	Retire(ctx context.Context, actor string, id int64, input RetireInput) (*Item, error)
	RetireTx(ctx context.Context, tx *gorm.DB, actor string, id int64, input RetireInput) (*models.InventoryRow, error)
	SendToMaintenance(ctx context.Context, actor string, id int64, input MoveInput) (*Item, error)
	ReturnFromMaintenance(ctx context.Context, actor string, id int64, input MoveInput) (*Item, error)
	Summary(ctx context.Context) ([]GroupSummary, error)
	Export(ctx context.Context, w io.Writer) error
}

type service struct {
	repo       inventoryRepository
	reconciler groupReconciler
	activity   activityRecorder
	outbox     outboxPublisher
	now        func() time.Time
}

// NewService builds the catalog service.
func NewService(repo inventoryRepository, reconciler groupReconciler, activityLog activityRecorder, outboxPublisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if activityLog == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if outboxPublisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       repo,
		reconciler: reconciler,
		activity:   activityLog,
		outbox:     outboxPublisher,
		now:        time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Item, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	item := ToItem(*row)
	return &item, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown estado %q", *params.Status)
	}

	query := listQuery{
		status:       params.Status,
		category:     strings.TrimSpace(params.Category),
		search:       strings.TrimSpace(params.Search),
		includeEmpty: params.IncludeEmpty,
		limit:        pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	rows, next := pkgpagination.Page(rows, params.Limit, func(m models.InventoryRow) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToItem(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) Create(ctx context.Context, actor string, input CreateInput) (*Item, error) {
	template, err := buildTemplate(input)
	if err != nil {
		return nil, err
	}

	var created *models.InventoryRow
	err = s.reconciler.Do(ctx, "intake", reconcile.KeyOf(template), func(tx *gorm.DB) error {
		row, err := s.CreateTx(ctx, tx, actor, input)
		created = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, *created), nil
}

// CreateTx registers new stock inside tx. The caller must hold the group lock.
func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, actor string, input CreateInput) (*models.InventoryRow, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	template, err := buildTemplate(input)
	if err != nil {
		return nil, err
	}
	if template.SerialNumber != nil {
		existing, err := s.repo.WithTx(tx).FindBySerial(ctx, *template.SerialNumber)
		switch {
		case err == nil:
			return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "numeroSerie %q already registered as articulo %d", *template.SerialNumber, existing.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check serial number")
		}
	}

	key := reconcile.KeyOf(template)
	res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
		return reconcile.Intake(c, template, input.Quantity, ids)
	})
	if err != nil {
		return nil, err
	}

	units := input.Quantity
	if template.SerialNumber != nil {
		units = 1
	}
	if err := s.activity.Record(ctx, tx, activity.Entry{
		Type:        enums.ActivityIntake,
		Description: fmt.Sprintf("Alta de %d x %s %s", units, key.Name, key.Model),
		Details:     map[string]any{"articuloId": res.Target.ID, "cantidad": units, "numeroSerie": template.SerialNumber},
		Actor:       actor,
	}); err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInventoryIntake,
		AggregateType: enums.AggregateInventoryRow,
		AggregateID:   res.Target.ID,
		Actor:         &outbox.ActorRef{Actor: actor},
		Data: payloads.InventoryIntakeEvent{
			Item:    ItemRef(res.Target, units),
			RowID:   res.Target.ID,
			Changes: RowChanges(res.Changes),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit intake event")
	}

	target := res.Target
	return &target, nil
}

func (s *service) Retire(ctx context.Context, actor string, id int64, input RetireInput) (*Item, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var retired *models.InventoryRow
	err = s.reconciler.Do(ctx, "retire", reconcile.KeyOf(*row), func(tx *gorm.DB) error {
		out, err := s.RetireTx(ctx, tx, actor, id, input)
		retired = out
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, *retired), nil
}

// RetireTx retires units of a Disponible or Mantenimiento row inside tx. The
// caller must hold the lock of the row's group.
func (s *service) RetireTx(ctx context.Context, tx *gorm.DB, actor string, id int64, input RetireInput) (*models.InventoryRow, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "motivoRetiro %q is not a known reason", input.Reason)
	}
	at := s.now()
	if input.At != nil {
		at = *input.At
	}

	row, err := s.repo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, id)
	}
	key := reconcile.KeyOf(*row)

	var from enums.ItemStatus
	var unit reconcile.Unit
	res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
		current, ok := c.Get(id)
		if !ok {
			return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "articulo %d not found", id)
		}
		if current.Status != enums.ItemStatusAvailable && current.Status != enums.ItemStatusMaintenance {
			return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "articulo %d is %s; retire it through its loan or assignment", id, current.Status)
		}
		from = current.Status
		unit = reconcile.UnitOf(current, input.Quantity)
		if err := checkHolds(current, unit); err != nil {
			return reconcile.Result{}, err
		}
		return reconcile.Retire(c, unit, from, input.Reason, at, ids)
	})
	if err != nil {
		return nil, err
	}

	if err := s.activity.Record(ctx, tx, activity.Entry{
		Type:        enums.ActivityRetire,
		Description: fmt.Sprintf("Retiro de %d x %s %s (%s)", unit.Quantity, key.Name, key.Model, input.Reason),
		Details:     map[string]any{"articuloId": id, "desde": from, "motivo": input.Reason, "notas": input.Notes},
		Actor:       actor,
	}); err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInventoryRetired,
		AggregateType: enums.AggregateInventoryRow,
		AggregateID:   res.Target.ID,
		Actor:         &outbox.ActorRef{Actor: actor},
		Data: payloads.InventoryRetiredEvent{
			Item:      UnitRef(unit),
			From:      from,
			Reason:    input.Reason,
			RetiredAt: *res.Target.RetiredAt,
			RowID:     res.Target.ID,
			Changes:   RowChanges(res.Changes),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit retire event")
	}

	target := res.Target
	return &target, nil
}

func (s *service) SendToMaintenance(ctx context.Context, actor string, id int64, input MoveInput) (*Item, error) {
	return s.move(ctx, actor, id, input, maintenanceOut)
}

func (s *service) ReturnFromMaintenance(ctx context.Context, actor string, id int64, input MoveInput) (*Item, error) {
	return s.move(ctx, actor, id, input, maintenanceBack)
}

type maintenanceDirection struct {
	op       string
	from     enums.ItemStatus
	to       enums.ItemStatus
	activity enums.ActivityType
	event    enums.OutboxEventType
	verb     string
	run      func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error)
}

var (
	maintenanceOut = maintenanceDirection{
		op:       "maintenance_send",
		from:     enums.ItemStatusAvailable,
		to:       enums.ItemStatusMaintenance,
		activity: enums.ActivityMaintenance,
		event:    enums.EventInventoryMaintenance,
		verb:     "Envío a mantenimiento",
		run: func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Checkout(c, u, enums.ItemStatusMaintenance, ids)
		},
	}
	maintenanceBack = maintenanceDirection{
		op:       "maintenance_return",
		from:     enums.ItemStatusMaintenance,
		to:       enums.ItemStatusAvailable,
		activity: enums.ActivityMaintenanceReturn,
		event:    enums.EventInventoryMaintenanceEnd,
		verb:     "Retorno de mantenimiento",
		run: func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Return(c, reconcile.ClosedRecord{Unit: u, From: enums.ItemStatusMaintenance}, ids)
		},
	}
)

func (s *service) move(ctx context.Context, actor string, id int64, input MoveInput, dir maintenanceDirection) (*Item, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	key := reconcile.KeyOf(*row)

	var res reconcile.Result
	err = s.reconciler.Do(ctx, dir.op, key, func(tx *gorm.DB) error {
		var unit reconcile.Unit
		var err error
		res, err = s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			current, ok := c.Get(id)
			if !ok {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "articulo %d not found", id)
			}
			if current.Status != dir.from {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "articulo %d is %s, expected %s", id, current.Status, dir.from)
			}
			unit = reconcile.UnitOf(current, input.Quantity)
			if err := checkHolds(current, unit); err != nil {
				return reconcile.Result{}, err
			}
			return dir.run(c, unit, ids)
		})
		if err != nil {
			return err
		}

		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        dir.activity,
			Description: fmt.Sprintf("%s de %d x %s %s", dir.verb, unit.Quantity, key.Name, key.Model),
			Details:     map[string]any{"articuloId": id, "cantidad": unit.Quantity, "notas": input.Notes},
			Actor:       actor,
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     dir.event,
			AggregateType: enums.AggregateInventoryRow,
			AggregateID:   res.Target.ID,
			Actor:         &outbox.ActorRef{Actor: actor},
			Data: payloads.InventoryMaintenanceEvent{
				Item:    UnitRef(unit),
				To:      dir.to,
				RowID:   res.Target.ID,
				Changes: RowChanges(res.Changes),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit maintenance event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, res.Target), nil
}

func (s *service) Summary(ctx context.Context) ([]GroupSummary, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	summaries := reconcile.Summarize(catalog)
	out := make([]GroupSummary, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toGroupSummary(summary))
	}
	return out, nil
}

func (s *service) catalog(ctx context.Context) (*reconcile.Catalog, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return reconcile.NewCatalog(rows)
}

// reload reads row back after commit so database stamped columns are filled.
func (s *service) reload(ctx context.Context, row models.InventoryRow) *Item {
	if fresh, err := s.repo.FindByID(ctx, row.ID); err == nil {
		row = *fresh
	}
	item := ToItem(row)
	return &item
}

func (s *service) find(ctx context.Context, id int64) (*models.InventoryRow, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "articulo id must be positive")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, id)
	}
	return row, nil
}

// checkHolds rejects requests for more units than a bulk row holds before the
// engine can read the shortfall as a broken record.
func checkHolds(row models.InventoryRow, u reconcile.Unit) error {
	if row.IsSerialized() || u.Quantity <= row.Quantity {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "articulo %d holds %d units, requested %d", row.ID, row.Quantity, u.Quantity)
}

func mapFindErr(err error, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "articulo %d not found", id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup articulo")
}

func requireActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "actor identity missing")
	}
	return actor, nil
}

func buildTemplate(input CreateInput) (models.InventoryRow, error) {
	row := models.InventoryRow{
		Name:        strings.TrimSpace(input.Name),
		Model:       strings.TrimSpace(input.Model),
		Brand:       strings.TrimSpace(input.Brand),
		Category:    strings.TrimSpace(input.Category),
		Description: trimmedOrNil(input.Description),
		Supplier:    trimmedOrNil(input.Supplier),
		Location:    trimmedOrNil(input.Location),
		Status:      enums.ItemStatusAvailable,
		UnitCost:    input.UnitCost,
	}
	if row.Name == "" || row.Model == "" {
		return models.InventoryRow{}, pkgerrors.New(pkgerrors.CodeValidation, "nombre and modelo are required")
	}
	if input.SerialNumber != nil {
		serial := strings.TrimSpace(*input.SerialNumber)
		if serial == "" {
			return models.InventoryRow{}, pkgerrors.New(pkgerrors.CodeValidation, "numeroSerie must not be blank")
		}
		row.SerialNumber = &serial
		row.Quantity = 1
	}
	return row, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

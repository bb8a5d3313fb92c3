package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

type assignmentRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
	List(ctx context.Context, opts listQuery) ([]models.Assignment, error)
}

type rowFinder interface {
	FindByID(ctx context.Context, id int64) (*models.InventoryRow, error)
}

type groupReconciler interface {
	Do(ctx context.Context, op string, key reconcile.Key, fn func(tx *gorm.DB) error) error
	Apply(ctx context.Context, tx *gorm.DB, key reconcile.Key, op inventory.Op) (reconcile.Result, error)
}

type activityRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	Assign(ctx context.Context, actor string, input AssignInput) (*Assignment, error)
	Return(ctx context.Context, actor string, id int64, input ReturnInput) (*Assignment, error)
	Retire(ctx context.Context, actor string, id int64, input RetireInput) (*Assignment, error)
	Get(ctx context.Context, id int64) (*Assignment, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo       assignmentRepository
	rows       rowFinder
	reconciler groupReconciler
	activity   activityRecorder
	outbox     outboxPublisher
	now        func() time.Time
}

func NewService(repo assignmentRepository, rows rowFinder, reconciler groupReconciler, activityLog activityRecorder, outboxPublisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if rows == nil {
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
		rows:       rows,
		reconciler: reconciler,
		activity:   activityLog,
		outbox:     outboxPublisher,
		now:        time.Now,
	}, nil
}

func (s *service) Assign(ctx context.Context, actor string, input AssignInput) (*Assignment, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	assignee := strings.TrimSpace(input.Assignee)
	if assignee == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asignadoA is required")
	}
	if input.ItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "articuloId must be positive")
	}

	row, err := s.rows.FindByID(ctx, input.ItemID)
	if err != nil {
		return nil, mapFindErr(err, "articulo", input.ItemID)
	}
	key := reconcile.KeyOf(*row)
	now := s.now().UTC()

	var record models.Assignment
	err = s.reconciler.Do(ctx, "assign", key, func(tx *gorm.DB) error {
		var unit reconcile.Unit
		res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			current, ok := c.Get(input.ItemID)
			if !ok {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "articulo %d not found", input.ItemID)
			}
			if current.Status != enums.ItemStatusAvailable {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "articulo %d is %s, only %s units can be assigned", current.ID, current.Status, enums.ItemStatusAvailable)
			}
			unit = reconcile.UnitOf(current, input.Quantity)
			return reconcile.Checkout(c, unit, enums.ItemStatusAssigned, ids)
		})
		if err != nil {
			return err
		}

		record = models.Assignment{
			ItemID:       unit.ArticuloID,
			Name:         unit.Name,
			Model:        unit.Model,
			SerialNumber: unit.SerialNumber,
			Quantity:     unit.Quantity,
			Assignee:     assignee,
			Department:   input.Department,
			AssignedAt:   now,
			Status:       enums.AssignmentStatusActive,
			Notes:        input.Notes,
			CreatedBy:    actor,
		}
		if err := s.repo.WithTx(tx).Create(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        enums.ActivityAssignment,
			Description: fmt.Sprintf("Asignación de %d x %s %s a %s", record.Quantity, record.Name, record.Model, assignee),
			Details:     map[string]any{"asignacionId": record.ID, "articuloId": record.ItemID, "departamento": input.Department},
			Actor:       actor,
			OccurredAt:  now,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventAssignmentCreated, actor, record, res.Changes)
	})
	if err != nil {
		return nil, err
	}
	out := toAssignment(record)
	return &out, nil
}

func (s *service) Return(ctx context.Context, actor string, id int64, input ReturnInput) (*Assignment, error) {
	return s.close(ctx, actor, id, closing{
		op:       "assignment_return",
		status:   enums.AssignmentStatusReturned,
		activity: enums.ActivityAssignmentReturn,
		event:    enums.EventAssignmentReturned,
		notes:    input.Notes,
		run: func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Return(c, reconcile.ClosedRecord{Unit: u, From: enums.ItemStatusAssigned}, ids)
		},
		describe: func(a models.Assignment) string {
			return fmt.Sprintf("Devolución de %d x %s %s por %s", a.Quantity, a.Name, a.Model, a.Assignee)
		},
	})
}

// Retire closes the assignment by retiring its units straight from Asignado.
func (s *service) Retire(ctx context.Context, actor string, id int64, input RetireInput) (*Assignment, error) {
	if !input.Reason.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "motivoRetiro %q is not a known reason", input.Reason)
	}
	at := s.now()
	if input.At != nil {
		at = *input.At
	}
	reason := input.Reason
	return s.close(ctx, actor, id, closing{
		op:       "assignment_retire",
		status:   enums.AssignmentStatusRetired,
		activity: enums.ActivityRetire,
		event:    enums.EventAssignmentRetired,
		reason:   &reason,
		notes:    input.Notes,
		run: func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Retire(c, u, enums.ItemStatusAssigned, reason, at, ids)
		},
		describe: func(a models.Assignment) string {
			return fmt.Sprintf("Retiro de %d x %s %s asignado a %s (%s)", a.Quantity, a.Name, a.Model, a.Assignee, reason)
		},
	})
}

type closing struct {
	op       string
	status   enums.AssignmentStatus
	activity enums.ActivityType
	event    enums.OutboxEventType
	reason   *enums.RetireReason
	notes    *string
	run      func(c *reconcile.Catalog, u reconcile.Unit, ids reconcile.IDAllocator) (reconcile.Result, error)
	describe func(a models.Assignment) string
}

func (s *service) close(ctx context.Context, actor string, id int64, cl closing) (*Assignment, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	key := reconcile.Key{Name: existing.Name, Model: existing.Model}

	var closed models.Assignment
	err = s.reconciler.Do(ctx, cl.op, key, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return mapFindErr(err, "asignacion", id)
		}
		if current.Status != enums.AssignmentStatusActive {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "asignacion %d is %s", id, current.Status)
		}

		unit := reconcile.Unit{
			ArticuloID:   current.ItemID,
			Name:         current.Name,
			Model:        current.Model,
			SerialNumber: current.SerialNumber,
			Quantity:     current.Quantity,
		}
		res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return cl.run(c, unit, ids)
		})
		if err != nil {
			return err
		}

		closedAt := s.now().UTC()
		affected, err := repo.Close(ctx, id, closeUpdate{status: cl.status, returnedAt: closedAt, reason: cl.reason, notes: cl.notes})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close assignment")
		}
		if affected != 1 {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "asignacion %d was closed concurrently", id)
		}
		current.Status = cl.status
		current.ReturnedAt = &closedAt
		current.RetireReason = cl.reason
		if cl.notes != nil {
			current.Notes = cl.notes
		}
		closed = *current

		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        cl.activity,
			Description: cl.describe(closed),
			Details:     map[string]any{"asignacionId": id, "articuloId": closed.ItemID, "filaDestino": res.Target.ID},
			Actor:       actor,
			OccurredAt:  closedAt,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, cl.event, actor, closed, res.Changes)
	})
	if err != nil {
		return nil, err
	}
	out := toAssignment(closed)
	return &out, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor string, a models.Assignment, changes []reconcile.Change) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   a.ID,
		Actor:         &outbox.ActorRef{Actor: actor},
		Data: payloads.AssignmentEvent{
			AssignmentID: a.ID,
			Item:         assignmentItem(a),
			Assignee:     a.Assignee,
			Status:       a.Status,
			Reason:       a.RetireReason,
			Changes:      inventory.RowChanges(changes),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit assignment event")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*Assignment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toAssignment(*a)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown estado %q", *params.Status)
	}
	query := listQuery{
		status:   params.Status,
		assignee: strings.ToLower(strings.TrimSpace(params.Assignee)),
		itemID:   params.ItemID,
		limit:    pkgpagination.LimitWithBuffer(params.Limit),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	rows, next := pkgpagination.Page(rows, params.Limit, func(m models.Assignment) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	items := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, toAssignment(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.Assignment, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asignacion id must be positive")
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "asignacion", id)
	}
	return a, nil
}

func requireActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "actor identity missing")
	}
	return actor, nil
}

func mapFindErr(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %d not found", what, id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what)
}

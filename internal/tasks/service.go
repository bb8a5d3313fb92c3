package tasks

import (
	"context"
	"encoding/json"
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

type taskRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindByID(ctx context.Context, id int64) (*models.PendingTask, error)
	List(ctx context.Context, opts listQuery) ([]models.PendingTask, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rowFinder interface {
	FindByID(ctx context.Context, id int64) (*models.InventoryRow, error)
}

type groupRunner interface {
	Do(ctx context.Context, op string, key reconcile.Key, fn func(tx *gorm.DB) error) error
}

// inventoryWriter runs catalog commands inside a caller owned transaction.
type inventoryWriter interface {
	CreateTx(ctx context.Context, tx *gorm.DB, actor string, input inventory.CreateInput) (*models.InventoryRow, error)
	RetireTx(ctx context.Context, tx *gorm.DB, actor string, id int64, input inventory.RetireInput) (*models.InventoryRow, error)
}

type activityRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry activity.Entry) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	Create(ctx context.Context, actor string, role enums.ActorRole, input CreateInput) (*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Approve(ctx context.Context, actor string, role enums.ActorRole, id int64) (*Task, error)
	Reject(ctx context.Context, actor string, role enums.ActorRole, id int64, reason string) (*Task, error)
}

type ServiceParams struct {
	Repo       taskRepository
	DB         txRunner
	Rows       rowFinder
	Reconciler groupRunner
	Inventory  inventoryWriter
	Activity   activityRecorder
	Outbox     outboxPublisher
}

type service struct {
	repo       taskRepository
	db         txRunner
	rows       rowFinder
	reconciler groupRunner
	inventory  inventoryWriter
	activity   activityRecorder
	outbox     outboxPublisher
	now        func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("task repository required")
	case p.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Rows == nil:
		return nil, fmt.Errorf("inventory repository required")
	case p.Reconciler == nil:
		return nil, fmt.Errorf("reconciler required")
	case p.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case p.Activity == nil:
		return nil, fmt.Errorf("activity recorder required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       p.Repo,
		db:         p.DB,
		rows:       p.Rows,
		reconciler: p.Reconciler,
		inventory:  p.Inventory,
		activity:   p.Activity,
		outbox:     p.Outbox,
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor string, role enums.ActorRole, input CreateInput) (*Task, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	if role == enums.ActorRoleReader {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "readers cannot file tasks")
	}

	var details any
	switch input.Type {
	case enums.TaskTypeQuickLoad:
		if input.QuickLoad == nil || input.QuickRetire != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "CARGA_RAPIDA requires only the carga payload")
		}
		if strings.TrimSpace(input.QuickLoad.Name) == "" || strings.TrimSpace(input.QuickLoad.Model) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "nombre and modelo are required")
		}
		if input.QuickLoad.SerialNumber == nil && input.QuickLoad.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cantidad must be positive")
		}
		details = input.QuickLoad
	case enums.TaskTypeQuickRetire:
		if input.QuickRetire == nil || input.QuickLoad != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "RETIRO_RAPIDO requires only the retiro payload")
		}
		if input.QuickRetire.ItemID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "articuloId must be positive")
		}
		if !input.QuickRetire.Reason.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "motivo %q is not a known reason", input.QuickRetire.Reason)
		}
		if _, err := s.rows.FindByID(ctx, input.QuickRetire.ItemID); err != nil {
			return nil, mapFindErr(err, "articulo", input.QuickRetire.ItemID)
		}
		details = input.QuickRetire
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown tipo %q", input.Type)
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode task details")
	}
	task := models.PendingTask{
		Type:      input.Type,
		Status:    enums.TaskStatusPending,
		Requester: actor,
		Origin:    strings.TrimSpace(input.Origin),
		Details:   raw,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &task); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create task")
		}
		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        enums.ActivityTaskCreated,
			Description: fmt.Sprintf("Tarea %s %d creada desde %s", task.Type, task.ID, originOrDefault(task.Origin)),
			Details:     map[string]any{"tareaId": task.ID, "tipo": task.Type},
			Actor:       actor,
		}); err != nil {
			return err
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTaskCreated,
			AggregateType: enums.AggregatePendingTask,
			AggregateID:   task.ID,
			Actor:         &outbox.ActorRef{Actor: actor, Role: string(role)},
			Data: payloads.TaskCreatedEvent{
				TaskID:    task.ID,
				Type:      task.Type,
				Requester: actor,
				Origin:    task.Origin,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit task event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := toTask(task)
	return &out, nil
}

// Approve executes the request and flips the task in one transaction, under
// the lock of the group it touches.
func (s *service) Approve(ctx context.Context, actor string, role enums.ActorRole, id int64) (*Task, error) {
	actor, err := requireAdmin(actor, role)
	if err != nil {
		return nil, err
	}
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != enums.TaskStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "tarea %d is %s", id, task.Status)
	}

	key, run, err := s.plan(ctx, task, actor)
	if err != nil {
		return nil, err
	}

	var resolved models.PendingTask
	err = s.reconciler.Do(ctx, "task_approve", key, func(tx *gorm.DB) error {
		current, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := run(tx); err != nil {
			return err
		}
		resolved, err = s.resolve(ctx, tx, *current, enums.TaskStatusApproved, actor, role, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toTask(resolved)
	return &out, nil
}

// plan decodes the task payload into the group it touches and the catalog
// command approval runs.
func (s *service) plan(ctx context.Context, task *models.PendingTask, actor string) (reconcile.Key, func(tx *gorm.DB) error, error) {
	switch task.Type {
	case enums.TaskTypeQuickLoad:
		var load QuickLoad
		if err := json.Unmarshal(task.Details, &load); err != nil {
			return reconcile.Key{}, nil, pkgerrors.Wrap(pkgerrors.CodeInvariant, err, "decode carga payload")
		}
		key := reconcile.Key{Name: strings.TrimSpace(load.Name), Model: strings.TrimSpace(load.Model)}
		return key, func(tx *gorm.DB) error {
			_, err := s.inventory.CreateTx(ctx, tx, actor, load.input())
			return err
		}, nil
	case enums.TaskTypeQuickRetire:
		var retire QuickRetire
		if err := json.Unmarshal(task.Details, &retire); err != nil {
			return reconcile.Key{}, nil, pkgerrors.Wrap(pkgerrors.CodeInvariant, err, "decode retiro payload")
		}
		row, err := s.rows.FindByID(ctx, retire.ItemID)
		if err != nil {
			return reconcile.Key{}, nil, mapFindErr(err, "articulo", retire.ItemID)
		}
		return reconcile.KeyOf(*row), func(tx *gorm.DB) error {
			_, err := s.inventory.RetireTx(ctx, tx, actor, retire.ItemID, retire.input())
			return err
		}, nil
	default:
		return reconcile.Key{}, nil, pkgerrors.Newf(pkgerrors.CodeInvariant, "tarea %d has unknown tipo %q", task.ID, task.Type)
	}
}

func (s *service) Reject(ctx context.Context, actor string, role enums.ActorRole, id int64, reason string) (*Task, error) {
	actor, err := requireAdmin(actor, role)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "motivoRechazo is required")
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	var resolved models.PendingTask
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		resolved, err = s.resolve(ctx, tx, *current, enums.TaskStatusRejected, actor, role, &reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toTask(resolved)
	return &out, nil
}

func (s *service) lockPending(ctx context.Context, tx *gorm.DB, id int64) (*models.PendingTask, error) {
	current, err := s.repo.WithTx(tx).FindForUpdate(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "tarea", id)
	}
	if current.Status != enums.TaskStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "tarea %d is %s", id, current.Status)
	}
	return current, nil
}

func (s *service) resolve(ctx context.Context, tx *gorm.DB, task models.PendingTask, status enums.TaskStatus, actor string, role enums.ActorRole, reason *string) (models.PendingTask, error) {
	at := s.now().UTC()
	affected, err := s.repo.WithTx(tx).Resolve(ctx, task.ID, status, actor, at, reason)
	if err != nil {
		return models.PendingTask{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve task")
	}
	if affected != 1 {
		return models.PendingTask{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "tarea %d was resolved concurrently", task.ID)
	}
	task.Status = status
	task.ResolvedBy = &actor
	task.ResolvedAt = &at
	task.RejectReason = reason

	activityType := enums.ActivityTaskApproved
	verb := "aprobada"
	if status == enums.TaskStatusRejected {
		activityType = enums.ActivityTaskRejected
		verb = "rechazada"
	}
	if err := s.activity.Record(ctx, tx, activity.Entry{
		Type:        activityType,
		Description: fmt.Sprintf("Tarea %s %d %s", task.Type, task.ID, verb),
		Details:     map[string]any{"tareaId": task.ID, "solicitante": task.Requester, "motivoRechazo": reason},
		Actor:       actor,
		OccurredAt:  at,
	}); err != nil {
		return models.PendingTask{}, err
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTaskResolved,
		AggregateType: enums.AggregatePendingTask,
		AggregateID:   task.ID,
		Actor:         &outbox.ActorRef{Actor: actor, Role: string(role)},
		Data: payloads.TaskResolvedEvent{
			TaskID:       task.ID,
			Type:         task.Type,
			Status:       status,
			ResolvedBy:   actor,
			RejectReason: reason,
		},
	})
	if err != nil {
		return models.PendingTask{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit task event")
	}
	return task, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Task, error) {
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toTask(*task)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown estado %q", *params.Status)
	}
	if params.Type != nil && !params.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown tipo %q", *params.Type)
	}
	query := listQuery{
		status:   params.Status,
		taskType: params.Type,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tasks")
	}
	rows, next := pkgpagination.Page(rows, params.Limit, func(m models.PendingTask) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	items := make([]Task, 0, len(rows))
	for _, row := range rows {
		items = append(items, toTask(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.PendingTask, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tarea id must be positive")
	}
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "tarea", id)
	}
	return task, nil
}

func requireActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "actor identity missing")
	}
	return actor, nil
}

func requireAdmin(actor string, role enums.ActorRole) (string, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return "", err
	}
	if role != enums.ActorRoleAdmin {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only administrators resolve tasks")
	}
	return actor, nil
}

func originOrDefault(origin string) string {
	if origin == "" {
		return "terminal"
	}
	return origin
}

func mapFindErr(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %d not found", what, id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what)
}

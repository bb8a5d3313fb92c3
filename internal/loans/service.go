package loans

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
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

// SystemActor signs changes made by background jobs.
const SystemActor = "sistema"

const overdueBatchSize = 200

type loanRepository interface {
	WithTx(tx *gorm.DB) *Repository
	FindByID(ctx context.Context, id int64) (*models.Loan, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Loan, error)
	List(ctx context.Context, opts listQuery) ([]models.Loan, error)
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
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	Lend(ctx context.Context, actor string, input LendInput) (*Loan, error)
	Return(ctx context.Context, actor string, id int64, input ReturnInput) (*Loan, error)
	Get(ctx context.Context, id int64) (*Loan, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	// MarkOverdue flags Activo loans past due at now and reports how many flipped.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type ServiceParams struct {
	Repo       loanRepository
	Rows       rowFinder
	Reconciler groupReconciler
	Activity   activityRecorder
	Outbox     outboxPublisher
	Logger     *logger.Logger
}

type service struct {
	repo       loanRepository
	rows       rowFinder
	reconciler groupReconciler
	activity   activityRecorder
	outbox     outboxPublisher
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("loan repository required")
	}
	if p.Rows == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if p.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if p.Activity == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       p.Repo,
		rows:       p.Rows,
		reconciler: p.Reconciler,
		activity:   p.Activity,
		outbox:     p.Outbox,
		logg:       p.Logger,
		now:        time.Now,
	}, nil
}

func (s *service) Lend(ctx context.Context, actor string, input LendInput) (*Loan, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity missing")
	}
	borrower := strings.TrimSpace(input.Borrower)
	if borrower == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prestadoA is required")
	}
	if input.ItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "articuloId must be positive")
	}
	now := s.now().UTC()
	if input.DueAt.IsZero() || !input.DueAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fechaVencimiento must be in the future")
	}

	row, err := s.rows.FindByID(ctx, input.ItemID)
	if err != nil {
		return nil, mapFindErr(err, "articulo", input.ItemID)
	}
	key := reconcile.KeyOf(*row)

	var loan models.Loan
	err = s.reconciler.Do(ctx, "lend", key, func(tx *gorm.DB) error {
		var unit reconcile.Unit
		res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			current, ok := c.Get(input.ItemID)
			if !ok {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "articulo %d not found", input.ItemID)
			}
			if current.Status != enums.ItemStatusAvailable {
				return reconcile.Result{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "articulo %d is %s, only %s units can be lent", current.ID, current.Status, enums.ItemStatusAvailable)
			}
			unit = reconcile.UnitOf(current, input.Quantity)
			return reconcile.Checkout(c, unit, enums.ItemStatusLoaned, ids)
		})
		if err != nil {
			return err
		}

		loan = models.Loan{
			ItemID:        unit.ArticuloID,
			Name:          unit.Name,
			Model:         unit.Model,
			SerialNumber:  unit.SerialNumber,
			Quantity:      unit.Quantity,
			Borrower:      borrower,
			BorrowerEmail: input.BorrowerEmail,
			LoanedAt:      now,
			DueAt:         input.DueAt.UTC(),
			Status:        enums.LoanStatusActive,
			Notes:         input.Notes,
			CreatedBy:     actor,
		}
		if err := s.repo.WithTx(tx).Create(ctx, &loan); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
		}

		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        enums.ActivityLoan,
			Description: fmt.Sprintf("Préstamo de %d x %s %s a %s", loan.Quantity, loan.Name, loan.Model, borrower),
			Details:     map[string]any{"prestamoId": loan.ID, "articuloId": loan.ItemID, "fechaVencimiento": loan.DueAt},
			Actor:       actor,
			OccurredAt:  now,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventLoanCreated, actor, loan, res.Changes)
	})
	if err != nil {
		return nil, err
	}
	out := toLoan(loan)
	return &out, nil
}

// Return brings the units of an Activo or Vencido loan back to Disponible.
func (s *service) Return(ctx context.Context, actor string, id int64, input ReturnInput) (*Loan, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity missing")
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	key := reconcile.Key{Name: existing.Name, Model: existing.Model}

	var loan *models.Loan
	err = s.reconciler.Do(ctx, "loan_return", key, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return mapFindErr(err, "prestamo", id)
		}
		if !current.Status.IsOpen() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "prestamo %d is %s", id, current.Status)
		}

		unit := reconcile.Unit{
			ArticuloID:   current.ItemID,
			Name:         current.Name,
			Model:        current.Model,
			SerialNumber: current.SerialNumber,
			Quantity:     current.Quantity,
		}
		res, err := s.reconciler.Apply(ctx, tx, key, func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error) {
			return reconcile.Return(c, reconcile.ClosedRecord{Unit: unit, From: enums.ItemStatusLoaned}, ids)
		})
		if err != nil {
			return err
		}

		returnedAt := s.now().UTC()
		affected, err := repo.Close(ctx, id, returnedAt, input.Notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close loan")
		}
		if affected != 1 {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "prestamo %d was closed concurrently", id)
		}
		current.Status = enums.LoanStatusReturned
		current.ReturnedAt = &returnedAt
		if input.Notes != nil {
			current.Notes = input.Notes
		}
		loan = current

		if err := s.activity.Record(ctx, tx, activity.Entry{
			Type:        enums.ActivityLoanReturn,
			Description: fmt.Sprintf("Devolución de %d x %s %s por %s", current.Quantity, current.Name, current.Model, current.Borrower),
			Details:     map[string]any{"prestamoId": id, "articuloId": current.ItemID, "filaDestino": res.Target.ID},
			Actor:       actor,
			OccurredAt:  returnedAt,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventLoanReturned, actor, *current, res.Changes)
	})
	if err != nil {
		return nil, err
	}
	out := toLoan(*loan)
	return &out, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor string, loan models.Loan, changes []reconcile.Change) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLoan,
		AggregateID:   loan.ID,
		Actor:         &outbox.ActorRef{Actor: actor},
		Data: payloads.LoanEvent{
			LoanID:     loan.ID,
			Item:       loanItem(loan),
			Borrower:   loan.Borrower,
			DueAt:      loan.DueAt,
			ReturnedAt: loan.ReturnedAt,
			Status:     loan.Status,
			Changes:    inventory.RowChanges(changes),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit loan event")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id int64) (*Loan, error) {
	loan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toLoan(*loan)
	return &out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown estado %q", *params.Status)
	}
	query := listQuery{
		status:   params.Status,
		borrower: strings.ToLower(strings.TrimSpace(params.Borrower)),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}
	rows, next := pkgpagination.Page(rows, params.Limit, func(m models.Loan) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	items := make([]Loan, 0, len(rows))
	for _, row := range rows {
		items = append(items, toLoan(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListDue(ctx, now, overdueBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due loans")
	}

	flagged := 0
	for _, loan := range due {
		loan := loan
		key := reconcile.Key{Name: loan.Name, Model: loan.Model}
		var flipped bool
		err := s.reconciler.Do(ctx, "loan_overdue", key, func(tx *gorm.DB) error {
			affected, err := s.repo.WithTx(tx).MarkOverdue(ctx, loan.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark loan overdue")
			}
			if affected == 0 {
				return nil
			}
			flipped = true

			days := int(now.Sub(loan.DueAt).Hours() / 24)
			if err := s.activity.Record(ctx, tx, activity.Entry{
				Type:        enums.ActivityLoanOverdue,
				Description: fmt.Sprintf("Préstamo %d de %s %s a %s vencido", loan.ID, loan.Name, loan.Model, loan.Borrower),
				Details:     map[string]any{"prestamoId": loan.ID, "fechaVencimiento": loan.DueAt, "diasVencido": days},
				Actor:       SystemActor,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventLoanOverdue,
				AggregateType: enums.AggregateLoan,
				AggregateID:   loan.ID,
				Actor:         &outbox.ActorRef{Actor: SystemActor},
				Data: payloads.LoanOverdueEvent{
					LoanID:      loan.ID,
					Item:        loanItem(loan),
					Borrower:    loan.Borrower,
					DueAt:       loan.DueAt,
					DaysOverdue: days,
				},
			})
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeLocked) {
				s.logg.Warn(s.logg.WithField(ctx, "loan_id", loan.ID), "group busy, overdue flag deferred")
				continue
			}
			return flagged, err
		}
		if flipped {
			flagged++
		}
	}
	return flagged, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.Loan, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prestamo id must be positive")
	}
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "prestamo", id)
	}
	return loan, nil
}

func mapFindErr(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s %d not found", what, id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what)
}

package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	"github.com/angelmondragon/gatic-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

// Op is one engine operation over a freshly loaded group catalog.
type Op func(c *reconcile.Catalog, ids reconcile.IDAllocator) (reconcile.Result, error)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type groupLocker interface {
	Lock(ctx context.Context, key string) (pkgredis.Unlock, error)
}

// Reconciler runs catalog commands: group lock, one transaction, engine op,
// change set written back.
type Reconciler struct {
	db      txRunner
	repo    *Repository
	locker  groupLocker
	metrics *metrics.ReconcileMetrics
	logg    *logger.Logger

	// pending holds row change counts per open transaction until it commits.
	mu      sync.Mutex
	pending map[*gorm.DB]map[reconcile.ChangeKind]int
}

func NewReconciler(db txRunner, repo *Repository, locker groupLocker, m *metrics.ReconcileMetrics, logg *logger.Logger) (*Reconciler, error) {
	if db == nil {
		return nil, errors.New("transaction runner required")
	}
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	if locker == nil {
		return nil, errors.New("group locker required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Reconciler{
		db:      db,
		repo:    repo,
		locker:  locker,
		metrics: m,
		logg:    logg,
		pending: make(map[*gorm.DB]map[reconcile.ChangeKind]int),
	}, nil
}

// Do holds the lock of key while fn runs inside a transaction. Everything fn
// writes through tx commits or rolls back together.
func (r *Reconciler) Do(ctx context.Context, op string, key reconcile.Key, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	ctx = r.logg.WithGroup(ctx, key.Name, key.Model)

	unlock, err := r.locker.Lock(ctx, pkgredis.GroupLockKey(key.Name, key.Model))
	if err != nil {
		r.metrics.Observe(op, outcome(err), time.Since(start))
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "release group lock failed")
		}
	}()

	tally := map[reconcile.ChangeKind]int{}
	err = r.db.WithTx(ctx, func(tx *gorm.DB) error {
		r.track(tx, tally)
		defer r.untrack(tx)
		return fn(tx)
	})
	r.metrics.Observe(op, outcome(err), time.Since(start))
	if err == nil {
		for kind, n := range tally {
			r.metrics.AddChanges(string(kind), n)
		}
	}
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		r.logg.Error(r.logg.WithField(ctx, "op", op), "reconciliation rejected by invariant check", err)
	}
	return err
}

// Apply loads the key group inside tx, runs op over it and writes the change set.
func (r *Reconciler) Apply(ctx context.Context, tx *gorm.DB, key reconcile.Key, op Op) (reconcile.Result, error) {
	repo := r.repo.WithTx(tx)
	rows, err := repo.ListGroup(ctx, key)
	if err != nil {
		return reconcile.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory group")
	}
	catalog, err := reconcile.NewCatalog(rows)
	if err != nil {
		return reconcile.Result{}, err
	}

	res, err := op(catalog, NewSequenceAllocator(ctx, tx))
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run reconciliation")
		}
		return reconcile.Result{}, err
	}
	if err := repo.ApplyChanges(ctx, res.Changes); err != nil {
		return reconcile.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write inventory changes")
	}

	r.record(tx, res.Changes)
	return res, nil
}

func (r *Reconciler) track(tx *gorm.DB, tally map[reconcile.ChangeKind]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[tx] = tally
}

func (r *Reconciler) untrack(tx *gorm.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, tx)
}

// record adds changes to the tally of tx. Changes applied in a transaction
// not opened by Do are never counted since their commit is not observed.
func (r *Reconciler) record(tx *gorm.DB, changes []reconcile.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tally, ok := r.pending[tx]
	if !ok {
		return
	}
	for _, change := range changes {
		tally[change.Kind]++
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}

package loans

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// Repository persists loan records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindForUpdate loads a loan and locks it until the transaction ends.
func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Close stamps the return of an open loan.
func (r *Repository) Close(ctx context.Context, id int64, returnedAt time.Time, notes *string) (int64, error) {
	updates := map[string]any{
		"status":      enums.LoanStatusReturned,
		"returned_at": returnedAt,
		"updated_at":  time.Now().UTC(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status IN ?", id, []enums.LoanStatus{enums.LoanStatusActive, enums.LoanStatusOverdue}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MarkOverdue flips an Activo loan to Vencido. Zero rows means it was returned
// or flagged concurrently.
func (r *Repository) MarkOverdue(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, enums.LoanStatusActive).
		Updates(map[string]any{"status": enums.LoanStatusOverdue, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// ListDue returns Activo loans whose due date is before now, oldest due first.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at < ?", enums.LoanStatusActive, now).
		Order("due_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Loan, error) {
	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.borrower != "" {
		query = query.Where("LOWER(borrower) LIKE ?", "%"+opts.borrower+"%")
	}
	if opts.itemID > 0 {
		query = query.Where("item_id = ?", opts.itemID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var loans []models.Loan
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

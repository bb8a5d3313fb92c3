package assignments

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

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

func (r *Repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// closeUpdate is the terminal state written when an assignment ends.
type closeUpdate struct {
	status     enums.AssignmentStatus
	returnedAt time.Time
	reason     *enums.RetireReason
	notes      *string
}

// Close ends an Activo assignment. Zero rows means it was closed concurrently.
func (r *Repository) Close(ctx context.Context, id int64, u closeUpdate) (int64, error) {
	updates := map[string]any{
		"status":      u.status,
		"returned_at": u.returnedAt,
		"updated_at":  time.Now().UTC(),
	}
	if u.reason != nil {
		updates["retire_reason"] = *u.reason
	}
	if u.notes != nil {
		updates["notes"] = *u.notes
	}
	res := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, enums.AssignmentStatusActive).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.assignee != "" {
		query = query.Where("LOWER(assignee) LIKE ?", "%"+opts.assignee+"%")
	}
	if opts.itemID > 0 {
		query = query.Where("item_id = ?", opts.itemID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var out []models.Assignment
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

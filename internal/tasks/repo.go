package tasks

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

func (r *Repository) Create(ctx context.Context, task *models.PendingTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.PendingTask, error) {
	var task models.PendingTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*models.PendingTask, error) {
	var task models.PendingTask
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Resolve moves a Pendiente task to status. Zero rows means someone resolved it first.
func (r *Repository) Resolve(ctx context.Context, id int64, status enums.TaskStatus, by string, at time.Time, rejectReason *string) (int64, error) {
	updates := map[string]any{
		"status":      status,
		"resolved_by": by,
		"resolved_at": at,
		"updated_at":  time.Now().UTC(),
	}
	if rejectReason != nil {
		updates["reject_reason"] = *rejectReason
	}
	res := r.db.WithContext(ctx).
		Model(&models.PendingTask{}).
		Where("id = ? AND status = ?", id, enums.TaskStatusPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.PendingTask, error) {
	query := r.db.WithContext(ctx).Model(&models.PendingTask{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.taskType != nil {
		query = query.Where("type = ?", *opts.taskType)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var out []models.PendingTask
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

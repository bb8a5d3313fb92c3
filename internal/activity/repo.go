package activity

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
)

// Repository persists activity entries. Entries are only ever inserted.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Insert(ctx context.Context, entry *models.ActivityEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries newest first using cursor pagination on (occurred_at, id).
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.ActivityEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityEntry{})
	if opts.activityType != nil {
		query = query.Where("type = ?", *opts.activityType)
	}
	if opts.actor != "" {
		query = query.Where("actor = ?", opts.actor)
	}
	if opts.cursor != nil {
		query = query.Where("(occurred_at < ?) OR (occurred_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var rows []models.ActivityEntry
	if err := query.Order("occurred_at DESC").Order("id DESC").Limit(opts.limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

package inventory

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gatic-backend/internal/reconcile"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
)

// Repository exposes catalog row persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository tied to the provided GORM DB.
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

// FindByID loads a single row.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.InventoryRow, error) {
	var row models.InventoryRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindBySerial loads the row carrying serial, in any group.
func (r *Repository) FindBySerial(ctx context.Context, serial string) (*models.InventoryRow, error) {
	var row models.InventoryRow
	if err := r.db.WithContext(ctx).Where("serial_number = ?", serial).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListGroup reads every row of a (name, model) group and locks them for the
// rest of the transaction.
func (r *Repository) ListGroup(ctx context.Context, key reconcile.Key) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ? AND model = ?", key.Name, key.Model).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// All returns every row ordered by id.
func (r *Repository) All(ctx context.Context) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns filtered rows newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.InventoryRow, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryRow{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.category != "" {
		query = query.Where("category = ?", opts.category)
	}
	if opts.search != "" {
		like := "%" + strings.ToLower(opts.search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(model) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(COALESCE(serial_number, '')) LIKE ?",
			like, like, like, like,
		)
	}
	if !opts.includeEmpty {
		query = query.Where("quantity > 0")
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var rows []models.InventoryRow
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyChanges writes a reconciliation change set. Deletes go first so a
// bucket freed by a prune can be recreated in the same transaction.
func (r *Repository) ApplyChanges(ctx context.Context, changes []reconcile.Change) error {
	db := r.db.WithContext(ctx)
	for _, change := range changes {
		if change.Kind != reconcile.ChangeDeleted {
			continue
		}
		res := db.Delete(&models.InventoryRow{}, change.Row.ID)
		if res.Error != nil {
			return fmt.Errorf("delete row %d: %w", change.Row.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("delete row %d: %w", change.Row.ID, gorm.ErrRecordNotFound)
		}
	}
	for _, change := range changes {
		row := change.Row
		switch change.Kind {
		case reconcile.ChangeUpdated:
			res := db.Model(&models.InventoryRow{ID: row.ID}).Select("*").Omit("id", "created_at").Updates(&row)
			if res.Error != nil {
				return fmt.Errorf("update row %d: %w", row.ID, res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("update row %d: %w", row.ID, gorm.ErrRecordNotFound)
			}
		case reconcile.ChangeCreated:
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("create row %d: %w", row.ID, err)
			}
		}
	}
	return nil
}

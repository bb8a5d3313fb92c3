package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
)

// RowSequence names the id_sequences counter that numbers catalog rows.
const RowSequence = "inventory_rows"

// SequenceAllocator hands out row ids from id_sequences inside the caller's
// transaction, so an id is consumed only when the command commits and a pruned
// row's id is never handed out again.
type SequenceAllocator struct {
	ctx  context.Context
	tx   *gorm.DB
	name string
}

// NewSequenceAllocator binds the row sequence to tx.
func NewSequenceAllocator(ctx context.Context, tx *gorm.DB) *SequenceAllocator {
	return &SequenceAllocator{ctx: ctx, tx: tx, name: RowSequence}
}

// NextID advances the counter and returns its new value. A missing counter is
// created one past the largest existing row id.
func (s *SequenceAllocator) NextID() (int64, error) {
	db := s.tx.WithContext(s.ctx)
	res := db.Model(&models.IDSequence{}).
		Where("name = ?", s.name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", s.name, res.Error)
	}
	if res.RowsAffected == 0 {
		var highest int64
		if err := db.Model(&models.InventoryRow{}).Select("COALESCE(MAX(id), 0)").Scan(&highest).Error; err != nil {
			return 0, fmt.Errorf("seed sequence %s: %w", s.name, err)
		}
		seq := models.IDSequence{Name: s.name, Value: highest + 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("seed sequence %s: %w", s.name, err)
		}
		return seq.Value, nil
	}

	var seq models.IDSequence
	if err := db.Where("name = ?", s.name).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", s.name, err)
	}
	return seq.Value, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// InventoryRow is one catalog row: a serialized unit or a bulk bucket of a (name, model) group.
type InventoryRow struct {
	ID           int64               `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name         string              `gorm:"column:name;not null"`
	Model        string              `gorm:"column:model;not null"`
	Brand        string              `gorm:"column:brand;not null;default:''"`
	Category     string              `gorm:"column:category;not null;default:''"`
	Description  *string             `gorm:"column:description"`
	Supplier     *string             `gorm:"column:supplier"`
	Location     *string             `gorm:"column:location"`
	SerialNumber *string             `gorm:"column:serial_number"`
	Status       enums.ItemStatus    `gorm:"column:status;not null"`
	Quantity     int                 `gorm:"column:quantity;not null;default:0"`
	UnitCost     decimal.Decimal     `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	RetireReason *enums.RetireReason `gorm:"column:retire_reason"`
	RetiredAt    *time.Time          `gorm:"column:retired_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSerialized reports whether the row tracks a single serialized unit.
func (r InventoryRow) IsSerialized() bool {
	return r.SerialNumber != nil
}

// Units is the row's contribution to its group's fleet size.
func (r InventoryRow) Units() int {
	if r.IsSerialized() {
		return 1
	}
	return r.Quantity
}

// Clone returns a copy that shares no pointers with r.
func (r InventoryRow) Clone() InventoryRow {
	out := r
	out.Description = cloneString(r.Description)
	out.Supplier = cloneString(r.Supplier)
	out.Location = cloneString(r.Location)
	out.SerialNumber = cloneString(r.SerialNumber)
	if r.RetireReason != nil {
		reason := *r.RetireReason
		out.RetireReason = &reason
	}
	if r.RetiredAt != nil {
		at := *r.RetiredAt
		out.RetiredAt = &at
	}
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

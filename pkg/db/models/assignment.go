package models

import (
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// Assignment records units handed to a person or department without a due date.
type Assignment struct {
	ID           int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID       int64                  `gorm:"column:item_id;not null"`
	Name         string                 `gorm:"column:name;not null"`
	Model        string                 `gorm:"column:model;not null"`
	SerialNumber *string                `gorm:"column:serial_number"`
	Quantity     int                    `gorm:"column:quantity;not null"`
	Assignee     string                 `gorm:"column:assignee;not null"`
	Department   *string                `gorm:"column:department"`
	AssignedAt   time.Time              `gorm:"column:assigned_at;not null"`
	ReturnedAt   *time.Time             `gorm:"column:returned_at"`
	Status       enums.AssignmentStatus `gorm:"column:status;not null"`
	RetireReason *enums.RetireReason    `gorm:"column:retire_reason"`
	Notes        *string                `gorm:"column:notes"`
	CreatedBy    string                 `gorm:"column:created_by;not null"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

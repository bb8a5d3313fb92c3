package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// PendingTask is a quick-load or quick-retire request awaiting admin review.
type PendingTask struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Type         enums.TaskType   `gorm:"column:type;not null"`
	Status       enums.TaskStatus `gorm:"column:status;not null"`
	Requester    string           `gorm:"column:requester;not null"`
	Origin       string           `gorm:"column:origin;not null;default:''"`
	Details      json.RawMessage  `gorm:"column:details;type:jsonb;not null"`
	ResolvedBy   *string          `gorm:"column:resolved_by"`
	ResolvedAt   *time.Time       `gorm:"column:resolved_at"`
	RejectReason *string          `gorm:"column:reject_reason"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

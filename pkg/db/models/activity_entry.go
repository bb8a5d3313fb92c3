package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// ActivityEntry is an append-only audit line shown in the recent activity feed.
type ActivityEntry struct {
	ID          int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Type        enums.ActivityType `gorm:"column:type;not null"`
	Description string             `gorm:"column:description;not null"`
	Details     json.RawMessage    `gorm:"column:details;type:jsonb"`
	Actor       string             `gorm:"column:actor;not null"`
	OccurredAt  time.Time          `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

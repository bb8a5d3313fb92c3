package models

import (
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// Loan records units lent out with a due date. Loans are never deleted.
type Loan struct {
	ID            int64            `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID        int64            `gorm:"column:item_id;not null"`
	Name          string           `gorm:"column:name;not null"`
	Model         string           `gorm:"column:model;not null"`
	SerialNumber  *string          `gorm:"column:serial_number"`
	Quantity      int              `gorm:"column:quantity;not null"`
	Borrower      string           `gorm:"column:borrower;not null"`
	BorrowerEmail *string          `gorm:"column:borrower_email"`
	LoanedAt      time.Time        `gorm:"column:loaned_at;not null"`
	DueAt         time.Time        `gorm:"column:due_at;not null"`
	ReturnedAt    *time.Time       `gorm:"column:returned_at"`
	Status        enums.LoanStatus `gorm:"column:status;not null"`
	Notes         *string          `gorm:"column:notes"`
	CreatedBy     string           `gorm:"column:created_by;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

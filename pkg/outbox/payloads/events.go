package payloads

import (
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// ItemRef identifies the units an event moved.
type ItemRef struct {
	ItemID       int64   `json:"item_id"`
	Name         string  `json:"name"`
	Model        string  `json:"model"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Quantity     int     `json:"quantity"`
}

// RowChange mirrors one catalog row touched by a reconciliation.
type RowChange struct {
	RowID    int64            `json:"row_id"`
	Kind     string           `json:"kind"`
	Status   enums.ItemStatus `json:"status"`
	Quantity int              `json:"quantity"`
}

// InventoryIntakeEvent is emitted when new stock enters the catalog.
type InventoryIntakeEvent struct {
	Item    ItemRef     `json:"item"`
	RowID   int64       `json:"row_id"`
	Changes []RowChange `json:"changes"`
}

// InventoryRetiredEvent is emitted for every retirement, whatever the source estado.
type InventoryRetiredEvent struct {
	Item      ItemRef            `json:"item"`
	From      enums.ItemStatus   `json:"from"`
	Reason    enums.RetireReason `json:"reason"`
	RetiredAt time.Time          `json:"retired_at"`
	RowID     int64              `json:"row_id"`
	Changes   []RowChange        `json:"changes"`
}

// InventoryMaintenanceEvent covers units entering or leaving maintenance.
type InventoryMaintenanceEvent struct {
	Item    ItemRef          `json:"item"`
	To      enums.ItemStatus `json:"to"`
	RowID   int64            `json:"row_id"`
	Changes []RowChange      `json:"changes"`
}

// LoanEvent is emitted when a loan is created or returned.
type LoanEvent struct {
	LoanID     int64            `json:"loan_id"`
	Item       ItemRef          `json:"item"`
	Borrower   string           `json:"borrower"`
	DueAt      time.Time        `json:"due_at"`
	ReturnedAt *time.Time       `json:"returned_at,omitempty"`
	Status     enums.LoanStatus `json:"status"`
	Changes    []RowChange      `json:"changes"`
}

// LoanOverdueEvent is emitted once per loan that passes its due date unreturned.
type LoanOverdueEvent struct {
	LoanID      int64     `json:"loan_id"`
	Item        ItemRef   `json:"item"`
	Borrower    string    `json:"borrower"`
	DueAt       time.Time `json:"due_at"`
	DaysOverdue int       `json:"days_overdue"`
}

// AssignmentEvent is emitted when an assignment is created, returned or retired.
type AssignmentEvent struct {
	AssignmentID int64                  `json:"assignment_id"`
	Item         ItemRef                `json:"item"`
	Assignee     string                 `json:"assignee"`
	Status       enums.AssignmentStatus `json:"status"`
	Reason       *enums.RetireReason    `json:"reason,omitempty"`
	Changes      []RowChange            `json:"changes"`
}

// TaskCreatedEvent is emitted when a terminal files a pending task.
type TaskCreatedEvent struct {
	TaskID    int64          `json:"task_id"`
	Type      enums.TaskType `json:"type"`
	Requester string         `json:"requester"`
	Origin    string         `json:"origin"`
}

// TaskResolvedEvent is emitted when an admin approves or rejects a pending task.
type TaskResolvedEvent struct {
	TaskID       int64            `json:"task_id"`
	Type         enums.TaskType   `json:"type"`
	Status       enums.TaskStatus `json:"status"`
	ResolvedBy   string           `json:"resolved_by"`
	RejectReason *string          `json:"reject_reason,omitempty"`
}

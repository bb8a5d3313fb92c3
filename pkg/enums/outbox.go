package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateInventoryRow OutboxAggregateType = "inventory_row"
	AggregateLoan         OutboxAggregateType = "loan"
	AggregateAssignment   OutboxAggregateType = "assignment"
	AggregatePendingTask  OutboxAggregateType = "pending_task"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryRow,
	AggregateLoan,
	AggregateAssignment,
	AggregatePendingTask,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventInventoryIntake         OutboxEventType = "inventory_intake"
	EventInventoryRetired        OutboxEventType = "inventory_retired"
	EventInventoryMaintenance    OutboxEventType = "inventory_maintenance"
	EventInventoryMaintenanceEnd OutboxEventType = "inventory_maintenance_returned"
	EventLoanCreated             OutboxEventType = "loan_created"
	EventLoanReturned            OutboxEventType = "loan_returned"
	EventLoanOverdue             OutboxEventType = "loan_overdue"
	EventAssignmentCreated       OutboxEventType = "assignment_created"
	EventAssignmentReturned      OutboxEventType = "assignment_returned"
	EventAssignmentRetired       OutboxEventType = "assignment_retired"
	EventTaskCreated             OutboxEventType = "task_created"
	EventTaskResolved            OutboxEventType = "task_resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInventoryIntake,
	EventInventoryRetired,
	EventInventoryMaintenance,
	EventInventoryMaintenanceEnd,
	EventLoanCreated,
	EventLoanReturned,
	EventLoanOverdue,
	EventAssignmentCreated,
	EventAssignmentReturned,
	EventAssignmentRetired,
	EventTaskCreated,
	EventTaskResolved,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxEventTypes returns every known event type.
func OutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, len(validOutboxEventTypes))
	copy(out, validOutboxEventTypes)
	return out
}

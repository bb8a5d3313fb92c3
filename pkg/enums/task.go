package enums

import "fmt"

// TaskType maps to the tipo column of pending_tasks.
type TaskType string

const (
	TaskTypeQuickLoad   TaskType = "CARGA_RAPIDA"
	TaskTypeQuickRetire TaskType = "RETIRO_RAPIDO"
)

var validTaskTypes = []TaskType{
	TaskTypeQuickLoad,
	TaskTypeQuickRetire,
}

func (t TaskType) IsValid() bool {
	for _, candidate := range validTaskTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaskType converts raw input into TaskType.
func ParseTaskType(value string) (TaskType, error) {
	for _, candidate := range validTaskTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task type %q", value)
}

// TaskStatus maps to the estado column of pending_tasks.
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "Pendiente"
	TaskStatusApproved TaskStatus = "Aprobado"
	TaskStatusRejected TaskStatus = "Rechazado"
)

var validTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusApproved,
	TaskStatusRejected,
}

func (s TaskStatus) IsValid() bool {
	for _, candidate := range validTaskStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTaskStatus converts raw input into TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, error) {
	for _, candidate := range validTaskStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", value)
}

package enums

import "fmt"

// ActivityType classifies RecentActivity entries.
type ActivityType string

const (
	ActivityIntake            ActivityType = "Alta de Artículo"
	ActivityLoan              ActivityType = "Préstamo"
	ActivityLoanReturn        ActivityType = "Devolución de Préstamo"
	ActivityLoanOverdue       ActivityType = "Préstamo Vencido"
	ActivityAssignment        ActivityType = "Asignación"
	ActivityAssignmentReturn  ActivityType = "Devolución de Asignación"
	ActivityRetire            ActivityType = "Retiro de Artículo"
	ActivityMaintenance       ActivityType = "Envío a Mantenimiento"
	ActivityMaintenanceReturn ActivityType = "Retorno de Mantenimiento"
	ActivityTaskCreated       ActivityType = "Tarea Creada"
	ActivityTaskApproved      ActivityType = "Tarea Aprobada"
	ActivityTaskRejected      ActivityType = "Tarea Rechazada"
)

var validActivityTypes = []ActivityType{
	ActivityIntake,
	ActivityLoan,
	ActivityLoanReturn,
	ActivityLoanOverdue,
	ActivityAssignment,
	ActivityAssignmentReturn,
	ActivityRetire,
	ActivityMaintenance,
	ActivityMaintenanceReturn,
	ActivityTaskCreated,
	ActivityTaskApproved,
	ActivityTaskRejected,
}

func (a ActivityType) IsValid() bool {
	for _, candidate := range validActivityTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into ActivityType.
func ParseActivityType(value string) (ActivityType, error) {
	for _, candidate := range validActivityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity type %q", value)
}

// ActorRole is the gateway supplied role of the caller.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "Administrador"
	ActorRoleEditor   ActorRole = "Editor"
	ActorRoleReader   ActorRole = "Lector"
	ActorRoleTerminal ActorRole = "Terminal"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleEditor,
	ActorRoleReader,
	ActorRoleTerminal,
}

func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

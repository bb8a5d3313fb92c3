package enums

import "fmt"

// LoanStatus maps to the estado column of loans.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "Activo"
	LoanStatusReturned LoanStatus = "Devuelto"
	LoanStatusOverdue  LoanStatus = "Vencido"
)

var validLoanStatuses = []LoanStatus{
	LoanStatusActive,
	LoanStatusReturned,
	LoanStatusOverdue,
}

func (s LoanStatus) String() string {
	return string(s)
}

func (s LoanStatus) IsValid() bool {
	for _, candidate := range validLoanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the loaned units are still out.
func (s LoanStatus) IsOpen() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

// ParseLoanStatus converts raw input into LoanStatus.
func ParseLoanStatus(value string) (LoanStatus, error) {
	for _, candidate := range validLoanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loan status %q", value)
}

// AssignmentStatus maps to the estado column of assignments.
type AssignmentStatus string

const (
	AssignmentStatusActive   AssignmentStatus = "Activo"
	AssignmentStatusReturned AssignmentStatus = "Retornado"
	AssignmentStatusRetired  AssignmentStatus = "Retirado"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusActive,
	AssignmentStatusReturned,
	AssignmentStatusRetired,
}

func (s AssignmentStatus) String() string {
	return string(s)
}

func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssignmentStatus converts raw input into AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}

package enums

import "fmt"

// ItemStatus maps to the estado column of inventory_rows.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "Disponible"
	ItemStatusLoaned      ItemStatus = "Prestado"
	ItemStatusAssigned    ItemStatus = "Asignado"
	ItemStatusMaintenance ItemStatus = "Mantenimiento"
	ItemStatusRetired     ItemStatus = "Retirado"

	// ItemStatusPendingRetire marks a row with an open quick-retire request.
	// Reconciliation never produces it.
	ItemStatusPendingRetire ItemStatus = "PENDIENTE_DE_RETIRO"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusLoaned,
	ItemStatusAssigned,
	ItemStatusMaintenance,
	ItemStatusRetired,
	ItemStatusPendingRetire,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical estado enum.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsCheckedOut reports whether units in this state are away from the Disponible pool
// and can be brought back by a return.
func (s ItemStatus) IsCheckedOut() bool {
	switch s {
	case ItemStatusLoaned, ItemStatusAssigned, ItemStatusMaintenance:
		return true
	default:
		return false
	}
}

// ParseItemStatus converts raw input into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}

package enums

import "fmt"

// RetireReason maps to motivo_retiro.
type RetireReason string

const (
	RetireReasonDamaged     RetireReason = "Dañado"
	RetireReasonObsolete    RetireReason = "Obsoleto"
	RetireReasonLost        RetireReason = "Perdido"
	RetireReasonSold        RetireReason = "Vendido"
	RetireReasonNotReturned RetireReason = "Prestado/Asignado (No Retornado)"
	RetireReasonOther       RetireReason = "Otro"
)

var validRetireReasons = []RetireReason{
	RetireReasonDamaged,
	RetireReasonObsolete,
	RetireReasonLost,
	RetireReasonSold,
	RetireReasonNotReturned,
	RetireReasonOther,
}

func (r RetireReason) String() string {
	return string(r)
}

func (r RetireReason) IsValid() bool {
	for _, candidate := range validRetireReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRetireReason converts raw input into RetireReason.
func ParseRetireReason(value string) (RetireReason, error) {
	for _, candidate := range validRetireReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid retire reason %q", value)
}

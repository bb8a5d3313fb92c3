package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// GroupSummary breaks a group's fleet down by estado.
type GroupSummary struct {
	Key      Key
	Fleet    int
	ByStatus map[enums.ItemStatus]int
	Serials  int
	// InService excludes retired units.
	InService int
	// Value is the cost of in-service units.
	Value decimal.Decimal
}

// Summarize computes one GroupSummary per group in c, ordered like Keys.
func Summarize(c *Catalog) []GroupSummary {
	byKey := make(map[Key]*GroupSummary)
	for _, row := range c.rows {
		key := KeyOf(row)
		s, ok := byKey[key]
		if !ok {
			s = &GroupSummary{Key: key, ByStatus: make(map[enums.ItemStatus]int), Value: decimal.Zero}
			byKey[key] = s
		}
		units := row.Units()
		s.Fleet += units
		s.ByStatus[row.Status] += units
		if row.IsSerialized() {
			s.Serials++
		}
		if row.Status != enums.ItemStatusRetired {
			s.InService += units
			s.Value = s.Value.Add(row.UnitCost.Mul(decimal.NewFromInt(int64(units))))
		}
	}

	out := make([]GroupSummary, 0, len(byKey))
	for _, key := range c.Keys() {
		out = append(out, *byKey[key])
	}
	return out
}

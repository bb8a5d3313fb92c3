package reconcile

import (
	"reflect"
	"sort"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is one row level effect of an operation. Deleted changes carry the row
// as it was before removal.
type Change struct {
	Kind ChangeKind
	Row  models.InventoryRow
}

// Result is the outcome of an operation: the next catalog, the changes that lead
// to it from the input catalog, and the row now holding the moved units.
type Result struct {
	Catalog *Catalog
	Changes []Change
	Target  models.InventoryRow
}

// draft accumulates edits over a copy of a catalog.
type draft struct {
	base *Catalog
	rows map[int64]models.InventoryRow
	ids  IDAllocator
}

func newDraft(base *Catalog, ids IDAllocator) *draft {
	rows := make(map[int64]models.InventoryRow, len(base.rows))
	for _, row := range base.rows {
		rows[row.ID] = row
	}
	return &draft{base: base, rows: rows, ids: ids}
}

func (d *draft) put(row models.InventoryRow) {
	d.rows[row.ID] = row
}

// settle stores a bulk row after a decrement. Non Disponible buckets that reach
// zero are pruned; the Disponible bucket stays as the group's home row.
func (d *draft) settle(row models.InventoryRow) {
	if !row.IsSerialized() && row.Quantity == 0 && row.Status != enums.ItemStatusAvailable {
		delete(d.rows, row.ID)
		return
	}
	d.put(row)
}

// create stores template under a freshly allocated id.
func (d *draft) create(template models.InventoryRow) (models.InventoryRow, error) {
	if d.ids == nil {
		return models.InventoryRow{}, violation("no id allocator configured for new rows")
	}
	id, err := d.ids.NextID()
	if err != nil {
		return models.InventoryRow{}, err
	}
	if _, taken := d.rows[id]; taken {
		return models.InventoryRow{}, violation("allocator returned id %d which is already in use", id)
	}
	if _, existed := d.base.byID[id]; existed {
		return models.InventoryRow{}, violation("allocator reused id %d", id)
	}
	row := template.Clone()
	row.ID = id
	d.put(row)
	return row, nil
}

// bucket finds the current bulk row of key in status.
func (d *draft) bucket(key Key, status enums.ItemStatus) (models.InventoryRow, bool) {
	if existing, ok := d.base.Bucket(key, status); ok {
		row, alive := d.rows[existing.ID]
		return row, alive
	}
	for _, row := range d.rows {
		if !row.IsSerialized() && row.Status == status && KeyOf(row) == key {
			return row, true
		}
	}
	return models.InventoryRow{}, false
}

// mergeInto adds qty units to the key bucket in status, creating it from
// template when missing.
func (d *draft) mergeInto(key Key, status enums.ItemStatus, qty int, template models.InventoryRow) (models.InventoryRow, error) {
	if row, ok := d.bucket(key, status); ok {
		row.Quantity += qty
		d.put(row)
		return row, nil
	}
	fresh := template.Clone()
	fresh.SerialNumber = nil
	fresh.Status = status
	fresh.Quantity = qty
	fresh.RetireReason = nil
	fresh.RetiredAt = nil
	fresh.CreatedAt = time.Time{}
	fresh.UpdatedAt = time.Time{}
	return d.create(fresh)
}

// commit validates the edited rows, checks fleet sizes of the touched groups
// against want, and diffs against the base catalog.
func (d *draft) commit(target models.InventoryRow, want map[Key]int) (Result, error) {
	rows := make([]models.InventoryRow, 0, len(d.rows))
	for _, row := range d.rows {
		rows = append(rows, row)
	}
	if err := Validate(rows); err != nil {
		return Result{}, err
	}
	next := index(rows)
	for key, size := range want {
		if got := next.FleetSize(key); got != size {
			return Result{}, violation("fleet size of %s changed from %d to %d", key, size, got)
		}
	}

	var changes []Change
	for _, before := range d.base.rows {
		after, ok := d.rows[before.ID]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeDeleted, Row: before.Clone()})
		case !reflect.DeepEqual(before, after):
			changes = append(changes, Change{Kind: ChangeUpdated, Row: after.Clone()})
		}
	}
	for id, row := range d.rows {
		if _, existed := d.base.byID[id]; !existed {
			changes = append(changes, Change{Kind: ChangeCreated, Row: row.Clone()})
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Row.ID < changes[j].Row.ID })

	return Result{Catalog: next, Changes: changes, Target: target.Clone()}, nil
}

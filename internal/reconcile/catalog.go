// Package reconcile holds the inventory state rules for intake, checkout,
// returns and retirements. Every operation is a pure function from one
// immutable Catalog to the next plus the row level change set a store applies.
package reconcile

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

type bucketKey struct {
	Key
	Status enums.ItemStatus
}

// Catalog is an immutable, indexed snapshot of inventory rows. It may hold the
// whole inventory or only the groups a command touches.
type Catalog struct {
	rows    []models.InventoryRow
	byID    map[int64]int
	buckets map[bucketKey]int
	serials map[string]int
}

// NewCatalog validates rows and indexes them. Rows are copied.
func NewCatalog(rows []models.InventoryRow) (*Catalog, error) {
	if err := Validate(rows); err != nil {
		return nil, err
	}
	return index(rows), nil
}

func index(rows []models.InventoryRow) *Catalog {
	c := &Catalog{
		rows:    make([]models.InventoryRow, 0, len(rows)),
		byID:    make(map[int64]int, len(rows)),
		buckets: make(map[bucketKey]int),
		serials: make(map[string]int),
	}
	for _, row := range rows {
		c.rows = append(c.rows, row.Clone())
	}
	sort.SliceStable(c.rows, func(i, j int) bool { return c.rows[i].ID < c.rows[j].ID })
	for i, row := range c.rows {
		c.byID[row.ID] = i
		if row.IsSerialized() {
			c.serials[*row.SerialNumber] = i
			continue
		}
		if row.Status != enums.ItemStatusRetired {
			c.buckets[bucketKey{Key: KeyOf(row), Status: row.Status}] = i
		}
	}
	return c
}

// Validate reports every structural violation in rows at once.
func Validate(rows []models.InventoryRow) error {
	var errs error
	ids := make(map[int64]struct{}, len(rows))
	serials := make(map[string]int64)
	buckets := make(map[bucketKey]int64)

	for _, row := range rows {
		if row.ID <= 0 {
			errs = multierr.Append(errs, violation("row has non positive id %d", row.ID))
		}
		if _, dup := ids[row.ID]; dup {
			errs = multierr.Append(errs, violation("duplicate row id %d", row.ID))
		}
		ids[row.ID] = struct{}{}

		if !row.Status.IsValid() {
			errs = multierr.Append(errs, violation("row %d has unknown estado %q", row.ID, row.Status))
		}
		if row.Quantity < 0 {
			errs = multierr.Append(errs, violation("row %d has negative cantidad %d", row.ID, row.Quantity))
		}
		if row.Status != enums.ItemStatusRetired && (row.RetireReason != nil || row.RetiredAt != nil) {
			errs = multierr.Append(errs, violation("row %d carries retirement data while %s", row.ID, row.Status))
		}

		if row.IsSerialized() {
			if row.Quantity != 1 {
				errs = multierr.Append(errs, violation("serialized row %d must hold cantidad 1, got %d", row.ID, row.Quantity))
			}
			if other, dup := serials[*row.SerialNumber]; dup {
				errs = multierr.Append(errs, violation("numeroSerie %q used by rows %d and %d", *row.SerialNumber, other, row.ID))
			}
			serials[*row.SerialNumber] = row.ID
			continue
		}

		if row.Status == enums.ItemStatusRetired {
			continue
		}
		bk := bucketKey{Key: KeyOf(row), Status: row.Status}
		if other, dup := buckets[bk]; dup {
			errs = multierr.Append(errs, violation("group %s/%s has two %s rows (%d, %d)", row.Name, row.Model, row.Status, other, row.ID))
		}
		buckets[bk] = row.ID
	}
	return errs
}

// Len returns the number of rows.
func (c *Catalog) Len() int {
	return len(c.rows)
}

// Rows returns a copy of every row ordered by id.
func (c *Catalog) Rows() []models.InventoryRow {
	out := make([]models.InventoryRow, len(c.rows))
	for i, row := range c.rows {
		out[i] = row.Clone()
	}
	return out
}

// Get returns the row with the given id.
func (c *Catalog) Get(id int64) (models.InventoryRow, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.InventoryRow{}, false
	}
	return c.rows[i].Clone(), true
}

// BySerial returns the serialized row carrying serial.
func (c *Catalog) BySerial(serial string) (models.InventoryRow, bool) {
	i, ok := c.serials[serial]
	if !ok {
		return models.InventoryRow{}, false
	}
	return c.rows[i].Clone(), true
}

// Bucket returns the bulk row of key in status. Retirado rows are not buckets.
func (c *Catalog) Bucket(key Key, status enums.ItemStatus) (models.InventoryRow, bool) {
	i, ok := c.buckets[bucketKey{Key: key, Status: status}]
	if !ok {
		return models.InventoryRow{}, false
	}
	return c.rows[i].Clone(), true
}

// Group returns the rows of key ordered by id.
func (c *Catalog) Group(key Key) []models.InventoryRow {
	var out []models.InventoryRow
	for _, row := range c.rows {
		if KeyOf(row) == key {
			out = append(out, row.Clone())
		}
	}
	return out
}

// FleetSize counts every unit of key regardless of estado: bulk quantities plus
// one per serialized row.
func (c *Catalog) FleetSize(key Key) int {
	total := 0
	for _, row := range c.rows {
		if KeyOf(row) == key {
			total += row.Units()
		}
	}
	return total
}

// Keys returns the distinct groups present, sorted by name then model.
func (c *Catalog) Keys() []Key {
	seen := make(map[Key]struct{})
	var keys []Key
	for _, row := range c.rows {
		k := KeyOf(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Model < keys[j].Model
	})
	return keys
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Name, k.Model)
}

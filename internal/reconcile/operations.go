package reconcile

import (
	"strings"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// Return brings the units of a closed loan or assignment back to Disponible.
//
// A serialized unit flips its own row, which must still be in rec.From. Bulk
// units leave the rec.From bucket and merge into the Disponible bucket of the
// group, which is created from the source bucket when missing.
func Return(c *Catalog, rec ClosedRecord, ids IDAllocator) (Result, error) {
	if err := rec.Unit.validate(); err != nil {
		return Result{}, err
	}
	if !rec.From.IsCheckedOut() {
		return Result{}, invalid("cannot return units from estado %q", rec.From)
	}

	d := newDraft(c, ids)
	key := rec.Unit.Key()
	want := map[Key]int{key: c.FleetSize(key)}

	if rec.Unit.IsSerialized() {
		row, err := serializedRow(c, rec.Unit)
		if err != nil {
			return Result{}, err
		}
		if row.Status != rec.From {
			return Result{}, invalidState("unit %s is %s, expected %s", *row.SerialNumber, row.Status, rec.From)
		}
		row.Status = enums.ItemStatusAvailable
		d.put(row)
		return d.commit(row, want)
	}

	src, err := takeFromBucket(d, key, rec.From, rec.Unit.Quantity, true)
	if err != nil {
		return Result{}, err
	}
	target, err := d.mergeInto(key, enums.ItemStatusAvailable, rec.Unit.Quantity, src)
	if err != nil {
		return Result{}, err
	}
	return d.commit(target, want)
}

// Retire moves units from estado `from` to Retirado, stamping reason and the
// calendar date of at. Bulk units become a new Retirado row per retirement so
// the group's fleet size is unchanged.
func Retire(c *Catalog, u Unit, from enums.ItemStatus, reason enums.RetireReason, at time.Time, ids IDAllocator) (Result, error) {
	if err := u.validate(); err != nil {
		return Result{}, err
	}
	if !reason.IsValid() {
		return Result{}, invalid("motivoRetiro %q is not a known reason", reason)
	}
	if from != enums.ItemStatusAvailable && !from.IsCheckedOut() {
		return Result{}, invalid("cannot retire units from estado %q", from)
	}
	if at.IsZero() {
		return Result{}, invalid("fechaRetiro is required")
	}
	day := RetirementDate(at)

	d := newDraft(c, ids)
	key := u.Key()
	want := map[Key]int{key: c.FleetSize(key)}

	if u.IsSerialized() {
		row, err := serializedRow(c, u)
		if err != nil {
			return Result{}, err
		}
		if row.Status != from {
			return Result{}, invalidState("unit %s is %s, expected %s", *row.SerialNumber, row.Status, from)
		}
		stampRetired(&row, reason, day)
		d.put(row)
		return d.commit(row, want)
	}

	src, err := takeFromBucket(d, key, from, u.Quantity, from.IsCheckedOut())
	if err != nil {
		return Result{}, err
	}
	retired := src.Clone()
	retired.Quantity = u.Quantity
	retired.CreatedAt = time.Time{}
	retired.UpdatedAt = time.Time{}
	stampRetired(&retired, reason, day)
	target, err := d.create(retired)
	if err != nil {
		return Result{}, err
	}
	return d.commit(target, want)
}

// Checkout moves units out of Disponible into a checked out estado: Prestado for
// loans, Asignado for assignments, Mantenimiento for repairs.
func Checkout(c *Catalog, u Unit, to enums.ItemStatus, ids IDAllocator) (Result, error) {
	if err := u.validate(); err != nil {
		return Result{}, err
	}
	if !to.IsCheckedOut() {
		return Result{}, invalid("cannot check units out into estado %q", to)
	}

	d := newDraft(c, ids)
	key := u.Key()
	want := map[Key]int{key: c.FleetSize(key)}

	if u.IsSerialized() {
		row, err := serializedRow(c, u)
		if err != nil {
			return Result{}, err
		}
		if row.Status != enums.ItemStatusAvailable {
			return Result{}, invalidState("unit %s is %s, not %s", *row.SerialNumber, row.Status, enums.ItemStatusAvailable)
		}
		row.Status = to
		d.put(row)
		return d.commit(row, want)
	}

	src, err := takeFromBucket(d, key, enums.ItemStatusAvailable, u.Quantity, false)
	if err != nil {
		return Result{}, err
	}
	target, err := d.mergeInto(key, to, u.Quantity, src)
	if err != nil {
		return Result{}, err
	}
	return d.commit(target, want)
}

// Intake adds new stock. A template with a numeroSerie becomes one new
// serialized row; otherwise quantity units merge into the group's Disponible
// bucket. Intake is the only operation that grows a fleet.
func Intake(c *Catalog, template models.InventoryRow, quantity int, ids IDAllocator) (Result, error) {
	if strings.TrimSpace(template.Name) == "" || strings.TrimSpace(template.Model) == "" {
		return Result{}, invalid("nombre and modelo are required")
	}
	if template.Status != "" && template.Status != enums.ItemStatusAvailable {
		return Result{}, invalid("new stock enters as %s, got %q", enums.ItemStatusAvailable, template.Status)
	}
	if template.UnitCost.IsNegative() {
		return Result{}, invalid("costoUnitario must not be negative")
	}

	d := newDraft(c, ids)
	key := KeyOf(template)

	if template.IsSerialized() {
		serial := strings.TrimSpace(*template.SerialNumber)
		if serial == "" {
			return Result{}, invalid("numeroSerie must not be blank")
		}
		if quantity != 0 && quantity != 1 {
			return Result{}, invalid("serialized units are registered one at a time, got cantidad %d", quantity)
		}
		if existing, ok := c.BySerial(serial); ok {
			return Result{}, invalidState("numeroSerie %q already registered as row %d", serial, existing.ID)
		}
		row := template.Clone()
		row.SerialNumber = &serial
		row.Status = enums.ItemStatusAvailable
		row.Quantity = 1
		row.RetireReason = nil
		row.RetiredAt = nil
		created, err := d.create(row)
		if err != nil {
			return Result{}, err
		}
		return d.commit(created, map[Key]int{key: c.FleetSize(key) + 1})
	}

	if quantity <= 0 {
		return Result{}, invalid("cantidad must be positive, got %d", quantity)
	}
	target, err := d.mergeInto(key, enums.ItemStatusAvailable, quantity, template)
	if err != nil {
		return Result{}, err
	}
	return d.commit(target, map[Key]int{key: c.FleetSize(key) + quantity})
}

// RetirementDate truncates at to its calendar date in at's location.
func RetirementDate(at time.Time) time.Time {
	y, m, day := at.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, at.Location())
}

func serializedRow(c *Catalog, u Unit) (models.InventoryRow, error) {
	row, ok := c.Get(u.ArticuloID)
	if !ok {
		return models.InventoryRow{}, notFound("articulo %d not found", u.ArticuloID)
	}
	if !row.IsSerialized() {
		return models.InventoryRow{}, invalid("articulo %d is a bulk row, numeroSerie not expected", row.ID)
	}
	if *row.SerialNumber != *u.SerialNumber {
		return models.InventoryRow{}, invalid("numeroSerie %q does not match articulo %d", *u.SerialNumber, row.ID)
	}
	if KeyOf(row) != u.Key() {
		return models.InventoryRow{}, invalid("articulo %d belongs to %s, not %s", row.ID, KeyOf(row), u.Key())
	}
	return row, nil
}

// takeFromBucket decrements the key bucket in status by qty. A shortfall in a
// checked out bucket means records and rows disagree, which is an invariant
// violation; a shortfall in Disponible is simply insufficient stock.
func takeFromBucket(d *draft, key Key, status enums.ItemStatus, qty int, shortfallIsViolation bool) (models.InventoryRow, error) {
	src, ok := d.bucket(key, status)
	if !ok {
		return models.InventoryRow{}, notFound("no %s row for %s", status, key)
	}
	if src.Quantity < qty {
		if shortfallIsViolation {
			return models.InventoryRow{}, violation("%s row %d of %s holds %d units, cannot remove %d", status, src.ID, key, src.Quantity, qty)
		}
		return models.InventoryRow{}, invalidState("only %d units of %s are %s, requested %d", src.Quantity, key, status, qty)
	}
	src.Quantity -= qty
	d.settle(src)
	return src, nil
}

func stampRetired(row *models.InventoryRow, reason enums.RetireReason, day time.Time) {
	r := reason
	at := day
	row.Status = enums.ItemStatusRetired
	row.RetireReason = &r
	row.RetiredAt = &at
}

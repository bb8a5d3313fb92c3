package reconcile

import (
	"strings"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

// Key identifies a (name, model) group. Matching is exact and case sensitive.
type Key struct {
	Name  string
	Model string
}

// KeyOf returns the group key of row.
func KeyOf(row models.InventoryRow) Key {
	return Key{Name: row.Name, Model: row.Model}
}

// Unit describes what a loan, assignment or retirement moves: one serialized
// row identified by ArticuloID and SerialNumber, or Quantity units of a bulk group.
type Unit struct {
	ArticuloID   int64
	SerialNumber *string
	Name         string
	Model        string
	Quantity     int
}

// UnitOf builds the unit for quantity units of row.
func UnitOf(row models.InventoryRow, quantity int) Unit {
	u := Unit{
		ArticuloID: row.ID,
		Name:       row.Name,
		Model:      row.Model,
		Quantity:   quantity,
	}
	if row.SerialNumber != nil {
		serial := *row.SerialNumber
		u.SerialNumber = &serial
		u.Quantity = 1
	}
	return u
}

func (u Unit) Key() Key {
	return Key{Name: u.Name, Model: u.Model}
}

func (u Unit) IsSerialized() bool {
	return u.SerialNumber != nil
}

// ClosedRecord is a loan or assignment being closed by a return.
type ClosedRecord struct {
	Unit Unit
	From enums.ItemStatus
}

func (u Unit) validate() error {
	if strings.TrimSpace(u.Name) == "" || strings.TrimSpace(u.Model) == "" {
		return invalid("nombre and modelo are required")
	}
	if u.IsSerialized() {
		if strings.TrimSpace(*u.SerialNumber) == "" {
			return invalid("numeroSerie must not be blank")
		}
		if u.ArticuloID <= 0 {
			return invalid("articuloId is required for serialized units")
		}
		if u.Quantity != 0 && u.Quantity != 1 {
			return invalid("serialized units move one at a time, got cantidad %d", u.Quantity)
		}
		return nil
	}
	if u.Quantity <= 0 {
		return invalid("cantidad must be positive, got %d", u.Quantity)
	}
	return nil
}

// units is how many fleet units u moves.
func (u Unit) units() int {
	if u.IsSerialized() {
		return 1
	}
	return u.Quantity
}

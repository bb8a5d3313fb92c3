package models

// IDSequence is a named monotonic counter advanced inside the caller's transaction.
type IDSequence struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

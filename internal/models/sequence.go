package models

// Sequence is an owner-scoped monotonic counter, one row per (owner, name).
// Bill and work-order numbering increment it atomically inside the creating
// transaction instead of counting existing documents, which would race.
type Sequence struct {
	ID      uint   `gorm:"primaryKey"`
	OwnerID uint   `gorm:"not null;index:idx_sequence_owner_name,unique,priority:1"`
	Name    string `gorm:"not null;index:idx_sequence_owner_name,unique,priority:2"`
	Value   uint64 `gorm:"not null;default:0"`
}

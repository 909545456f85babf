package models

import "time"

// Customer entity, unique phone per owner.
type Customer struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	OwnerID  uint   `gorm:"not null;index:idx_customer_owner_phone,unique,priority:1" json:"-"`
	Name     string `gorm:"not null;index" json:"customerName"`
	Phone    string `gorm:"not null;index:idx_customer_owner_phone,unique,priority:2" json:"phoneNumber"`
	Whatsapp string `json:"whatsappNumber"`
	Address  string `json:"address"`
	// Soft-delete flag; customers referenced by bills are never hard-deleted.
	Deleted bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is sellable labor: no stock concept, pure revenue at zero cost basis.
type Service struct {
	ID      uint            `gorm:"primaryKey" json:"id"`
	OwnerID uint            `gorm:"not null;index" json:"-"`
	Name    string          `gorm:"not null" json:"serviceName"`
	Price   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"servicePrice"`
	Deleted bool            `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

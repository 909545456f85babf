package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory models. Generic items carry a fungible quantity counter;
// serialized items are tracked per unit, each sold at most once.

type ItemType string

const (
	ItemGeneric    ItemType = "generic"
	ItemSerialized ItemType = "serialized"
)

type SerialStatus string

const (
	SerialAvailable SerialStatus = "available"
	SerialSold      SerialStatus = "sold"
)

type Item struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OwnerID       uint            `gorm:"not null;index" json:"-"`
	Type          ItemType        `gorm:"not null" json:"itemType"`
	Name          string          `gorm:"not null" json:"itemName"`
	Unit          string          `gorm:"not null" json:"unit"`
	Warranty      string          `gorm:"not null;default:'no_warranty'" json:"warranty"`
	MRP           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"mrp"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"purchasePrice"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"salePrice"`

	// Generic items only. Never negative; all mutation goes through
	// conditional updates in the catalog store.
	StockQty     int          `gorm:"not null;default:0" json:"stockQty"`
	StockHistory []StockEntry `gorm:"foreignKey:ItemID" json:"stockHistory"`

	// Serialized items only.
	SerialNumbers []SerialNumber `gorm:"foreignKey:ItemID" json:"serialNumbers"`

	Deleted bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AvailableStock reports sellable units. Requires SerialNumbers preloaded
// for serialized items.
func (i *Item) AvailableStock() int {
	if i.Type == ItemSerialized {
		n := 0
		for _, sn := range i.SerialNumbers {
			if sn.Status == SerialAvailable {
				n++
			}
		}
		return n
	}
	return i.StockQty
}

// SerialNumber is one identified unit of a serialized item. SerialNo is
// unique system-wide, not just per owner. CustomerName and BillNumber are
// denormalized at billing time for lookup without a join.
type SerialNumber struct {
	ID           uint         `gorm:"primaryKey" json:"-"`
	ItemID       uint         `gorm:"not null;index" json:"-"`
	SerialNo     string       `gorm:"uniqueIndex;not null" json:"serialNo"`
	Status       SerialStatus `gorm:"not null;default:'available'" json:"status"`
	AddedAt      time.Time    `json:"addedAt"`
	CustomerName string       `json:"customerName,omitempty"`
	BillNumber   string       `json:"billNumber,omitempty"`
}

// StockEntry records one stock addition for a generic item.
type StockEntry struct {
	ID      uint      `gorm:"primaryKey" json:"-"`
	ItemID  uint      `gorm:"not null;index" json:"-"`
	Qty     int       `gorm:"not null" json:"qty"`
	AddedAt time.Time `json:"addedAt"`
}

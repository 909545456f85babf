package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing models. The bill core (lines, totals) is immutable after
// creation; only the payment tail (ReceivedPayment, DueAmount, Payments,
// Status) moves.

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPartial BillStatus = "partial"
	BillPaid    BillStatus = "paid"
)

type LineType string

const (
	LineGeneric    LineType = "generic"
	LineSerialized LineType = "serialized"
	LineService    LineType = "service"
)

type Bill struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    uint      `gorm:"not null;index" json:"-"`
	CustomerID uint      `gorm:"not null;index" json:"customerId"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	// Human-readable, sequential per owner: BILL-{YY}{MM}-{NNNN}.
	BillNumber string     `gorm:"not null;index" json:"billNumber"`
	Lines      []BillLine `gorm:"foreignKey:BillID" json:"items"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"subtotal"`
	Discount    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalAmount"`

	ReceivedPayment decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"receivedPayment"`
	DueAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"dueAmount"`
	PaymentMethod   string          `gorm:"not null;default:'cash'" json:"paymentMethod"`
	Payments        []PaymentEntry  `gorm:"foreignKey:BillID" json:"paymentHistory"`
	Status          BillStatus      `gorm:"not null;default:'pending';index" json:"status"`

	WorkOrderID *uint `json:"workOrderId,omitempty"`
	Deleted     bool  `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BillLine is one priced entry within a bill. PurchasePrice is the cost
// snapshot taken at billing time; it is never re-derived from the catalog.
type BillLine struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	BillID   uint     `gorm:"not null;index" json:"-"`
	Type     LineType `gorm:"not null" json:"itemType"`
	ItemRef  uint     `gorm:"not null" json:"itemId"`
	Name     string   `gorm:"not null" json:"itemName"`
	SerialNo string   `json:"serialNumber,omitempty"`
	Qty      int      `gorm:"not null;default:1" json:"qty"`

	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"purchasePrice"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
}

// PaymentEntry is one received payment against a bill.
type PaymentEntry struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	BillID    uint            `gorm:"not null;index" json:"-"`
	Reference string          `gorm:"not null" json:"reference"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	PaidAt    time.Time       `json:"paidAt"`
	Note      string          `json:"note"`
}

// StatusFor derives bill status from the payment state. Status is a pure
// function of (received, total): paid iff received >= total, partial iff
// 0 < received < total, pending otherwise.
func StatusFor(received, total decimal.Decimal) BillStatus {
	switch {
	case received.GreaterThanOrEqual(total):
		return BillPaid
	case received.IsPositive():
		return BillPartial
	default:
		return BillPending
	}
}

// DueFor computes max(0, total - received).
func DueFor(received, total decimal.Decimal) decimal.Decimal {
	due := total.Sub(received)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

package models

import "time"

type WorkOrderStatus string

const (
	WorkOrderPending   WorkOrderStatus = "pending"
	WorkOrderCompleted WorkOrderStatus = "completed"
)

// WorkOrder schedules a service visit. It completes either manually or
// automatically when a bill created from it references it.
type WorkOrder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    uint      `gorm:"not null;index" json:"-"`
	CustomerID uint      `gorm:"not null;index" json:"customerId"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	// WO-{YY}{MM}-{NNNN}, sequential per owner.
	Number string `gorm:"not null;index" json:"workOrderNumber"`
	Note   string `gorm:"not null" json:"note"`

	ScheduleDate     time.Time `gorm:"not null;index" json:"scheduleDate"`
	HasScheduledTime bool      `gorm:"not null;default:false" json:"hasScheduledTime"`
	// "HH:MM", 24-hour; empty when HasScheduledTime is false.
	ScheduleTime string `json:"scheduleTime"`

	Status           WorkOrderStatus `gorm:"not null;default:'pending';index" json:"status"`
	CompletedAt      *time.Time      `json:"completedAt"`
	NotificationSent bool            `gorm:"not null;default:false" json:"-"`
	BillID           *uint           `json:"billId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

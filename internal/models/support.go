package models

import "time"

// SupportTicket is a help request raised by an owner; confirmations go out
// through the transactional mailer.
type SupportTicket struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UserID       uint   `gorm:"not null;index" json:"-"`
	TicketNumber string `gorm:"not null;index" json:"ticketNumber"`
	OwnerName    string `gorm:"not null" json:"ownerName"`
	Email        string `gorm:"not null" json:"email"`
	Phone        string `gorm:"not null" json:"phone"`
	AltEmail     string `json:"alternateEmail"`
	AltPhone     string `json:"alternatePhone"`
	// Comma-joined issue labels selected by the user.
	Issues       string `gorm:"not null" json:"selectedIssues"`
	CustomReason string `json:"customReason"`
	Status       string `gorm:"not null;default:'open'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

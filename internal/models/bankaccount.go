package models

import "time"

// BankAccount holds payout details shown on bills. At most one account per
// owner is primary; the first account created becomes primary by default.
type BankAccount struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	OwnerID       uint   `gorm:"not null;index:idx_bank_owner_primary,priority:1" json:"-"`
	BankName      string `gorm:"not null" json:"bankName"`
	AccountNumber string `gorm:"not null" json:"accountNumber"`
	IFSCCode      string `gorm:"not null" json:"ifscCode"`
	HolderName    string `gorm:"not null" json:"accountHolderName"`
	UPIID         string `gorm:"not null" json:"upiId"`
	Primary       bool   `gorm:"not null;default:false;index:idx_bank_owner_primary,priority:2" json:"isPrimary"`
	Deleted       bool   `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

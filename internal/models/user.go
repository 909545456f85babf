package models

import "time"

// User is the authenticated "engineer" account every other record is scoped to.
// Identity lives at the external provider; ProviderUID links the two.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ProviderUID  string `gorm:"uniqueIndex;not null" json:"-"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoURL"`
	Phone        string `json:"phoneNumber"`
	PasswordHash string `json:"-"`
	PasswordSet  bool   `gorm:"not null;default:false" json:"isPasswordSet"`
	Role         string `gorm:"not null;default:'engineer'" json:"role"`
	Active       bool   `gorm:"not null;default:true" json:"isActive"`

	Business BusinessProfile `gorm:"embedded;embeddedPrefix:business_" json:"businessProfile"`

	DeviceTokens []DeviceToken `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BusinessProfile is embedded on User; shown on printed bills.
type BusinessProfile struct {
	Name             string     `json:"businessName"`
	OwnerName        string     `json:"ownerName"`
	Address          string     `json:"address"`
	State            string     `json:"state"`
	City             string     `json:"city"`
	Pincode          string     `json:"pincode"`
	Phone            string     `json:"phone"`
	HidePhoneOnBills bool       `gorm:"not null;default:false" json:"hidePhoneOnBills"`
	Complete         bool       `gorm:"not null;default:false" json:"isComplete"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// DeviceToken is one push-notification registration for a user's device.
type DeviceToken struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UserID         uint      `gorm:"not null;index" json:"-"`
	Token          string    `gorm:"not null;index" json:"token"`
	Device         string    `gorm:"not null;default:'web'" json:"device"`
	RegistrationID string    `gorm:"not null" json:"registrationId"`
	CreatedAt      time.Time `json:"createdAt"`
	LastSeenAt     time.Time `json:"lastSeenAt"`
}

package model

import (
	"time"
)

const (
	UserTypeClient   = "client"
	UserTypeAgent    = "agent"
	UserTypeReferral = "referral"
)

// User is the platform account that owns a wallet.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	FirstName    string    `gorm:"type:varchar(64)" json:"firstName"`
	LastName     string    `gorm:"type:varchar(64)" json:"lastName"`
	AvatarURL    string    `gorm:"type:varchar(512)" json:"avatarUrl"`
	TypeOfUser   string    `gorm:"type:varchar(20);not null;default:client" json:"typeOfUser"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// FullName is the display name copied onto NFTs as ownerName.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// PublicProfile is the subset of a user shown next to bids and offers.
type PublicProfile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl"`
}

func (u *User) Profile() *PublicProfile {
	return &PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

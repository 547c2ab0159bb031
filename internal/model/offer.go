package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OfferStatusCreated   = "created"
	OfferStatusCancelled = "cancelled"
	OfferStatusApproved  = "approved"
	OfferStatusRejected  = "rejected"
)

var ValidOfferTransitions = map[string][]string{
	OfferStatusCreated: {OfferStatusCancelled, OfferStatusApproved, OfferStatusRejected},
}

func CanOfferTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range ValidOfferTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Offer is one bidder's price proposal on an offer-type listing.
type Offer struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	NFTID           int64           `gorm:"index;not null" json:"nftId"`
	SellingConfigID int64           `gorm:"index:idx_config_user;not null" json:"sellingConfigId"`
	UserID          int64           `gorm:"index:idx_config_user;not null" json:"userId"`
	Price           decimal.Decimal `gorm:"type:decimal(36,8);not null" json:"price"`
	Description     string          `gorm:"type:varchar(512)" json:"description"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status          string          `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Offer) TableName() string {
	return "offers"
}

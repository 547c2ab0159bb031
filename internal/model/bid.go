package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BidStatusCreated   = "created"
	BidStatusWinning   = "winning"
	BidStatusDone      = "done"
	BidStatusCancelled = "cancelled"
)

// Bid is a user's standing bid on an auction. Re-bidding updates the row.
type Bid struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	NFTID           int64           `gorm:"index;not null" json:"nftId"`
	SellingConfigID int64           `gorm:"uniqueIndex:uk_config_user;not null" json:"sellingConfigId"`
	UserID          int64           `gorm:"uniqueIndex:uk_config_user;not null" json:"userId"`
	Price           decimal.Decimal `gorm:"type:decimal(36,8);not null" json:"price"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status          string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Bid) TableName() string {
	return "bids"
}

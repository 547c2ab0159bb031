package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SellingConfigTypeFixedPrice = "sell_fixed_price"
	SellingConfigTypeBid        = "bid"
	SellingConfigTypeOffer      = "offer"
)

const (
	SellingConfigStatusActive     = "active"
	SellingConfigStatusInactive   = "inactive"
	SellingConfigStatusProcessing = "processing"
	SellingConfigStatusFailed     = "failed"
)

// CurrencyREAL is the only payment token the marketplace accepts.
const CurrencyREAL = "REAL"

// SellingConfigTypeTitles are the display names of the listing types.
var SellingConfigTypeTitles = map[string]string{
	SellingConfigTypeFixedPrice: "Sell at fixed price",
	SellingConfigTypeBid:        "Auction",
	SellingConfigTypeOffer:      "Accept offer",
}

// ============================================================================
// Selling config state machine
// ============================================================================
//
//	active -> inactive     sold, cancelled, or settled by a bid
//	active -> processing   picked up by the auction expiry sweep
//	processing -> inactive sweep settled or cancelled the auction
//	processing -> failed   sweep could not settle on the ledger
//
// inactive and failed are terminal. A relisting creates a new config.
var ValidSellingConfigTransitions = map[string][]string{
	SellingConfigStatusActive:     {SellingConfigStatusInactive, SellingConfigStatusProcessing},
	SellingConfigStatusProcessing: {SellingConfigStatusInactive, SellingConfigStatusFailed},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidSellingConfigTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// SellingConfig is one listing episode of an NFT.
type SellingConfig struct {
	ID           int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	NFTID        int64           `gorm:"index:idx_nft_status;not null" json:"nftId"`
	UserID       int64           `gorm:"index;not null" json:"userId"`
	Type         string          `gorm:"type:varchar(20);not null" json:"type"`
	Status       string          `gorm:"type:varchar(20);index:idx_nft_status;index:idx_type_status_end;not null" json:"status"`
	Price        decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"price"`
	MinPrice     decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"minPrice"`
	WinningPrice decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"winningPrice"`
	Currency     string          `gorm:"type:varchar(10);not null" json:"currency"`
	StartTime    *time.Time      `json:"startTime"`
	EndTime      *time.Time      `gorm:"index:idx_type_status_end" json:"endTime"`
	Version      int             `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SellingConfig) TableName() string {
	return "nft_selling_configs"
}

func (c *SellingConfig) IsActive() bool {
	return c.Status == SellingConfigStatusActive
}

// Ended reports whether an auction's end time has passed at now.
func (c *SellingConfig) Ended(now time.Time) bool {
	return c.EndTime != nil && now.After(*c.EndTime)
}

// SalesType is the {key, title} pair shown on marketplace cards.
type SalesType struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

func NewSalesType(configType string) *SalesType {
	if configType == "" {
		return nil
	}
	return &SalesType{Key: configType, Title: SellingConfigTypeTitles[configType]}
}

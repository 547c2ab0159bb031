package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a user's ledger account. One per user, created lazily and never
// deleted. PrivateKey holds the encrypted key and is never serialized.
type Wallet struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID      int64           `gorm:"uniqueIndex;not null" json:"userId"`
	AccountID   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"accountId"`
	Address     string          `gorm:"type:varchar(64);not null" json:"address"`
	PrivateKey  string          `gorm:"type:text;not null" json:"-"`
	PublicKey   string          `gorm:"type:varchar(256)" json:"publicKey"`
	CreatedTxID string          `gorm:"type:varchar(128)" json:"createdTxId"`
	Point       decimal.Decimal `gorm:"-" json:"point"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Wallet) TableName() string {
	return "wallets"
}

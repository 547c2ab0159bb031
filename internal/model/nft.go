package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	NFTTypeClient   = "client"
	NFTTypeAgent    = "agent"
	NFTTypeReferral = "referral"
)

// NFT is the local view of one minted token. Sale fields mirror the active
// selling config, owner fields mirror the owner's wallet and profile.
type NFT struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID          int64           `gorm:"index;not null" json:"userId"`
	TokenID         int64           `gorm:"uniqueIndex;not null" json:"tokenId"`
	TransactionID   string          `gorm:"type:varchar(128)" json:"transactionId"`
	Name            string          `gorm:"type:varchar(128);index" json:"name"`
	NFTType         string          `gorm:"type:varchar(20);not null;default:client" json:"nftType"`
	Images          string          `gorm:"type:varchar(512)" json:"images"`
	PropertyAddress string          `gorm:"type:varchar(256)" json:"propertyAddress"`
	ContractAddress string          `gorm:"type:varchar(64)" json:"contractAddress"`
	AgentName       string          `gorm:"type:varchar(128)" json:"agentName"`
	Customer        string          `gorm:"type:varchar(128)" json:"customer"`
	SalesPrice      decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"salesPrice"`
	SalesDate       *time.Time      `json:"salesDate"`
	Price           decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"price"`
	Point           decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"point"`
	WinningPrice    decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"winningPrice"`
	EndDate         *time.Time      `json:"endDate"`
	SaleStatus      string          `gorm:"type:varchar(20);index;not null;default:inactive" json:"saleStatus"`
	PutSaleType     *string         `gorm:"type:varchar(20)" json:"putSaleType"`
	PutSaleTime     *time.Time      `json:"putSaleTime"`
	OwnerName       string          `gorm:"type:varchar(128)" json:"ownerName"`
	OwnerAddress    string          `gorm:"type:varchar(64)" json:"ownerAddress"`
	OwnerAccountID  string          `gorm:"type:varchar(64)" json:"ownerAccountId"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (NFT) TableName() string {
	return "nfts"
}

// TransferTo moves the owner snapshot to the given wallet and user.
func (n *NFT) TransferTo(w *Wallet, owner *User) {
	n.UserID = w.UserID
	n.OwnerAccountID = w.AccountID
	n.OwnerAddress = w.Address
	if owner != nil {
		n.OwnerName = owner.FullName()
	}
}

// PutOnSale copies a fresh listing onto the NFT.
func (n *NFT) PutOnSale(saleType string, price decimal.Decimal, ownerName string, now time.Time) {
	n.Price = price
	n.PutSaleType = &saleType
	n.PutSaleTime = &now
	n.OwnerName = ownerName
	n.SaleStatus = SellingConfigStatusActive
}

// TakeOffSale clears the listing snapshot after a sale.
func (n *NFT) TakeOffSale() {
	n.Price = decimal.Zero
	n.PutSaleType = nil
	n.PutSaleTime = nil
	n.SaleStatus = SellingConfigStatusInactive
}

// PointType maps the NFT's category onto the point bucket it feeds.
func PointTypeForNFT(nftType string) string {
	switch nftType {
	case NFTTypeAgent:
		return PointTypeAgent
	case NFTTypeReferral:
		return PointTypeReferral
	default:
		return PointTypeClient
	}
}
